package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/p-n-ai/pai-learn/internal/platform/database"
)

// Percentage returns 100*completed/total rounded to two decimals, clamped
// to [0, 100]. It is 0 when total is not positive.
func Percentage(completed, total int) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return math.Round(10000*float64(completed)/float64(total)) / 100
}

// IsCompleted reports whether every lesson of a non-empty course is done.
func IsCompleted(completed, total int) bool {
	return total > 0 && completed == total
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// Aggregator keeps one progress record per (user, course) in line with the
// completion count it is given. Progress is a derived cache: callers log
// failures and the next recompute repairs the record.
type Aggregator struct {
	store Store
	now   func() time.Time
}

// NewAggregator creates an aggregator over store.
func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recompute derives percentage and completion from the given counts and
// upserts the progress record. CompletedAt is stamped only on the first
// transition to completed and is never overwritten.
func (a *Aggregator) Recompute(ctx context.Context, userID, courseID string, completed, total int) (CourseProgress, error) {
	p, err := a.upsert(ctx, userID, courseID, completed, total)
	if err != nil {
		return CourseProgress{}, err
	}
	slog.Debug("progress recomputed",
		"user_id", userID,
		"course_id", courseID,
		"completed", p.CompletedLessonsCount,
		"percentage", p.ProgressPercentage,
	)
	return p, nil
}

// Touch records a course view. It creates the record on first enrollment
// and refreshes LastAccessedAt along with the current counts.
func (a *Aggregator) Touch(ctx context.Context, userID, courseID string, completed, total int) (CourseProgress, error) {
	return a.upsert(ctx, userID, courseID, completed, total)
}

func (a *Aggregator) upsert(ctx context.Context, userID, courseID string, completed, total int) (CourseProgress, error) {
	if userID == "" || courseID == "" {
		return CourseProgress{}, fmt.Errorf("user_id and course_id are required")
	}

	now := a.now()
	existing, err := a.store.CourseProgress(ctx, userID, courseID)
	switch {
	case err == nil:
		return a.update(ctx, existing, completed, total, now)
	case !errors.Is(err, database.ErrNotFound):
		return CourseProgress{}, fmt.Errorf("fetch progress: %w", err)
	}

	p := CourseProgress{
		UserID:                userID,
		CourseID:              courseID,
		CompletedLessonsCount: completed,
		ProgressPercentage:    Percentage(completed, total),
		IsCompleted:           IsCompleted(completed, total),
		StartedAt:             now,
		LastAccessedAt:        now,
	}
	if p.IsCompleted {
		p.CompletedAt = &now
	}

	err = a.store.InsertCourseProgress(ctx, p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, database.ErrDuplicateKey) {
		return CourseProgress{}, fmt.Errorf("insert progress: %w", err)
	}

	// Another tab created the record between our read and insert.
	existing, err = a.store.CourseProgress(ctx, userID, courseID)
	if err != nil {
		return CourseProgress{}, fmt.Errorf("refetch progress: %w", err)
	}
	return a.update(ctx, existing, completed, total, now)
}

func (a *Aggregator) update(ctx context.Context, existing CourseProgress, completed, total int, now time.Time) (CourseProgress, error) {
	p := existing
	p.CompletedLessonsCount = completed
	p.ProgressPercentage = Percentage(completed, total)
	p.IsCompleted = IsCompleted(completed, total)
	p.LastAccessedAt = now
	if p.IsCompleted && p.CompletedAt == nil {
		p.CompletedAt = &now
	}

	if err := a.store.UpdateCourseProgress(ctx, p); err != nil {
		return CourseProgress{}, fmt.Errorf("update progress: %w", err)
	}
	return p, nil
}
