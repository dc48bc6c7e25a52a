package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-learn/internal/platform/database"
)

// Status describes how MarkComplete applied.
type Status int

const (
	// Recorded means a new completion record was written.
	Recorded Status = iota + 1
	// AlreadyComplete means the lesson was completed before.
	AlreadyComplete
)

func (s Status) String() string {
	switch s {
	case Recorded:
		return "recorded"
	case AlreadyComplete:
		return "already_complete"
	default:
		return "unknown"
	}
}

// MarkResult is the outcome of a completion that was applied. ProgressErr
// is set when the completion stands but the progress record could not be
// refreshed.
type MarkResult struct {
	Status      Status
	Completed   CompletionSet
	Progress    CourseProgress
	ProgressErr error
}

// Tracker records lesson completions and triggers the progress recompute.
type Tracker struct {
	store      Store
	aggregator *Aggregator
}

// NewTracker creates a tracker writing through store.
func NewTracker(store Store, aggregator *Aggregator) *Tracker {
	return &Tracker{store: store, aggregator: aggregator}
}

// MarkComplete records that userID finished lessonID. Calling it again for
// the same lesson is a no-op that reports AlreadyComplete. An error means
// the completion was not recorded and current must be left as it is.
//
// On success the progress record is recomputed from current plus lessonID
// rather than a fresh count from the store.
func (t *Tracker) MarkComplete(ctx context.Context, userID, courseID, lessonID string, current CompletionSet, totalLessons int) (MarkResult, error) {
	if userID == "" || courseID == "" || lessonID == "" {
		return MarkResult{}, fmt.Errorf("user_id, course_id and lesson_id are required")
	}

	status := Recorded
	err := t.store.InsertCompletion(ctx, CompletionRecord{
		UserID:      userID,
		CourseID:    courseID,
		LessonID:    lessonID,
		CompletedAt: t.aggregator.now(),
	})
	switch {
	case err == nil:
	case errors.Is(err, database.ErrDuplicateKey):
		status = AlreadyComplete
	default:
		return MarkResult{}, fmt.Errorf("record completion: %w", err)
	}

	completed := current.With(lessonID)
	res := MarkResult{Status: status, Completed: completed}

	res.Progress, res.ProgressErr = t.aggregator.Recompute(ctx, userID, courseID, completed.Len(), totalLessons)
	if res.ProgressErr != nil {
		slog.Warn("progress recompute failed",
			"user_id", userID,
			"course_id", courseID,
			"lesson_id", lessonID,
			"error", res.ProgressErr,
		)
	}

	slog.Info("lesson completed",
		"user_id", userID,
		"course_id", courseID,
		"lesson_id", lessonID,
		"status", status.String(),
	)
	return res, nil
}
