package progress_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/p-n-ai/pai-learn/internal/progress"
)

// fixedClock returns a clock that advances one minute per call.
func fixedClock() func() time.Time {
	t := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		completed, total int
		want             float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 3, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
		{5, 3, 100},
		{-1, 3, 0},
		{1, 8, 12.5},
	}

	for _, tt := range tests {
		got := progress.Percentage(tt.completed, tt.total)
		if got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestPercentage_Bounds(t *testing.T) {
	for total := 0; total <= 20; total++ {
		for completed := 0; completed <= total; completed++ {
			got := progress.Percentage(completed, total)
			if math.IsNaN(got) || math.IsInf(got, 0) || got < 0 || got > 100 {
				t.Fatalf("Percentage(%d, %d) = %v, out of range", completed, total, got)
			}
		}
	}
}

func TestIsCompleted(t *testing.T) {
	tests := []struct {
		completed, total int
		want             bool
	}{
		{0, 0, false},
		{2, 3, false},
		{3, 3, true},
		{1, 1, true},
	}

	for _, tt := range tests {
		if got := progress.IsCompleted(tt.completed, tt.total); got != tt.want {
			t.Errorf("IsCompleted(%d, %d) = %v, want %v", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestAggregator_Recompute_CreatesRecord(t *testing.T) {
	store := progress.NewMemoryStore()
	agg := progress.NewAggregator(store, progress.WithClock(fixedClock()))

	p, err := agg.Recompute(t.Context(), "u1", "c1", 2, 3)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if p.CompletedLessonsCount != 2 || p.ProgressPercentage != 66.67 || p.IsCompleted {
		t.Errorf("progress = %+v, want 2 / 66.67 / not completed", p)
	}
	if p.StartedAt.IsZero() || !p.StartedAt.Equal(p.LastAccessedAt) {
		t.Errorf("StartedAt = %v, LastAccessedAt = %v; want equal and set", p.StartedAt, p.LastAccessedAt)
	}
	if p.CompletedAt != nil {
		t.Error("CompletedAt should be nil for an incomplete course")
	}

	stored, err := store.CourseProgress(t.Context(), "u1", "c1")
	if err != nil {
		t.Fatalf("CourseProgress() error = %v", err)
	}
	if stored.ProgressPercentage != 66.67 {
		t.Errorf("stored percentage = %v, want 66.67", stored.ProgressPercentage)
	}
}

func TestAggregator_Recompute_CompletedAtMonotonic(t *testing.T) {
	store := progress.NewMemoryStore()
	agg := progress.NewAggregator(store, progress.WithClock(fixedClock()))
	ctx := t.Context()

	first, err := agg.Recompute(ctx, "u1", "c1", 1, 2)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	done, err := agg.Recompute(ctx, "u1", "c1", 2, 2)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if !done.IsCompleted || done.CompletedAt == nil {
		t.Fatalf("progress = %+v, want completed with CompletedAt", done)
	}
	if !done.StartedAt.Equal(first.StartedAt) {
		t.Error("StartedAt changed on update")
	}
	stamp := *done.CompletedAt

	// Recompute again, then with a grown course (no longer complete), then
	// complete again: the original stamp must survive all three.
	for _, counts := range [][2]int{{2, 2}, {2, 3}, {3, 3}} {
		p, err := agg.Recompute(ctx, "u1", "c1", counts[0], counts[1])
		if err != nil {
			t.Fatalf("Recompute(%v) error = %v", counts, err)
		}
		if p.CompletedAt == nil || !p.CompletedAt.Equal(stamp) {
			t.Errorf("Recompute(%v) CompletedAt = %v, want %v", counts, p.CompletedAt, stamp)
		}
		if !p.LastAccessedAt.After(stamp) {
			t.Errorf("Recompute(%v) LastAccessedAt not refreshed", counts)
		}
	}
}

func TestAggregator_Recompute_CompletedOnFirstInsert(t *testing.T) {
	agg := progress.NewAggregator(progress.NewMemoryStore(), progress.WithClock(fixedClock()))

	p, err := agg.Recompute(t.Context(), "u1", "c1", 1, 1)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if !p.IsCompleted || p.CompletedAt == nil || !p.CompletedAt.Equal(p.StartedAt) {
		t.Errorf("progress = %+v, want completed at start", p)
	}
}

func TestAggregator_Touch(t *testing.T) {
	store := progress.NewMemoryStore()
	agg := progress.NewAggregator(store, progress.WithClock(fixedClock()))
	ctx := t.Context()

	first, err := agg.Touch(ctx, "u1", "c1", 0, 4)
	if err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if first.ProgressPercentage != 0 || first.IsCompleted {
		t.Errorf("progress = %+v, want empty", first)
	}

	second, err := agg.Touch(ctx, "u1", "c1", 0, 4)
	if err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if !second.LastAccessedAt.After(first.LastAccessedAt) {
		t.Error("Touch() should refresh LastAccessedAt")
	}
	if !second.StartedAt.Equal(first.StartedAt) {
		t.Error("Touch() should keep StartedAt")
	}
}

func TestAggregator_Recompute_RequiresIDs(t *testing.T) {
	agg := progress.NewAggregator(progress.NewMemoryStore())
	if _, err := agg.Recompute(t.Context(), "", "c1", 1, 1); err == nil {
		t.Error("Recompute() with empty user should fail")
	}
}

// racingStore reports no record on the first read, then loses the insert
// race to a concurrent writer.
type racingStore struct {
	*progress.MemoryStore
	raced bool
}

func (s *racingStore) InsertCourseProgress(ctx context.Context, p progress.CourseProgress) error {
	if !s.raced {
		s.raced = true
		other := p
		other.StartedAt = p.StartedAt.Add(-time.Hour)
		if err := s.MemoryStore.InsertCourseProgress(ctx, other); err != nil {
			return err
		}
	}
	return s.MemoryStore.InsertCourseProgress(ctx, p)
}

func TestAggregator_Recompute_InsertRaceFallsBackToUpdate(t *testing.T) {
	store := &racingStore{MemoryStore: progress.NewMemoryStore()}
	agg := progress.NewAggregator(store, progress.WithClock(fixedClock()))

	p, err := agg.Recompute(t.Context(), "u1", "c1", 1, 2)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if p.ProgressPercentage != 50 {
		t.Errorf("ProgressPercentage = %v, want 50", p.ProgressPercentage)
	}
	if !p.StartedAt.Before(p.LastAccessedAt.Add(-time.Minute)) {
		t.Error("StartedAt should come from the winning record")
	}
}

type failingProgressStore struct {
	*progress.MemoryStore
}

func (failingProgressStore) CourseProgress(context.Context, string, string) (progress.CourseProgress, error) {
	return progress.CourseProgress{}, errors.New("connection refused")
}

func TestAggregator_Recompute_StoreFailure(t *testing.T) {
	agg := progress.NewAggregator(failingProgressStore{progress.NewMemoryStore()})

	if _, err := agg.Recompute(t.Context(), "u1", "c1", 1, 2); err == nil {
		t.Error("Recompute() should report store failure")
	}
}
