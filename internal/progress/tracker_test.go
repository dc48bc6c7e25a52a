package progress_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/progress"
)

func newTracker(store progress.Store) *progress.Tracker {
	return progress.NewTracker(store, progress.NewAggregator(store, progress.WithClock(fixedClock())))
}

func TestTracker_MarkComplete(t *testing.T) {
	store := progress.NewMemoryStore()
	tracker := newTracker(store)

	res, err := tracker.MarkComplete(t.Context(), "u1", "c1", "L1", progress.CompletionSet{}, 3)
	if err != nil {
		t.Fatalf("MarkComplete() error = %v", err)
	}
	if res.Status != progress.Recorded {
		t.Errorf("Status = %v, want recorded", res.Status)
	}
	if !res.Completed.Has("L1") || res.Completed.Len() != 1 {
		t.Errorf("Completed = %v, want [L1]", res.Completed.IDs())
	}
	if res.ProgressErr != nil {
		t.Errorf("ProgressErr = %v", res.ProgressErr)
	}
	if res.Progress.ProgressPercentage != 33.33 {
		t.Errorf("ProgressPercentage = %v, want 33.33", res.Progress.ProgressPercentage)
	}
}

func TestTracker_MarkComplete_Idempotent(t *testing.T) {
	store := progress.NewMemoryStore()
	tracker := newTracker(store)
	ctx := t.Context()

	once, err := tracker.MarkComplete(ctx, "u1", "c1", "L1", progress.CompletionSet{}, 3)
	if err != nil {
		t.Fatalf("MarkComplete() error = %v", err)
	}
	// A second tab still holds the stale set without L1.
	twice, err := tracker.MarkComplete(ctx, "u1", "c1", "L1", progress.CompletionSet{}, 3)
	if err != nil {
		t.Fatalf("second MarkComplete() error = %v", err)
	}

	if twice.Status != progress.AlreadyComplete {
		t.Errorf("Status = %v, want already_complete", twice.Status)
	}
	if twice.Completed.Len() != once.Completed.Len() {
		t.Errorf("Completed.Len() = %d, want %d", twice.Completed.Len(), once.Completed.Len())
	}
	if twice.Progress.CompletedLessonsCount != 1 {
		t.Errorf("CompletedLessonsCount = %d, want 1", twice.Progress.CompletedLessonsCount)
	}

	ids, err := store.CompletedLessons(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("CompletedLessons() error = %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("stored completions = %v, want one", ids)
	}
}

func TestTracker_MarkComplete_ScenarioTwoOfThree(t *testing.T) {
	tracker := newTracker(progress.NewMemoryStore())
	ctx := t.Context()

	res, err := tracker.MarkComplete(ctx, "u1", "c1", "L1", progress.CompletionSet{}, 3)
	if err != nil {
		t.Fatalf("MarkComplete(L1) error = %v", err)
	}
	res, err = tracker.MarkComplete(ctx, "u1", "c1", "L3", res.Completed, 3)
	if err != nil {
		t.Fatalf("MarkComplete(L3) error = %v", err)
	}

	p := res.Progress
	if p.CompletedLessonsCount != 2 || p.ProgressPercentage != 66.67 || p.IsCompleted {
		t.Errorf("progress = %+v, want 2 / 66.67 / not completed", p)
	}
}

func TestTracker_MarkComplete_RequiresIDs(t *testing.T) {
	tracker := newTracker(progress.NewMemoryStore())

	if _, err := tracker.MarkComplete(t.Context(), "u1", "c1", "", progress.CompletionSet{}, 3); err == nil {
		t.Error("MarkComplete() with empty lesson should fail")
	}
}

type failingInsertStore struct {
	*progress.MemoryStore
}

func (failingInsertStore) InsertCompletion(context.Context, progress.CompletionRecord) error {
	return errors.New("connection reset")
}

func TestTracker_MarkComplete_WriteFailure(t *testing.T) {
	tracker := newTracker(failingInsertStore{progress.NewMemoryStore()})

	current := progress.NewCompletionSet("L1")
	res, err := tracker.MarkComplete(t.Context(), "u1", "c1", "L2", current, 3)
	if err == nil {
		t.Fatal("MarkComplete() should fail when the insert fails")
	}
	if res.Completed.Has("L2") || current.Has("L2") {
		t.Error("failed completion must not advance the completion set")
	}
}

type failingUpdateStore struct {
	*progress.MemoryStore
}

func (failingUpdateStore) InsertCourseProgress(context.Context, progress.CourseProgress) error {
	return errors.New("timeout")
}

func TestTracker_MarkComplete_ProgressFailureIsSoft(t *testing.T) {
	store := failingUpdateStore{progress.NewMemoryStore()}
	tracker := newTracker(store)

	res, err := tracker.MarkComplete(t.Context(), "u1", "c1", "L1", progress.CompletionSet{}, 3)
	if err != nil {
		t.Fatalf("MarkComplete() error = %v", err)
	}
	if res.ProgressErr == nil {
		t.Error("ProgressErr should report the failed recompute")
	}
	if res.Status != progress.Recorded || !res.Completed.Has("L1") {
		t.Errorf("result = %+v, want recorded L1", res)
	}

	ids, _ := store.CompletedLessons(t.Context(), "u1", "c1")
	if len(ids) != 1 {
		t.Errorf("completion should stand, got %v", ids)
	}
}
