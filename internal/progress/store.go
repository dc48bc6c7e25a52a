package progress

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/pai-learn/internal/platform/database"
)

// CourseProgress is the derived summary for one (user, course) pair.
// CompletedAt is set once, on the transition to completed.
type CourseProgress struct {
	UserID                string     `json:"user_id"`
	CourseID              string     `json:"course_id"`
	CompletedLessonsCount int        `json:"completed_lessons_count"`
	ProgressPercentage    float64    `json:"progress_percentage"`
	IsCompleted           bool       `json:"is_completed"`
	StartedAt             time.Time  `json:"started_at"`
	LastAccessedAt        time.Time  `json:"last_accessed_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

// Store persists completion records and progress records.
//
// InsertCompletion and InsertCourseProgress return an error matching
// database.ErrDuplicateKey when the key already exists. CourseProgress
// returns database.ErrNotFound when there is no record.
type Store interface {
	InsertCompletion(ctx context.Context, rec CompletionRecord) error
	CompletedLessons(ctx context.Context, userID, courseID string) ([]string, error)
	CourseProgress(ctx context.Context, userID, courseID string) (CourseProgress, error)
	InsertCourseProgress(ctx context.Context, p CourseProgress) error
	UpdateCourseProgress(ctx context.Context, p CourseProgress) error
	CourseProgressList(ctx context.Context, courseID string) ([]CourseProgress, error)
}

type progressKey struct {
	userID   string
	courseID string
}

type completionKey struct {
	userID   string
	lessonID string
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	completions map[completionKey]CompletionRecord
	progress    map[progressKey]CourseProgress
	mu          sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		completions: make(map[completionKey]CompletionRecord),
		progress:    make(map[progressKey]CourseProgress),
	}
}

func (s *MemoryStore) InsertCompletion(_ context.Context, rec CompletionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := completionKey{rec.UserID, rec.LessonID}
	if _, ok := s.completions[key]; ok {
		return fmt.Errorf("completion %s/%s: %w", rec.UserID, rec.LessonID, database.ErrDuplicateKey)
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	s.completions[key] = rec
	return nil
}

func (s *MemoryStore) CompletedLessons(_ context.Context, userID, courseID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	for _, rec := range s.completions {
		if rec.UserID == userID && rec.CourseID == courseID {
			ids = append(ids, rec.LessonID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) CourseProgress(_ context.Context, userID, courseID string) (CourseProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[progressKey{userID, courseID}]
	if !ok {
		return CourseProgress{}, fmt.Errorf("progress %s/%s: %w", userID, courseID, database.ErrNotFound)
	}
	return p, nil
}

func (s *MemoryStore) InsertCourseProgress(_ context.Context, p CourseProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey{p.UserID, p.CourseID}
	if _, ok := s.progress[key]; ok {
		return fmt.Errorf("progress %s/%s: %w", p.UserID, p.CourseID, database.ErrDuplicateKey)
	}
	s.progress[key] = p
	return nil
}

func (s *MemoryStore) UpdateCourseProgress(_ context.Context, p CourseProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey{p.UserID, p.CourseID}
	if _, ok := s.progress[key]; !ok {
		return fmt.Errorf("progress %s/%s: %w", p.UserID, p.CourseID, database.ErrNotFound)
	}
	s.progress[key] = p
	return nil
}

func (s *MemoryStore) CourseProgressList(_ context.Context, courseID string) ([]CourseProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := []CourseProgress{}
	for _, p := range s.progress {
		if p.CourseID == courseID {
			list = append(list, p)
		}
	}
	slices.SortFunc(list, func(a, b CourseProgress) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return list, nil
}
