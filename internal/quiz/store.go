package quiz

import (
	"context"
	"slices"
	"sync"
)

// AttemptStore appends and lists quiz attempts.
type AttemptStore interface {
	AppendAttempt(ctx context.Context, a Attempt) error
	Attempts(ctx context.Context, userID, quizID string) ([]Attempt, error)
}

// MemoryAttemptStore is an in-memory implementation of AttemptStore.
type MemoryAttemptStore struct {
	mu       sync.RWMutex
	attempts []Attempt
}

// NewMemoryAttemptStore creates an empty attempt store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{attempts: []Attempt{}}
}

func (s *MemoryAttemptStore) AppendAttempt(_ context.Context, a Attempt) error {
	s.mu.Lock()
	s.attempts = append(s.attempts, a)
	s.mu.Unlock()
	return nil
}

func (s *MemoryAttemptStore) Attempts(_ context.Context, userID, quizID string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := []Attempt{}
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			list = append(list, a)
		}
	}
	slices.SortStableFunc(list, func(a, b Attempt) int {
		return a.AttemptedAt.Compare(b.AttemptedAt)
	})
	return list, nil
}
