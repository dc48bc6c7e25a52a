// Package progress records lesson completions and keeps the derived
// per-course progress record up to date.
package progress

import (
	"slices"
	"time"
)

// CompletionRecord is the durable fact that a user finished a lesson.
// A lesson is completed at most once per user.
type CompletionRecord struct {
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	LessonID    string    `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompletionSet is an immutable set of completed lesson ids. The zero
// value is an empty set.
type CompletionSet struct {
	ids map[string]struct{}
}

// NewCompletionSet builds a set from ids, dropping duplicates.
func NewCompletionSet(ids ...string) CompletionSet {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return CompletionSet{ids: m}
}

// Has reports whether lessonID is in the set.
func (s CompletionSet) Has(lessonID string) bool {
	_, ok := s.ids[lessonID]
	return ok
}

// Len returns the number of completed lessons.
func (s CompletionSet) Len() int {
	return len(s.ids)
}

// With returns a new set that also contains lessonID. The receiver is
// left unchanged.
func (s CompletionSet) With(lessonID string) CompletionSet {
	if s.Has(lessonID) {
		return s
	}
	m := make(map[string]struct{}, len(s.ids)+1)
	for id := range s.ids {
		m[id] = struct{}{}
	}
	m[lessonID] = struct{}{}
	return CompletionSet{ids: m}
}

// IDs returns the lesson ids in lexical order.
func (s CompletionSet) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
