package quiz

import (
	"errors"
	"maps"
	"sync"
)

var (
	// ErrSubmitInFlight is returned while a submission for the session is
	// still running.
	ErrSubmitInFlight = errors.New("quiz submission in flight")
	// ErrSubmitted is returned when answering after the session was graded.
	ErrSubmitted = errors.New("quiz already submitted")
)

// Session holds one learner's local answer state for a quiz. Retake clears
// it; recorded attempts are not affected.
type Session struct {
	UserID string
	QuizID string

	mu       sync.Mutex
	answers  map[string]Answer
	inFlight bool
	result   *Submission
}

// NewSession starts an empty session.
func NewSession(userID, quizID string) *Session {
	return &Session{UserID: userID, QuizID: quizID, answers: make(map[string]Answer)}
}

// Answer sets the answer for a question, replacing any earlier one.
func (s *Session) Answer(questionID string, a Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.inFlight:
		return ErrSubmitInFlight
	case s.result != nil:
		return ErrSubmitted
	}
	s.answers[questionID] = a
	return nil
}

// Answers returns a copy of the current answers.
func (s *Session) Answers() map[string]Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.answers)
}

// Begin marks a submission as in flight and returns the answers to grade.
// A second Begin before End is rejected, as is one after grading.
func (s *Session) Begin() (map[string]Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.inFlight:
		return nil, ErrSubmitInFlight
	case s.result != nil:
		return nil, ErrSubmitted
	}
	s.inFlight = true
	return maps.Clone(s.answers), nil
}

// End clears the in-flight flag. A nil submission leaves the session open
// for another try.
func (s *Session) End(sub *Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.result = sub
}

// Result returns the graded submission, if any.
func (s *Session) Result() (Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Submission{}, false
	}
	return *s.result, true
}

// Retake discards the answers and result so the quiz can be taken again.
func (s *Session) Retake() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return ErrSubmitInFlight
	}
	s.answers = make(map[string]Answer)
	s.result = nil
	return nil
}
