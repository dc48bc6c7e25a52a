package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Submission is a graded quiz. AttemptErr is set when the attempt could
// not be recorded; the score is still valid.
type Submission struct {
	Result     Result
	IsPassed   bool
	Attempt    Attempt
	AttemptErr error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service grades submissions and records attempts.
type Service struct {
	attempts AttemptStore
	now      func() time.Time
}

// NewService creates a service recording attempts in store.
func NewService(store AttemptStore, opts ...Option) *Service {
	s := &Service{attempts: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit grades answers and appends an attempt. It fails only on invalid
// input; a failed attempt write is reported in Submission.AttemptErr.
func (s *Service) Submit(ctx context.Context, userID string, quiz Quiz, questions []Question, answers map[string]Answer) (Submission, error) {
	if userID == "" || quiz.ID == "" {
		return Submission{}, fmt.Errorf("user_id and quiz_id are required")
	}

	result := Grade(questions, answers)
	sub := Submission{
		Result:   result,
		IsPassed: IsPassed(result.Score, quiz.PassScore),
		Attempt: Attempt{
			ID:             uuid.NewString(),
			UserID:         userID,
			QuizID:         quiz.ID,
			ScoreObtained:  result.Score,
			TotalQuestions: result.Total,
			AttemptedAt:    s.now(),
		},
	}
	sub.Attempt.IsPassed = sub.IsPassed

	if err := s.attempts.AppendAttempt(ctx, sub.Attempt); err != nil {
		sub.AttemptErr = fmt.Errorf("record attempt: %w", err)
		slog.Warn("failed to record quiz attempt",
			"user_id", userID,
			"quiz_id", quiz.ID,
			"error", err,
		)
	}

	slog.Info("quiz graded",
		"user_id", userID,
		"quiz_id", quiz.ID,
		"score", result.Score,
		"total", result.Total,
		"passed", sub.IsPassed,
	)
	return sub, nil
}

// Attempts lists a learner's attempts at a quiz, oldest first.
func (s *Service) Attempts(ctx context.Context, userID, quizID string) ([]Attempt, error) {
	return s.attempts.Attempts(ctx, userID, quizID)
}
