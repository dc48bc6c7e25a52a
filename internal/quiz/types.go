// Package quiz normalizes stored question options, grades submissions and
// records attempts.
package quiz

import (
	"context"
	"time"
)

// QuestionType selects how a question is graded.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

// Quiz is a graded set of questions. A nil PassScore means the quiz has no
// pass criterion.
type Quiz struct {
	ID        string `json:"id"`
	CourseID  string `json:"course_id,omitempty"`
	Title     string `json:"title"`
	PassScore *int   `json:"pass_score,omitempty"`
}

// Question is a quiz question with its options as loaded from storage.
// CorrectAnswerIndex applies to string-list options only.
type Question struct {
	ID                 string       `json:"id"`
	QuizID             string       `json:"quiz_id"`
	OrderInQuiz        int          `json:"order_in_quiz"`
	Text               string       `json:"text"`
	Type               QuestionType `json:"type"`
	Options            RawOptions   `json:"-"`
	CorrectAnswerIndex *int         `json:"-"`
	CorrectAnswerText  string       `json:"-"`
}

// Attempt is one graded submission. Attempts are appended, never updated.
type Attempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	QuizID         string    `json:"quiz_id"`
	ScoreObtained  int       `json:"score_obtained"`
	TotalQuestions int       `json:"total_questions"`
	IsPassed       bool      `json:"is_passed"`
	AttemptedAt    time.Time `json:"attempted_at"`
}

// Source loads quizzes and their questions. Questions come back ordered by
// OrderInQuiz.
type Source interface {
	Quiz(ctx context.Context, quizID string) (Quiz, error)
	Questions(ctx context.Context, quizID string) ([]Question, error)
}
