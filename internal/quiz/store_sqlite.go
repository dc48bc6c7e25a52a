package quiz

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteAttemptStore is the offline AttemptStore.
type SQLiteAttemptStore struct {
	db *sql.DB
}

// NewSQLiteAttemptStore creates an attempt store on an open SQLite handle.
func NewSQLiteAttemptStore(db *sql.DB) (*SQLiteAttemptStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &SQLiteAttemptStore{db: db}, nil
}

func (s *SQLiteAttemptStore) AppendAttempt(ctx context.Context, a Attempt) error {
	passed := 0
	if a.IsPassed {
		passed = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (id, user_id, quiz_id, score_obtained, total_questions, is_passed, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.QuizID, a.ScoreObtained, a.TotalQuestions, passed, a.AttemptedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *SQLiteAttemptStore) Attempts(ctx context.Context, userID, quizID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, quiz_id, score_obtained, total_questions, is_passed, attempted_at
		 FROM quiz_attempts
		 WHERE user_id = ? AND quiz_id = ?
		 ORDER BY attempted_at ASC`,
		userID, quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	list := []Attempt{}
	for rows.Next() {
		var (
			a           Attempt
			passed      int64
			attemptedAt int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.ScoreObtained, &a.TotalQuestions, &passed, &attemptedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.IsPassed = passed != 0
		a.AttemptedAt = time.Unix(0, attemptedAt)
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return list, nil
}
