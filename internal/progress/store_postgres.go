package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-learn/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) InsertCompletion(ctx context.Context, rec CompletionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	completedAt := rec.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO lesson_completions (user_id, course_id, lesson_id, completed_at)
		 VALUES ($1, $2, $3, $4)`,
		rec.UserID, rec.CourseID, rec.LessonID, completedAt,
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", database.Classify(err))
	}
	return nil
}

func (s *PostgresStore) CompletedLessons(ctx context.Context, userID, courseID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT lesson_id FROM lesson_completions
		 WHERE user_id = $1 AND course_id = $2
		 ORDER BY lesson_id ASC`,
		userID, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return ids, nil
}

const progressColumns = `user_id, course_id, completed_lessons_count, progress_percentage,
	is_completed, started_at, last_accessed_at, completed_at`

func (s *PostgresStore) CourseProgress(ctx context.Context, userID, courseID string) (CourseProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var p CourseProgress
	err := s.pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM course_progress
		 WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	).Scan(&p.UserID, &p.CourseID, &p.CompletedLessonsCount, &p.ProgressPercentage,
		&p.IsCompleted, &p.StartedAt, &p.LastAccessedAt, &p.CompletedAt)
	if err != nil {
		return CourseProgress{}, fmt.Errorf("get progress: %w", database.Classify(err))
	}
	return p, nil
}

func (s *PostgresStore) InsertCourseProgress(ctx context.Context, p CourseProgress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO course_progress (`+progressColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.UserID, p.CourseID, p.CompletedLessonsCount, p.ProgressPercentage,
		p.IsCompleted, p.StartedAt, p.LastAccessedAt, p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert progress: %w", database.Classify(err))
	}
	return nil
}

// UpdateCourseProgress never clears completed_at once it is set.
func (s *PostgresStore) UpdateCourseProgress(ctx context.Context, p CourseProgress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE course_progress
		 SET completed_lessons_count = $3,
		     progress_percentage = $4,
		     is_completed = $5,
		     last_accessed_at = $6,
		     completed_at = COALESCE(completed_at, $7)
		 WHERE user_id = $1 AND course_id = $2`,
		p.UserID, p.CourseID, p.CompletedLessonsCount, p.ProgressPercentage,
		p.IsCompleted, p.LastAccessedAt, p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update progress %s/%s: %w", p.UserID, p.CourseID, database.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CourseProgressList(ctx context.Context, courseID string) ([]CourseProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+progressColumns+` FROM course_progress
		 WHERE course_id = $1
		 ORDER BY user_id ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	list := []CourseProgress{}
	for rows.Next() {
		var p CourseProgress
		if err := rows.Scan(&p.UserID, &p.CourseID, &p.CompletedLessonsCount, &p.ProgressPercentage,
			&p.IsCompleted, &p.StartedAt, &p.LastAccessedAt, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return list, nil
}
