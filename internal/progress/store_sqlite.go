package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/p-n-ai/pai-learn/internal/platform/database"
)

// SQLiteStore is the offline Store implementation.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a progress store on an open SQLite handle.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertCompletion(ctx context.Context, rec CompletionRecord) error {
	completedAt := rec.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lesson_completions (user_id, course_id, lesson_id, completed_at)
		 VALUES (?, ?, ?, ?)`,
		rec.UserID, rec.CourseID, rec.LessonID, completedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", database.Classify(err))
	}
	return nil
}

func (s *SQLiteStore) CompletedLessons(ctx context.Context, userID, courseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lesson_id FROM lesson_completions
		 WHERE user_id = ? AND course_id = ?
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProgress(row rowScanner) (CourseProgress, error) {
	var (
		p                     CourseProgress
		completed             int64
		started, lastAccessed int64
		completedAt           sql.NullInt64
	)
	if err := row.Scan(&p.UserID, &p.CourseID, &p.CompletedLessonsCount, &p.ProgressPercentage,
		&completed, &started, &lastAccessed, &completedAt); err != nil {
		return CourseProgress{}, err
	}
	p.IsCompleted = completed != 0
	p.StartedAt = time.Unix(0, started)
	p.LastAccessedAt = time.Unix(0, lastAccessed)
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64)
		p.CompletedAt = &t
	}
	return p, nil
}

func (s *SQLiteStore) CourseProgress(ctx context.Context, userID, courseID string) (CourseProgress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM course_progress
		 WHERE user_id = ? AND course_id = ?`,
		userID, courseID,
	)
	p, err := scanSQLiteProgress(row)
	if err != nil {
		return CourseProgress{}, fmt.Errorf("get progress: %w", database.Classify(err))
	}
	return p, nil
}

func (s *SQLiteStore) InsertCourseProgress(ctx context.Context, p CourseProgress) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO course_progress (`+progressColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.CourseID, p.CompletedLessonsCount, p.ProgressPercentage,
		boolInt(p.IsCompleted), p.StartedAt.UnixNano(), p.LastAccessedAt.UnixNano(), nullNanos(p.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert progress: %w", database.Classify(err))
	}
	return nil
}

func (s *SQLiteStore) UpdateCourseProgress(ctx context.Context, p CourseProgress) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE course_progress
		 SET completed_lessons_count = ?,
		     progress_percentage = ?,
		     is_completed = ?,
		     last_accessed_at = ?,
		     completed_at = COALESCE(completed_at, ?)
		 WHERE user_id = ? AND course_id = ?`,
		p.CompletedLessonsCount, p.ProgressPercentage, boolInt(p.IsCompleted),
		p.LastAccessedAt.UnixNano(), nullNanos(p.CompletedAt),
		p.UserID, p.CourseID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update progress %s/%s: %w", p.UserID, p.CourseID, database.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) CourseProgressList(ctx context.Context, courseID string) ([]CourseProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM course_progress
		 WHERE course_id = ?
		 ORDER BY user_id ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	list := []CourseProgress{}
	for rows.Next() {
		p, err := scanSQLiteProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return list, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullNanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
