package learner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// EventType names a learning event.
type EventType string

const (
	EventLessonCompleted EventType = "lesson_completed"
	EventCourseCompleted EventType = "course_completed"
	EventQuizSubmitted   EventType = "quiz_submitted"
)

// Event is one entry in a learner's activity history.
type Event struct {
	UserID   string
	CourseID string
	Type     EventType
	Data     map[string]any
	At       time.Time
}

// record validates e and returns it ready for storage with its data
// encoded as a JSON object.
func (e Event) record() (Event, string, error) {
	if e.Type == "" {
		return e, "", fmt.Errorf("event type is required")
	}
	if e.UserID == "" {
		return e, "", fmt.Errorf("user_id is required")
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return e, "", fmt.Errorf("marshal %s data: %w", e.Type, err)
	}
	return e, string(encoded), nil
}

// EventLogger appends learning events. Failures never block the learner.
type EventLogger interface {
	LogEvent(ctx context.Context, e Event) error
}

// NopEventLogger drops every event.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error { return nil }

// MemoryEventLogger keeps events in memory.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, e Event) error {
	e, _, err := e.record()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	return nil
}

// Events returns the logged events, oldest first.
func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

// PostgresEventLogger appends to the learning_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, e Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	e, data, err := e.record()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO learning_events (user_id, course_id, event_type, data, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		e.UserID, nullIfEmpty(e.CourseID), string(e.Type), data, e.At,
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

// SQLiteEventLogger appends to the offline learning_events table.
type SQLiteEventLogger struct {
	db *sql.DB
}

func NewSQLiteEventLogger(db *sql.DB) *SQLiteEventLogger {
	return &SQLiteEventLogger{db: db}
}

func (l *SQLiteEventLogger) LogEvent(ctx context.Context, e Event) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("event logger db is nil")
	}
	e, data, err := e.record()
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO learning_events (user_id, course_id, event_type, data, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.UserID, nullIfEmpty(e.CourseID), string(e.Type), data, e.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
