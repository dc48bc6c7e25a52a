package learner_test

import (
	"context"
	"testing"
	"time"

	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/platform/database/dbtest"
)

func TestMemoryEventLogger(t *testing.T) {
	logger := learner.NewMemoryEventLogger()
	ctx := context.Background()

	err := logger.LogEvent(ctx, learner.Event{
		UserID:   "user-1",
		CourseID: "course-1",
		Type:     learner.EventLessonCompleted,
		Data:     map[string]any{"lesson_id": "L1"},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Type != learner.EventLessonCompleted {
		t.Errorf("Type = %q, want lesson_completed", events[0].Type)
	}
	if events[0].At.IsZero() {
		t.Error("At should default to now")
	}

	events[0].UserID = "changed"
	if logger.Events()[0].UserID != "user-1" {
		t.Error("Events() should return a copy")
	}
}

func TestEventLoggers_RejectIncompleteEvents(t *testing.T) {
	loggers := map[string]learner.EventLogger{
		"memory": learner.NewMemoryEventLogger(),
		"sqlite": learner.NewSQLiteEventLogger(dbtest.SQLite(t)),
	}

	tests := []struct {
		name  string
		event learner.Event
	}{
		{"missing type", learner.Event{UserID: "user-1"}},
		{"missing user", learner.Event{Type: learner.EventQuizSubmitted}},
	}

	for name, logger := range loggers {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				if err := logger.LogEvent(context.Background(), tt.event); err == nil {
					t.Fatal("LogEvent() should fail")
				}
			})
		}
	}
}

func TestSQLiteEventLogger(t *testing.T) {
	db := dbtest.SQLite(t)
	logger := learner.NewSQLiteEventLogger(db)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	err := logger.LogEvent(context.Background(), learner.Event{
		UserID: "user-1",
		Type:   learner.EventQuizSubmitted,
		Data:   map[string]any{"quiz_id": "quiz-1", "score": 2},
		At:     at,
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	var (
		courseID  *string
		typ, data string
		created   int64
	)
	row := db.QueryRow(`SELECT course_id, event_type, data, created_at FROM learning_events`)
	if err := row.Scan(&courseID, &typ, &data, &created); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if courseID != nil {
		t.Errorf("course_id = %q, want NULL", *courseID)
	}
	if typ != "quiz_submitted" {
		t.Errorf("event_type = %q", typ)
	}
	if data != `{"quiz_id":"quiz-1","score":2}` {
		t.Errorf("data = %s", data)
	}
	if created != at.UnixNano() {
		t.Errorf("created_at = %d, want %d", created, at.UnixNano())
	}
}

func TestEventLoggers_NilBackends(t *testing.T) {
	event := learner.Event{UserID: "user-1", Type: learner.EventQuizSubmitted}

	if err := learner.NewPostgresEventLogger(nil).LogEvent(context.Background(), event); err == nil {
		t.Error("postgres: expected error for nil pool")
	}
	if err := learner.NewSQLiteEventLogger(nil).LogEvent(context.Background(), event); err == nil {
		t.Error("sqlite: expected error for nil db")
	}
}

func TestPostgresEventLogger(t *testing.T) {
	db := dbtest.Postgres(t)
	logger := learner.NewPostgresEventLogger(db.Pool)
	ctx := context.Background()

	err := logger.LogEvent(ctx, learner.Event{
		UserID:   "user-1",
		CourseID: "course-1",
		Type:     learner.EventCourseCompleted,
		Data:     map[string]any{"lessons": 3},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	var lessons int
	err = db.Pool.QueryRow(ctx,
		`SELECT (data->>'lessons')::int FROM learning_events WHERE user_id = $1 AND event_type = $2`,
		"user-1", "course_completed",
	).Scan(&lessons)
	if err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if lessons != 3 {
		t.Errorf("lessons = %d, want 3", lessons)
	}
}
