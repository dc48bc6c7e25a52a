// Package learner runs the learner-facing flows: opening a course,
// completing lessons and submitting quizzes.
package learner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/platform/cache"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

var (
	// ErrInFlight is returned when the same action for the same learner is
	// already running. The duplicate is dropped without touching storage.
	ErrInFlight = errors.New("action already in flight")
	// ErrUnknownLesson is returned for a lesson that is not in the course.
	ErrUnknownLesson = errors.New("lesson not in course")
)

// ServiceConfig holds dependencies for the learner service.
type ServiceConfig struct {
	Courses  curriculum.Source
	Quizzes  quiz.Source
	Progress progress.Store
	Attempts quiz.AttemptStore
	Guard    cache.Guard
	Events   EventLogger
	Now      func() time.Time
}

// Service orchestrates the engine components for one learner at a time.
type Service struct {
	courses    curriculum.Source
	quizzes    quiz.Source
	progress   progress.Store
	aggregator *progress.Aggregator
	tracker    *progress.Tracker
	grader     *quiz.Service
	guard      cache.Guard
	events     EventLogger
	now        func() time.Time
}

// NewService creates a learner service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Progress
	if store == nil {
		store = progress.NewMemoryStore()
	}
	attempts := cfg.Attempts
	if attempts == nil {
		attempts = quiz.NewMemoryAttemptStore()
	}
	guard := cfg.Guard
	if guard == nil {
		guard = cache.NewMemoryGuard()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	aggregator := progress.NewAggregator(store, progress.WithClock(now))
	return &Service{
		courses:    cfg.Courses,
		quizzes:    cfg.Quizzes,
		progress:   store,
		aggregator: aggregator,
		tracker:    progress.NewTracker(store, aggregator),
		grader:     quiz.NewService(attempts, quiz.WithClock(now)),
		guard:      guard,
		events:     events,
		now:        now,
	}
}

// CourseView is a learner's snapshot of a course. It is replaced, not
// modified, when completion changes.
type CourseView struct {
	UserID    string                   `json:"user_id"`
	Course    curriculum.Course        `json:"course"`
	Tree      curriculum.Tree          `json:"tree"`
	Progress  *progress.CourseProgress `json:"progress,omitempty"`
	Warnings  []string                 `json:"warnings,omitempty"`
	Completed progress.CompletionSet   `json:"-"`

	modules []curriculum.Module
}

func (v CourseView) rebuild(completed progress.CompletionSet) CourseView {
	next := v
	next.Completed = completed
	next.Tree = curriculum.Build(v.modules, completed)
	next.Warnings = nil
	return next
}

// View loads a course for userID without recording a visit. Content or
// completion fetch failures are returned as errors.
func (s *Service) View(ctx context.Context, userID, courseID string) (CourseView, error) {
	if userID == "" || courseID == "" {
		return CourseView{}, fmt.Errorf("user_id and course_id are required")
	}

	course, err := s.courses.Course(ctx, courseID)
	if err != nil {
		return CourseView{}, fmt.Errorf("load course: %w", err)
	}
	modules, err := s.courses.CourseModules(ctx, courseID)
	if err != nil {
		return CourseView{}, fmt.Errorf("load modules: %w", err)
	}

	view := CourseView{UserID: userID, Course: course, modules: modules}
	if err := s.refresh(ctx, &view); err != nil {
		return CourseView{}, err
	}

	p, err := s.progress.CourseProgress(ctx, userID, courseID)
	if err == nil {
		view.Progress = &p
	}
	return view, nil
}

// OpenCourse loads a course and records the visit on the progress record.
// A failed progress write is reported as a warning.
func (s *Service) OpenCourse(ctx context.Context, userID, courseID string) (CourseView, error) {
	view, err := s.View(ctx, userID, courseID)
	if err != nil {
		return CourseView{}, err
	}

	p, err := s.aggregator.Touch(ctx, userID, courseID, view.Completed.Len(), view.Tree.TotalLessons())
	if err != nil {
		slog.Warn("failed to record course visit",
			"user_id", userID,
			"course_id", courseID,
			"error", err,
		)
		view.Warnings = append(view.Warnings, "progress could not be saved")
		return view, nil
	}
	view.Progress = &p
	return view, nil
}

// Reconcile re-reads the learner's completions and rebuilds the view.
func (s *Service) Reconcile(ctx context.Context, view CourseView) (CourseView, error) {
	next := view
	if err := s.refresh(ctx, &next); err != nil {
		return view, err
	}
	return next, nil
}

// refresh loads completions for the view's course and rebuilds its tree.
// Completions for lessons no longer in the course are ignored.
func (s *Service) refresh(ctx context.Context, view *CourseView) error {
	ids, err := s.progress.CompletedLessons(ctx, view.UserID, view.Course.ID)
	if err != nil {
		return fmt.Errorf("load completions: %w", err)
	}

	all := curriculum.Build(view.modules, nil)
	known := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := all.Lesson(id); ok {
			known = append(known, id)
		}
	}
	*view = view.rebuild(progress.NewCompletionSet(known...))
	return nil
}

// CompletionOutcome is the result of completing a lesson.
type CompletionOutcome struct {
	View   CourseView             `json:"view"`
	Next   *curriculum.LessonNode `json:"next,omitempty"`
	Status progress.Status        `json:"-"`
}

// CompleteLesson marks lessonID complete and returns the rebuilt view with
// the lesson to navigate to. A concurrent duplicate for the same learner
// and course returns ErrInFlight.
//
// When the completion cannot be written the returned error is blocking;
// the outcome then carries a view re-read from storage and no Next.
func (s *Service) CompleteLesson(ctx context.Context, view CourseView, lessonID string) (CompletionOutcome, error) {
	if _, ok := view.Tree.Lesson(lessonID); !ok {
		return CompletionOutcome{View: view}, fmt.Errorf("%s: %w", lessonID, ErrUnknownLesson)
	}

	release, err := s.acquire(ctx, "complete:"+view.UserID+":"+view.Course.ID)
	if err != nil {
		return CompletionOutcome{View: view}, err
	}
	defer release()

	res, err := s.tracker.MarkComplete(ctx, view.UserID, view.Course.ID, lessonID, view.Completed, view.Tree.TotalLessons())
	if err != nil {
		slog.Error("failed to complete lesson",
			"user_id", view.UserID,
			"course_id", view.Course.ID,
			"lesson_id", lessonID,
			"error", err,
		)
		fresh, rerr := s.Reconcile(ctx, view)
		if rerr != nil {
			slog.Warn("reconcile after failed completion failed",
				"user_id", view.UserID,
				"course_id", view.Course.ID,
				"error", rerr,
			)
		}
		return CompletionOutcome{View: fresh}, err
	}

	next := view.rebuild(res.Completed)
	if res.ProgressErr == nil {
		next.Progress = &res.Progress
	} else {
		next.Warnings = append(next.Warnings, "progress could not be saved")
	}

	out := CompletionOutcome{View: next, Status: res.Status}
	if n, ok := next.Tree.Next(lessonID); ok {
		out.Next = &n
	}

	if res.Status == progress.Recorded {
		s.logEvent(ctx, Event{
			UserID:   view.UserID,
			CourseID: view.Course.ID,
			Type:     EventLessonCompleted,
			Data:     map[string]any{"lesson_id": lessonID},
		})
	}
	wasCompleted := view.Progress != nil && view.Progress.IsCompleted
	if res.ProgressErr == nil && res.Progress.IsCompleted && !wasCompleted {
		s.logEvent(ctx, Event{
			UserID:   view.UserID,
			CourseID: view.Course.ID,
			Type:     EventCourseCompleted,
			Data:     map[string]any{"lessons": res.Progress.CompletedLessonsCount},
		})
	}
	return out, nil
}

// QuizOutcome is the result of a quiz submission.
type QuizOutcome struct {
	Quiz       quiz.Quiz
	Submission quiz.Submission
	Warnings   []string
}

// SubmitQuiz grades the session's answers and records the attempt. Failing
// to load the quiz is blocking; failing to record the attempt is a warning.
func (s *Service) SubmitQuiz(ctx context.Context, session *quiz.Session) (QuizOutcome, error) {
	answers, err := session.Begin()
	if err != nil {
		return QuizOutcome{}, err
	}

	var sub *quiz.Submission
	defer func() { session.End(sub) }()

	release, err := s.acquire(ctx, "quiz:"+session.UserID+":"+session.QuizID)
	if err != nil {
		return QuizOutcome{}, err
	}
	defer release()

	q, err := s.quizzes.Quiz(ctx, session.QuizID)
	if err != nil {
		return QuizOutcome{}, fmt.Errorf("load quiz: %w", err)
	}
	questions, err := s.quizzes.Questions(ctx, session.QuizID)
	if err != nil {
		return QuizOutcome{}, fmt.Errorf("load questions: %w", err)
	}

	graded, err := s.grader.Submit(ctx, session.UserID, q, questions, answers)
	if err != nil {
		return QuizOutcome{}, err
	}
	sub = &graded

	out := QuizOutcome{Quiz: q, Submission: graded}
	if graded.AttemptErr != nil {
		out.Warnings = append(out.Warnings, "attempt could not be saved")
	}

	s.logEvent(ctx, Event{
		UserID:   session.UserID,
		CourseID: q.CourseID,
		Type:     EventQuizSubmitted,
		Data: map[string]any{
			"quiz_id": q.ID,
			"score":   graded.Result.Score,
			"total":   graded.Result.Total,
			"passed":  graded.IsPassed,
		},
	})
	return out, nil
}

// Quiz loads a quiz with its questions for display.
func (s *Service) Quiz(ctx context.Context, quizID string) (quiz.Quiz, []quiz.Question, error) {
	q, err := s.quizzes.Quiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, nil, fmt.Errorf("load quiz: %w", err)
	}
	questions, err := s.quizzes.Questions(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, nil, fmt.Errorf("load questions: %w", err)
	}
	return q, questions, nil
}

// Attempts lists a learner's attempts at a quiz, oldest first.
func (s *Service) Attempts(ctx context.Context, userID, quizID string) ([]quiz.Attempt, error) {
	return s.grader.Attempts(ctx, userID, quizID)
}

// CourseProgress lists every learner's progress record for a course.
func (s *Service) CourseProgress(ctx context.Context, courseID string) ([]progress.CourseProgress, error) {
	return s.progress.CourseProgressList(ctx, courseID)
}

// acquire takes the in-flight guard for key. A guard backend failure does
// not block the learner; duplicates are then caught by the stores.
func (s *Service) acquire(ctx context.Context, key string) (func(), error) {
	release, ok, err := s.guard.Acquire(ctx, key)
	if err != nil {
		slog.Warn("in-flight guard unavailable", "key", key, "error", err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrInFlight
	}
	return release, nil
}

func (s *Service) logEvent(ctx context.Context, e Event) {
	e.At = s.now()
	if err := s.events.LogEvent(ctx, e); err != nil {
		slog.Warn("failed to log event", "type", e.Type, "user_id", e.UserID, "error", err)
	}
}
