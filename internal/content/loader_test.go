package content_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

const courseYAML = `id: algebra-1
title: Algebra I
modules:
  - id: M2
    title: Equations
    order: 2
    lessons:
      - id: L3
        title: Solving for x
        order: 1
  - id: M1
    title: Expressions
    order: 1
    lessons:
      - id: L2
        title: Like terms
        order: 2
      - id: L1
        title: Variables
        order: 1
`

const quizYAML = `id: quiz-1
course_id: algebra-1
title: Expressions check
pass_score: 2
questions:
  - id: q2
    order: 2
    text: Pick the like terms
    options:
      - text: 2x and 3x
        isCorrect: true
      - text: 2x and 3y
        isCorrect: false
  - id: q1
    order: 1
    text: What is a variable?
    options: ["A number", "A letter standing for a value", "An operator"]
    correct_answer_index: 1
  - id: q3
    order: 3
    type: short_answer
    text: Simplify x + x
    correct_answer_text: 2x
  - id: q4
    order: 4
    text: Legacy question
    options: "A; B; C"
`

func setupTestContent(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "algebra", "algebra-1.course.yaml"), courseYAML)
	writeFile(t, filepath.Join(dir, "algebra", "quiz-1.quiz.yaml"), quizYAML)
	writeFile(t, filepath.Join(dir, "broken.course.yaml"), "id: [unclosed")
	writeFile(t, filepath.Join(dir, "notes.md"), "# ignored")

	return dir
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_CourseModules(t *testing.T) {
	loader, err := content.NewLoader(setupTestContent(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	modules, err := loader.CourseModules(t.Context(), "algebra-1")
	if err != nil {
		t.Fatalf("CourseModules() error = %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("len(modules) = %d, want 2", len(modules))
	}
	if modules[0].CourseID != "algebra-1" || modules[1].Lessons[0].ModuleID != "M1" {
		t.Errorf("parent ids not filled: %+v", modules)
	}

	tree := curriculum.Build(modules, nil)
	var ids []string
	for _, l := range tree.Sequence {
		ids = append(ids, l.ID)
	}
	if len(ids) != 3 || ids[0] != "L1" || ids[1] != "L2" || ids[2] != "L3" {
		t.Errorf("Sequence = %v, want [L1 L2 L3]", ids)
	}
}

func TestLoader_Course(t *testing.T) {
	loader, err := content.NewLoader(setupTestContent(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	course, err := loader.Course(t.Context(), "algebra-1")
	if err != nil {
		t.Fatalf("Course() error = %v", err)
	}
	if course.Title != "Algebra I" || len(course.ModuleIDs) != 2 {
		t.Errorf("Course() = %+v", course)
	}
	if got := loader.CourseIDs(); len(got) != 1 {
		t.Errorf("CourseIDs() = %v, want only the valid course", got)
	}
}

func TestLoader_NotFound(t *testing.T) {
	loader, err := content.NewLoader(setupTestContent(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	ctx := t.Context()

	if _, err := loader.CourseModules(ctx, "NONEXISTENT"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("CourseModules() error = %v, want ErrNotFound", err)
	}
	if _, err := loader.Quiz(ctx, "NONEXISTENT"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Quiz() error = %v, want ErrNotFound", err)
	}
	if _, err := loader.Questions(ctx, "NONEXISTENT"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Questions() error = %v, want ErrNotFound", err)
	}
}

func TestLoader_Quiz(t *testing.T) {
	loader, err := content.NewLoader(setupTestContent(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	ctx := t.Context()

	q, err := loader.Quiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("Quiz() error = %v", err)
	}
	if q.PassScore == nil || *q.PassScore != 2 || q.CourseID != "algebra-1" {
		t.Errorf("Quiz() = %+v", q)
	}

	questions, err := loader.Questions(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("Questions() error = %v", err)
	}
	if len(questions) != 4 {
		t.Fatalf("len(questions) = %d, want 4", len(questions))
	}

	wantKinds := []quiz.OptionsKind{quiz.KindStrings, quiz.KindObjects, quiz.KindMalformed, quiz.KindMalformed}
	for i, q := range questions {
		if q.OrderInQuiz != i+1 {
			t.Errorf("questions[%d].OrderInQuiz = %d", i, q.OrderInQuiz)
		}
		if q.Options.Kind != wantKinds[i] {
			t.Errorf("questions[%d].Options.Kind = %v, want %v", i, q.Options.Kind, wantKinds[i])
		}
	}
	if questions[0].Type != quiz.MultipleChoice || questions[2].Type != quiz.ShortAnswer {
		t.Errorf("types = %s, %s", questions[0].Type, questions[2].Type)
	}
	if questions[3].Options.Raw != "A; B; C" {
		t.Errorf("legacy Raw = %q", questions[3].Options.Raw)
	}
}

func TestLoader_MissingRoot(t *testing.T) {
	if _, err := content.NewLoader(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("NewLoader() on a missing dir should fail")
	}
}
