// Package content loads courses and quizzes, from YAML files in offline
// mode or from PostgreSQL.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

const (
	courseSuffix = ".course.yaml"
	quizSuffix   = ".quiz.yaml"
)

type courseFile struct {
	ID      string              `yaml:"id"`
	Title   string              `yaml:"title"`
	Modules []curriculum.Module `yaml:"modules"`
}

type quizFile struct {
	ID        string         `yaml:"id"`
	CourseID  string         `yaml:"course_id"`
	Title     string         `yaml:"title"`
	PassScore *int           `yaml:"pass_score"`
	Questions []questionFile `yaml:"questions"`
}

type questionFile struct {
	ID                 string `yaml:"id"`
	Order              int    `yaml:"order"`
	Text               string `yaml:"text"`
	Type               string `yaml:"type"`
	Options            any    `yaml:"options"`
	CorrectAnswerIndex *int   `yaml:"correct_answer_index"`
	CorrectAnswerText  string `yaml:"correct_answer_text"`
}

// Loader loads and caches course and quiz content from the filesystem.
type Loader struct {
	rootDir   string
	courses   map[string]courseFile
	quizzes   map[string]quiz.Quiz
	questions map[string][]quiz.Question
	mu        sync.RWMutex
}

// NewLoader creates a new content loader and loads all content.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:   rootDir,
		courses:   make(map[string]courseFile),
		quizzes:   make(map[string]quiz.Quiz),
		questions: make(map[string][]quiz.Question),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}

	slog.Info("content loaded", "courses", len(l.courses), "quizzes", len(l.quizzes))
	return l, nil
}

// Course returns a course by ID with its module ids in file order.
func (l *Loader) Course(_ context.Context, courseID string) (curriculum.Course, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.courses[courseID]
	if !ok {
		return curriculum.Course{}, fmt.Errorf("course %s: %w", courseID, database.ErrNotFound)
	}
	course := curriculum.Course{ID: c.ID, Title: c.Title, ModuleIDs: make([]string, 0, len(c.Modules))}
	for _, m := range c.Modules {
		course.ModuleIDs = append(course.ModuleIDs, m.ID)
	}
	return course, nil
}

// CourseModules returns a copy of the course's modules in file order.
func (l *Loader) CourseModules(_ context.Context, courseID string) ([]curriculum.Module, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.courses[courseID]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, database.ErrNotFound)
	}
	modules := make([]curriculum.Module, len(c.Modules))
	for i, m := range c.Modules {
		m.Lessons = append([]curriculum.Lesson(nil), m.Lessons...)
		modules[i] = m
	}
	return modules, nil
}

// Quiz returns a quiz by ID.
func (l *Loader) Quiz(_ context.Context, quizID string) (quiz.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	q, ok := l.quizzes[quizID]
	if !ok {
		return quiz.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, database.ErrNotFound)
	}
	return q, nil
}

// Questions returns a quiz's questions ordered by OrderInQuiz.
func (l *Loader) Questions(_ context.Context, quizID string) ([]quiz.Question, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	qs, ok := l.questions[quizID]
	if !ok {
		return nil, fmt.Errorf("quiz %s: %w", quizID, database.ErrNotFound)
	}
	return append([]quiz.Question(nil), qs...), nil
}

// CourseIDs returns the ids of all loaded courses.
func (l *Loader) CourseIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.courses))
	for id := range l.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// QuizIDs returns the ids of all loaded quizzes.
func (l *Loader) QuizIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.quizzes))
	for id := range l.quizzes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Loader) loadAll() error {
	if _, err := os.Stat(l.rootDir); err != nil {
		return err
	}
	return filepath.WalkDir(l.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, courseSuffix):
			return l.loadCourse(path)
		case strings.HasSuffix(path, quizSuffix):
			return l.loadQuiz(path)
		}
		return nil
	})
}

func (l *Loader) loadCourse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var c courseFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}
	if c.ID == "" {
		slog.Warn("skipping course without id", "path", path)
		return nil
	}

	for i := range c.Modules {
		c.Modules[i].CourseID = c.ID
		for j := range c.Modules[i].Lessons {
			c.Modules[i].Lessons[j].ModuleID = c.Modules[i].ID
		}
	}

	l.mu.Lock()
	l.courses[c.ID] = c
	l.mu.Unlock()

	return nil
}

func (l *Loader) loadQuiz(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f quizFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid quiz YAML", "path", path, "error", err)
		return nil
	}
	if f.ID == "" {
		slog.Warn("skipping quiz without id", "path", path)
		return nil
	}

	questions := make([]quiz.Question, 0, len(f.Questions))
	for _, qf := range f.Questions {
		qtype := quiz.QuestionType(qf.Type)
		if qtype == "" {
			qtype = quiz.MultipleChoice
		}
		questions = append(questions, quiz.Question{
			ID:                 qf.ID,
			QuizID:             f.ID,
			OrderInQuiz:        qf.Order,
			Text:               qf.Text,
			Type:               qtype,
			Options:            yamlOptions(qf.Options),
			CorrectAnswerIndex: qf.CorrectAnswerIndex,
			CorrectAnswerText:  qf.CorrectAnswerText,
		})
	}
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderInQuiz < questions[j].OrderInQuiz
	})

	l.mu.Lock()
	l.quizzes[f.ID] = quiz.Quiz{ID: f.ID, CourseID: f.CourseID, Title: f.Title, PassScore: f.PassScore}
	l.questions[f.ID] = questions
	l.mu.Unlock()

	return nil
}

// yamlOptions re-encodes decoded YAML as JSON so both stores share one
// parser. A YAML string is passed through as a stored JSON string would be.
func yamlOptions(v any) quiz.RawOptions {
	if v == nil {
		return quiz.ParseRawOptions(nil)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return quiz.RawOptions{Kind: quiz.KindMalformed, Raw: fmt.Sprint(v)}
	}
	return quiz.ParseRawOptions(data)
}
