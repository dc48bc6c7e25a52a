package content

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

const dbTimeout = 5 * time.Second

// PostgresStore reads course and quiz content from PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed content store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Course(ctx context.Context, courseID string) (curriculum.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c := curriculum.Course{ID: courseID, ModuleIDs: []string{}}
	if err := s.pool.QueryRow(ctx,
		`SELECT title FROM courses WHERE id = $1`, courseID,
	).Scan(&c.Title); err != nil {
		return curriculum.Course{}, fmt.Errorf("get course %s: %w", courseID, database.Classify(err))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id FROM modules WHERE course_id = $1 ORDER BY order_in_course ASC, id ASC`, courseID)
	if err != nil {
		return curriculum.Course{}, fmt.Errorf("query modules: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return curriculum.Course{}, fmt.Errorf("collect modules: %w", err)
	}
	c.ModuleIDs = append(c.ModuleIDs, ids...)
	return c, nil
}

// CourseModules returns modules ordered by order_in_course with their
// lessons ordered by order_in_module.
func (s *PostgresStore) CourseModules(ctx context.Context, courseID string) ([]curriculum.Module, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, courseID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check course: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("course %s: %w", courseID, database.ErrNotFound)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, course_id, title, order_in_course
		 FROM modules WHERE course_id = $1
		 ORDER BY order_in_course ASC, id ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	modules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (curriculum.Module, error) {
		var m curriculum.Module
		err := row.Scan(&m.ID, &m.CourseID, &m.Title, &m.OrderInCourse)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect modules: %w", err)
	}

	byID := make(map[string]int, len(modules))
	for i, m := range modules {
		byID[m.ID] = i
	}

	rows, err = s.pool.Query(ctx,
		`SELECT l.id, l.module_id, l.title, l.order_in_module
		 FROM lessons l
		 JOIN modules m ON m.id = l.module_id
		 WHERE m.course_id = $1
		 ORDER BY l.order_in_module ASC, l.id ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	lessons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (curriculum.Lesson, error) {
		var l curriculum.Lesson
		err := row.Scan(&l.ID, &l.ModuleID, &l.Title, &l.OrderInModule)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect lessons: %w", err)
	}

	for _, l := range lessons {
		i := byID[l.ModuleID]
		modules[i].Lessons = append(modules[i].Lessons, l)
	}
	return modules, nil
}

func (s *PostgresStore) Quiz(ctx context.Context, quizID string) (quiz.Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		q        quiz.Quiz
		courseID *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, course_id, title, pass_score FROM quizzes WHERE id = $1`, quizID,
	).Scan(&q.ID, &courseID, &q.Title, &q.PassScore)
	if err != nil {
		return quiz.Quiz{}, fmt.Errorf("get quiz %s: %w", quizID, database.Classify(err))
	}
	if courseID != nil {
		q.CourseID = *courseID
	}
	return q, nil
}

// Questions returns the quiz's questions ordered by order_in_quiz. The raw
// options column is parsed here, at the storage boundary.
func (s *PostgresStore) Questions(ctx context.Context, quizID string) ([]quiz.Question, error) {
	if _, err := s.Quiz(ctx, quizID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, order_in_quiz, question_text, question_type,
		        options, correct_answer_index, correct_answer_text
		 FROM quiz_questions
		 WHERE quiz_id = $1
		 ORDER BY order_in_quiz ASC, id ASC`,
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	questions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (quiz.Question, error) {
		var (
			q           quiz.Question
			qtype       string
			options     []byte
			correctText *string
		)
		if err := row.Scan(&q.ID, &q.QuizID, &q.OrderInQuiz, &q.Text, &qtype,
			&options, &q.CorrectAnswerIndex, &correctText); err != nil {
			return quiz.Question{}, err
		}
		q.Type = quiz.QuestionType(qtype)
		q.Options = quiz.ParseRawOptions(options)
		if correctText != nil {
			q.CorrectAnswerText = *correctText
		}
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}
	return questions, nil
}

// Import writes every course and quiz from the loader in one transaction,
// replacing rows with the same ids.
func (s *PostgresStore) Import(ctx context.Context, l *Loader) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, id := range l.CourseIDs() {
		course, err := l.Course(ctx, id)
		if err != nil {
			return err
		}
		modules, err := l.CourseModules(ctx, id)
		if err != nil {
			return err
		}
		if err := importCourse(ctx, tx, course, modules); err != nil {
			return err
		}
	}

	for _, id := range l.QuizIDs() {
		q, err := l.Quiz(ctx, id)
		if err != nil {
			return err
		}
		questions, err := l.Questions(ctx, id)
		if err != nil {
			return err
		}
		if err := importQuiz(ctx, tx, q, questions); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func importCourse(ctx context.Context, tx pgx.Tx, c curriculum.Course, modules []curriculum.Module) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO courses (id, title) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title`,
		c.ID, c.Title,
	); err != nil {
		return fmt.Errorf("import course %s: %w", c.ID, err)
	}

	for _, m := range modules {
		if _, err := tx.Exec(ctx,
			`INSERT INTO modules (id, course_id, title, order_in_course) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET course_id = EXCLUDED.course_id,
			   title = EXCLUDED.title, order_in_course = EXCLUDED.order_in_course`,
			m.ID, c.ID, m.Title, m.OrderInCourse,
		); err != nil {
			return fmt.Errorf("import module %s: %w", m.ID, err)
		}
		for _, l := range m.Lessons {
			if _, err := tx.Exec(ctx,
				`INSERT INTO lessons (id, module_id, title, order_in_module) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (id) DO UPDATE SET module_id = EXCLUDED.module_id,
				   title = EXCLUDED.title, order_in_module = EXCLUDED.order_in_module`,
				l.ID, m.ID, l.Title, l.OrderInModule,
			); err != nil {
				return fmt.Errorf("import lesson %s: %w", l.ID, err)
			}
		}
	}
	return nil
}

func importQuiz(ctx context.Context, tx pgx.Tx, q quiz.Quiz, questions []quiz.Question) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO quizzes (id, course_id, title, pass_score) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET course_id = EXCLUDED.course_id,
		   title = EXCLUDED.title, pass_score = EXCLUDED.pass_score`,
		q.ID, nullIfEmpty(q.CourseID), q.Title, q.PassScore,
	); err != nil {
		return fmt.Errorf("import quiz %s: %w", q.ID, err)
	}

	for _, qq := range questions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO quiz_questions (id, quiz_id, order_in_quiz, question_text, question_type,
			   options, correct_answer_index, correct_answer_text)
			 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET quiz_id = EXCLUDED.quiz_id,
			   order_in_quiz = EXCLUDED.order_in_quiz, question_text = EXCLUDED.question_text,
			   question_type = EXCLUDED.question_type, options = EXCLUDED.options,
			   correct_answer_index = EXCLUDED.correct_answer_index,
			   correct_answer_text = EXCLUDED.correct_answer_text`,
			qq.ID, q.ID, qq.OrderInQuiz, qq.Text, string(qq.Type),
			jsonText(qq.Options), qq.CorrectAnswerIndex, nullIfEmpty(qq.CorrectAnswerText),
		); err != nil {
			return fmt.Errorf("import question %s: %w", qq.ID, err)
		}
	}
	return nil
}

func jsonText(o quiz.RawOptions) any {
	data := o.JSON()
	if data == nil {
		return nil
	}
	return string(data)
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
