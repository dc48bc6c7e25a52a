package database

// Order columns carry no unique constraint: authoring tools can produce
// ties, which the curriculum builder resolves by fetch order.
const schemaPostgres = `
CREATE TABLE IF NOT EXISTS courses (
  id    TEXT PRIMARY KEY,
  title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS modules (
  id              TEXT PRIMARY KEY,
  course_id       TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  title           TEXT NOT NULL,
  order_in_course INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS modules_course_idx ON modules (course_id, order_in_course);

CREATE TABLE IF NOT EXISTS lessons (
  id              TEXT PRIMARY KEY,
  module_id       TEXT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
  title           TEXT NOT NULL,
  order_in_module INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS lessons_module_idx ON lessons (module_id, order_in_module);

CREATE TABLE IF NOT EXISTS quizzes (
  id         TEXT PRIMARY KEY,
  course_id  TEXT REFERENCES courses(id) ON DELETE SET NULL,
  title      TEXT NOT NULL,
  pass_score INTEGER
);

CREATE TABLE IF NOT EXISTS quiz_questions (
  id                   TEXT PRIMARY KEY,
  quiz_id              TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  order_in_quiz        INTEGER NOT NULL DEFAULT 0,
  question_text        TEXT NOT NULL,
  question_type        TEXT NOT NULL DEFAULT 'multiple_choice',
  options              JSONB,
  correct_answer_index INTEGER,
  correct_answer_text  TEXT
);
CREATE INDEX IF NOT EXISTS quiz_questions_quiz_idx ON quiz_questions (quiz_id, order_in_quiz);

CREATE TABLE IF NOT EXISTS lesson_completions (
  user_id      TEXT NOT NULL,
  course_id    TEXT NOT NULL,
  lesson_id    TEXT NOT NULL,
  completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (user_id, lesson_id)
);
CREATE INDEX IF NOT EXISTS lesson_completions_course_idx ON lesson_completions (user_id, course_id);

CREATE TABLE IF NOT EXISTS course_progress (
  user_id                 TEXT NOT NULL,
  course_id               TEXT NOT NULL,
  completed_lessons_count INTEGER NOT NULL DEFAULT 0,
  progress_percentage     DOUBLE PRECISION NOT NULL DEFAULT 0,
  is_completed            BOOLEAN NOT NULL DEFAULT FALSE,
  started_at              TIMESTAMPTZ NOT NULL,
  last_accessed_at        TIMESTAMPTZ NOT NULL,
  completed_at            TIMESTAMPTZ,
  PRIMARY KEY (user_id, course_id)
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id              TEXT PRIMARY KEY,
  user_id         TEXT NOT NULL,
  quiz_id         TEXT NOT NULL,
  score_obtained  INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  is_passed       BOOLEAN NOT NULL,
  attempted_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS quiz_attempts_user_quiz_idx ON quiz_attempts (user_id, quiz_id, attempted_at);

CREATE TABLE IF NOT EXISTS learning_events (
  id         BIGSERIAL PRIMARY KEY,
  user_id    TEXT NOT NULL,
  course_id  TEXT,
  event_type TEXT NOT NULL,
  data       JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Offline mode keeps content in YAML; only learner state lives in SQLite.
// Timestamps are stored as unix nanoseconds.
const schemaSQLite = `
CREATE TABLE IF NOT EXISTS lesson_completions (
  user_id      TEXT NOT NULL,
  course_id    TEXT NOT NULL,
  lesson_id    TEXT NOT NULL,
  completed_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, lesson_id)
);
CREATE INDEX IF NOT EXISTS lesson_completions_course_idx ON lesson_completions (user_id, course_id);

CREATE TABLE IF NOT EXISTS course_progress (
  user_id                 TEXT NOT NULL,
  course_id               TEXT NOT NULL,
  completed_lessons_count INTEGER NOT NULL DEFAULT 0,
  progress_percentage     REAL NOT NULL DEFAULT 0,
  is_completed            INTEGER NOT NULL DEFAULT 0,
  started_at              INTEGER NOT NULL,
  last_accessed_at        INTEGER NOT NULL,
  completed_at            INTEGER,
  PRIMARY KEY (user_id, course_id)
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id              TEXT PRIMARY KEY,
  user_id         TEXT NOT NULL,
  quiz_id         TEXT NOT NULL,
  score_obtained  INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  is_passed       INTEGER NOT NULL,
  attempted_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS quiz_attempts_user_quiz_idx ON quiz_attempts (user_id, quiz_id, attempted_at);

CREATE TABLE IF NOT EXISTS learning_events (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id    TEXT NOT NULL,
  course_id  TEXT,
  event_type TEXT NOT NULL,
  data       TEXT NOT NULL DEFAULT '{}',
  created_at INTEGER NOT NULL
);
`
