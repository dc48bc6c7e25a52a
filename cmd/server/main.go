package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-learn/internal/api"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/platform/cache"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := build(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store_mode", cfg.Store.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// app is the wired HTTP handler plus the resources it holds open.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.Offline() {
		return buildOffline(ctx, cfg)
	}
	return buildOnline(ctx, cfg)
}

// buildOffline serves content from the curriculum directory and keeps
// learner state in a local SQLite file.
func buildOffline(ctx context.Context, cfg *config.Config) (*app, error) {
	loader, err := content.NewLoader(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	a := &app{closers: []func(){func() { db.Close() }}}

	progressStore, err := progress.NewSQLiteStore(db)
	if err != nil {
		a.close()
		return nil, err
	}
	attempts, err := quiz.NewSQLiteAttemptStore(db)
	if err != nil {
		a.close()
		return nil, err
	}

	svc := learner.NewService(learner.ServiceConfig{
		Courses:  loader,
		Quizzes:  loader,
		Progress: progressStore,
		Attempts: attempts,
		Guard:    cache.NewMemoryGuard(),
		Events:   learner.NewSQLiteEventLogger(db),
	})
	a.handler = api.New(svc, map[string]api.Check{
		"sqlite": func(ctx context.Context) error { return pingSQL(ctx, db) },
	}).Routes()

	slog.Info("offline mode", "curriculum_path", cfg.CurriculumPath, "sqlite_path", cfg.Store.SQLitePath)
	return a, nil
}

// buildOnline keeps content and learner state in PostgreSQL. Redis, when
// configured, backs the in-flight guard across instances.
func buildOnline(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{closers: []func(){db.Close}}
	checks := map[string]api.Check{"database": db.Ping}

	contentStore, err := content.NewPostgresStore(db.Pool)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := importCurriculum(ctx, contentStore, cfg.CurriculumPath); err != nil {
		a.close()
		return nil, err
	}

	progressStore, err := progress.NewPostgresStore(db.Pool)
	if err != nil {
		a.close()
		return nil, err
	}
	attempts, err := quiz.NewPostgresAttemptStore(db.Pool)
	if err != nil {
		a.close()
		return nil, err
	}

	var guard cache.Guard = cache.NewMemoryGuard()
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL, cfg.Cache.Namespace)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { c.Close() })
		checks["cache"] = c.Ping
		guard = cache.NewRedisGuard(c, cfg.Guard.TTL)
	}

	svc := learner.NewService(learner.ServiceConfig{
		Courses:  contentStore,
		Quizzes:  contentStore,
		Progress: progressStore,
		Attempts: attempts,
		Guard:    guard,
		Events:   learner.NewPostgresEventLogger(db.Pool),
	})
	a.handler = api.New(svc, checks).Routes()
	return a, nil
}

// importCurriculum upserts YAML content into PostgreSQL. A missing
// directory is skipped so content can be managed in the database alone.
func importCurriculum(ctx context.Context, store *content.PostgresStore, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Info("no curriculum directory, skipping import", "path", path)
		return nil
	}

	loader, err := content.NewLoader(path)
	if err != nil {
		return err
	}
	if err := store.Import(ctx, loader); err != nil {
		return err
	}
	slog.Info("curriculum imported", "courses", len(loader.CourseIDs()), "quizzes", len(loader.QuizIDs()))
	return nil
}

func pingSQL(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}
