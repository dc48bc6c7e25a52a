// Package api exposes the learner service over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

const readyTimeout = 2 * time.Second

var errBadBody = errors.New("invalid JSON body")

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Handler serves the learner API.
type Handler struct {
	svc      *learner.Service
	validate *validator.Validate
	checks   map[string]Check
}

// New creates a handler. checks are run by /readyz.
func New(svc *learner.Service, checks map[string]Check) *Handler {
	return &Handler{
		svc:      svc,
		validate: newValidator(),
		checks:   checks,
	}
}

// Routes returns the HTTP router.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)

	mux.HandleFunc("GET /v1/courses/{courseID}", h.handleOpenCourse)
	mux.HandleFunc("POST /v1/courses/{courseID}/lessons/{lessonID}/complete", h.handleCompleteLesson)
	mux.HandleFunc("GET /v1/courses/{courseID}/progress.xlsx", h.handleProgressReport)

	mux.HandleFunc("GET /v1/quizzes/{quizID}", h.handleGetQuiz)
	mux.HandleFunc("POST /v1/quizzes/{quizID}/attempts", h.handleSubmitQuiz)
	mux.HandleFunc("GET /v1/quizzes/{quizID}/attempts.xlsx", h.handleAttemptsReport)
	return mux
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound), errors.Is(err, learner.ErrUnknownLesson):
		return http.StatusNotFound
	case errors.Is(err, learner.ErrInFlight), errors.Is(err, quiz.ErrSubmitInFlight), errors.Is(err, quiz.ErrSubmitted):
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// errorMessage keeps storage details out of responses.
func errorMessage(err error, status int) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" failed "+fe.Tag())
		}
		return strings.Join(fields, ", ")
	}
	if errors.Is(err, errBadBody) {
		return errBadBody.Error()
	}
	switch status {
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return err.Error()
	default:
		return "temporarily unavailable, please retry"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, errorMessage(err, status))
}

// userQuery validates the user_id query parameter.
func (h *Handler) userQuery(r *http.Request) (string, error) {
	q := userRequest{UserID: r.URL.Query().Get("user_id")}
	if err := h.validate.Struct(q); err != nil {
		return "", err
	}
	return q.UserID, nil
}

func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return h.validate.Struct(v)
}
