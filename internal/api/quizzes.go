package api

import (
	"bytes"
	"net/http"

	"github.com/p-n-ai/pai-learn/internal/quiz"
	"github.com/p-n-ai/pai-learn/internal/report"
)

type questionView struct {
	quiz.Question
	Options []quiz.CanonicalOption `json:"options"`
}

type quizResponse struct {
	Quiz      quiz.Quiz      `json:"quiz"`
	Questions []questionView `json:"questions"`
	Attempts  []quiz.Attempt `json:"attempts,omitempty"`
}

type submitRequest struct {
	UserID  string                 `json:"user_id" validate:"required,notblank,max=128"`
	Answers map[string]quiz.Answer `json:"answers"`
}

type submitResponse struct {
	quiz.Result
	IsPassed bool         `json:"is_passed"`
	Attempt  quiz.Attempt `json:"attempt"`
	Warnings []string     `json:"warnings,omitempty"`
}

// handleGetQuiz returns questions with canonical options. Correctness is
// never serialized.
func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("quizID")
	q, questions, err := h.svc.Quiz(r.Context(), quizID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := quizResponse{Quiz: q, Questions: make([]questionView, 0, len(questions))}
	for _, qq := range questions {
		resp.Questions = append(resp.Questions, questionView{Question: qq, Options: quiz.NormalizeOptions(qq)})
	}

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		attempts, err := h.svc.Attempts(r.Context(), userID, quizID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.Attempts = attempts
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	session := quiz.NewSession(req.UserID, r.PathValue("quizID"))
	for questionID, a := range req.Answers {
		if err := session.Answer(questionID, a); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	out, err := h.svc.SubmitQuiz(r.Context(), session)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Result:   out.Submission.Result,
		IsPassed: out.Submission.IsPassed,
		Attempt:  out.Submission.Attempt,
		Warnings: out.Warnings,
	})
}

func (h *Handler) handleAttemptsReport(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q, _, err := h.svc.Quiz(r.Context(), r.PathValue("quizID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	attempts, err := h.svc.Attempts(r.Context(), userID, q.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteAttempts(&buf, q.Title, attempts); err != nil {
		h.fail(w, r, err)
		return
	}
	writeWorkbook(w, q.ID+"-attempts.xlsx", buf.Bytes())
}
