package api

import (
	"bytes"
	"net/http"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/report"
)

type userRequest struct {
	UserID string `json:"user_id" validate:"required,notblank,max=128"`
}

type completeResponse struct {
	Status string                 `json:"status,omitempty"`
	Next   *curriculum.LessonNode `json:"next"`
	View   learner.CourseView     `json:"view"`
	Error  string                 `json:"error,omitempty"`
}

func (h *Handler) handleOpenCourse(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.svc.OpenCourse(r.Context(), userID, r.PathValue("courseID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.svc.View(r.Context(), req.UserID, r.PathValue("courseID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := h.svc.CompleteLesson(r.Context(), view, r.PathValue("lessonID"))
	if err != nil {
		status := statusFor(err)
		if status < http.StatusInternalServerError {
			writeError(w, status, errorMessage(err, status))
			return
		}
		// Not recorded: send the re-read view so the client stays put.
		writeJSON(w, status, completeResponse{View: out.View, Error: errorMessage(err, status)})
		return
	}

	writeJSON(w, http.StatusOK, completeResponse{
		Status: out.Status.String(),
		Next:   out.Next,
		View:   out.View,
	})
}

func (h *Handler) handleProgressReport(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.CourseProgress(r.Context(), r.PathValue("courseID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteProgress(&buf, records); err != nil {
		h.fail(w, r, err)
		return
	}
	writeWorkbook(w, r.PathValue("courseID")+"-progress.xlsx", buf.Bytes())
}

func writeWorkbook(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
