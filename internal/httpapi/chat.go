package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ent0n29/studychat/internal/chat"
	"github.com/ent0n29/studychat/internal/transcript"
)

const (
	msgProcessFailed  = "Failed to process request"
	msgTaskRequired   = "prolific_id required"
	msgNoSession1     = "No Session 1 data found"
	msgTaskLookupFail = "Failed to fetch task type"
)

type chatResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.cors.apply(w, r, chatMethods)

	// Absent fields are coerced later; a missing or unparseable body is not.
	var req chat.TurnRequest
	if err := decodeJSON(r, &req); err != nil {
		s.log.WarnContext(r.Context(), "chat request body invalid", "error", err)
		respondError(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}
	req.RequestID = requestIDFrom(r.Context())

	res, err := s.chat.Turn(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Message: res.Message})
}

type taskResponse struct {
	TaskType string `json:"task_type"`
}

type taskErrorResponse struct {
	Error    string `json:"error"`
	TaskType string `json:"task_type"`
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	s.cors.apply(w, r, getTaskMethods)

	participantID := strings.TrimSpace(r.URL.Query().Get("prolific_id"))
	if participantID == "" {
		respondError(w, http.StatusBadRequest, msgTaskRequired)
		return
	}

	taskType, err := s.chat.SessionOneTaskType(r.Context(), participantID)
	switch {
	case errors.Is(err, transcript.ErrNotFound):
		respondJSON(w, http.StatusNotFound, taskErrorResponse{Error: msgNoSession1, TaskType: "default"})
	case err != nil:
		s.log.ErrorContext(r.Context(), "task type lookup failed", "prolific_id", participantID, "error", err)
		respondError(w, http.StatusInternalServerError, msgTaskLookupFail)
	default:
		respondJSON(w, http.StatusOK, taskResponse{TaskType: string(taskType)})
	}
}
