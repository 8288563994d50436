package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"graph-investigator/models"
	"graph-investigator/services"
)

// InvestigationHandler handles session and question HTTP requests
type InvestigationHandler struct {
	sessions *services.SessionRegistry
	pipeline *services.InvestigationPipeline
}

// NewInvestigationHandler creates a new investigation handler
func NewInvestigationHandler(sessions *services.SessionRegistry, pipeline *services.InvestigationPipeline) *InvestigationHandler {
	return &InvestigationHandler{
		sessions: sessions,
		pipeline: pipeline,
	}
}

// CreateSession handles POST /api/v1/sessions
func (h *InvestigationHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Create()

	writeJSONResponse(w, http.StatusCreated, models.SessionResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

// AskQuestion handles POST /api/v1/sessions/{id}/questions
func (h *InvestigationHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	if sessionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "session ID is required", "")
		return
	}

	session, err := h.sessions.Get(sessionID)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	var req models.AskQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeErrorResponse(w, http.StatusBadRequest, "question is required", "")
		return
	}

	result, err := h.pipeline.RunTurn(r.Context(), session, req.Question)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// GetHistory handles GET /api/v1/sessions/{id}/history
func (h *InvestigationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	if sessionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "session ID is required", "")
		return
	}

	session, err := h.sessions.Get(sessionID)
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.HistoryResponse{
		SessionID: session.ID,
		Turns:     session.History(),
	})
}
