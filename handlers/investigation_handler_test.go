package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-investigator/models"
	"graph-investigator/services"
)

func testSchemaView() *models.SchemaView {
	return &models.SchemaView{
		Entities: []models.EntityKind{
			{Name: "Claim", Description: "Insurance claim record"},
		},
		Relationships: []models.RelationshipKind{
			{Type: "TREATED_AT", Source: "Claim", Target: "Provider"},
		},
	}
}

func testRouter(t *testing.T, generation services.GenerationService, store services.GraphStore) (*mux.Router, *services.SessionRegistry) {
	t.Helper()
	logger := services.NewStructuredLogger(services.LogLevelError, nil)
	prompts := services.DefaultPromptSet()
	schema := services.NewSchemaProvider(testSchemaView(), store, logger, false)

	pipeline := services.NewInvestigationPipeline(
		services.NewComplexityClassifier(),
		schema,
		services.NewInvestigationPlanner(generation, prompts, logger, 0.2),
		services.NewQueryGenerator(generation, prompts, logger, 0.0, 50, 2),
		services.NewQueryExecutor(store, generation, prompts, logger, nil, 50, 300),
		services.NewVisualizationEnricher(store, logger, 5, 30),
		services.NewSynthesizer(generation, prompts, logger, 0.3, 15, 3),
		nil,
		nil,
		logger,
		5,
	)

	sessions := services.NewSessionRegistry()
	handler := NewInvestigationHandler(sessions, pipeline)
	schemaHandler := NewSchemaHandler(schema)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", handler.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}/questions", handler.AskQuestion).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", handler.GetHistory).Methods("GET")
	api.HandleFunc("/schema", schemaHandler.GetSchema).Methods("GET")
	api.HandleFunc("/questions/suggested", schemaHandler.GetSuggestedQuestions).Methods("GET")

	return router, sessions
}

func stagedGeneration() *services.MockGenerationService {
	return &services.MockGenerationService{
		CompleteFunc: func(ctx context.Context, system, user string, temp float64) (string, error) {
			switch {
			case strings.Contains(system, "planning an investigation"):
				return "Anchor on Claim, fetch directly.", nil
			case strings.Contains(system, "translate an investigation plan"):
				return "MATCH (c:Claim) RETURN c LIMIT 50", nil
			default:
				return "One open claim found.\n\nFOLLOW-UP QUESTIONS:\n- Who filed it?", nil
			}
		},
	}
}

func TestInvestigationHandler_CreateSession(t *testing.T) {
	router, _ := testRouter(t, stagedGeneration(), &services.MockGraphStore{})

	req := httptest.NewRequest("POST", "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.SessionID)
}

func TestInvestigationHandler_AskQuestion(t *testing.T) {
	router, sessions := testRouter(t, stagedGeneration(), &services.MockGraphStore{})
	session := sessions.Create()

	body, _ := json.Marshal(models.AskQuestionRequest{Question: "What is the status of claim C_S1_001?"})
	req := httptest.NewRequest("POST", "/api/v1/sessions/"+session.ID+"/questions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result models.TurnResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, session.ID, result.SessionID)
	assert.Equal(t, "One open claim found.", result.Answer.Narrative)
	require.Len(t, result.Answer.FollowUps, 1)
	assert.Len(t, result.ExecutedQueries, 1)
}

func TestInvestigationHandler_AskQuestionValidation(t *testing.T) {
	router, sessions := testRouter(t, stagedGeneration(), &services.MockGraphStore{})
	session := sessions.Create()

	tests := []struct {
		name           string
		sessionID      string
		body           string
		expectedStatus int
	}{
		{
			name:           "unknown session",
			sessionID:      "no-such-session",
			body:           `{"question":"anything"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "malformed body",
			sessionID:      session.ID,
			body:           `{"question":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "blank question",
			sessionID:      session.ID,
			body:           `{"question":"   "}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/sessions/"+tt.sessionID+"/questions", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestInvestigationHandler_GetHistory(t *testing.T) {
	router, sessions := testRouter(t, stagedGeneration(), &services.MockGraphStore{})
	session := sessions.Create()

	body, _ := json.Marshal(models.AskQuestionRequest{Question: "Describe claim C_S1_001"})
	ask := httptest.NewRequest("POST", "/api/v1/sessions/"+session.ID+"/questions", bytes.NewReader(body))
	askW := httptest.NewRecorder()
	router.ServeHTTP(askW, ask)
	require.Equal(t, http.StatusOK, askW.Code)

	req := httptest.NewRequest("GET", "/api/v1/sessions/"+session.ID+"/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, session.ID, resp.SessionID)
	require.Len(t, resp.Turns, 1)
	assert.Equal(t, "Describe claim C_S1_001", resp.Turns[0].Question)
}

func TestInvestigationHandler_SessionsIsolated(t *testing.T) {
	router, sessions := testRouter(t, stagedGeneration(), &services.MockGraphStore{})
	first := sessions.Create()
	second := sessions.Create()

	body, _ := json.Marshal(models.AskQuestionRequest{Question: "Describe claim C_S1_001"})
	req := httptest.NewRequest("POST", "/api/v1/sessions/"+first.ID+"/questions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	histReq := httptest.NewRequest("GET", "/api/v1/sessions/"+second.ID+"/history", nil)
	histW := httptest.NewRecorder()
	router.ServeHTTP(histW, histReq)

	var resp models.HistoryResponse
	require.NoError(t, json.NewDecoder(histW.Body).Decode(&resp))
	assert.Empty(t, resp.Turns)
}

func TestSchemaHandler_GetSchema(t *testing.T) {
	router, _ := testRouter(t, stagedGeneration(), &services.MockGraphStore{})

	req := httptest.NewRequest("GET", "/api/v1/schema", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var view models.SchemaView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	require.Len(t, view.Entities, 1)
	assert.Equal(t, "Claim", view.Entities[0].Name)
}

func TestSchemaHandler_GetSchemaFidelity(t *testing.T) {
	router, _ := testRouter(t, stagedGeneration(), &services.MockGraphStore{})

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		contains       string
	}{
		{name: "compact", query: "?fidelity=compact", expectedStatus: http.StatusOK, contains: "NODE TYPES:"},
		{name: "full", query: "?fidelity=full", expectedStatus: http.StatusOK, contains: "NODE TYPES AND PROPERTIES:"},
		{name: "unknown fidelity", query: "?fidelity=verbose", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/schema"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.contains == "" {
				return
			}
			var resp models.RenderedSchema
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Contains(t, resp.Rendered, tt.contains)
		})
	}
}

func TestSchemaHandler_GetSuggestedQuestions(t *testing.T) {
	router, _ := testRouter(t, stagedGeneration(), &services.MockGraphStore{})

	req := httptest.NewRequest("GET", "/api/v1/questions/suggested", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SuggestedQuestionsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Questions)
}
