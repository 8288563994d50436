package handlers

import (
	"net/http"

	"graph-investigator/models"
	"graph-investigator/services"
)

// SchemaHandler exposes the structural description of the graph
type SchemaHandler struct {
	schema *services.SchemaProvider
}

// NewSchemaHandler creates a new schema handler
func NewSchemaHandler(schema *services.SchemaProvider) *SchemaHandler {
	return &SchemaHandler{
		schema: schema,
	}
}

// GetSchema handles GET /api/v1/schema. Without a fidelity parameter the
// structured view is returned; fidelity=compact|full returns the rendered
// text at that fidelity.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	switch fidelity := r.URL.Query().Get("fidelity"); fidelity {
	case "":
		writeJSONResponse(w, http.StatusOK, h.schema.View())
	case "compact":
		writeJSONResponse(w, http.StatusOK, models.RenderedSchema{Fidelity: fidelity, Rendered: h.schema.View().Compact()})
	case "full":
		writeJSONResponse(w, http.StatusOK, models.RenderedSchema{Fidelity: fidelity, Rendered: h.schema.View().Full()})
	default:
		writeErrorResponse(w, http.StatusBadRequest, "fidelity must be compact or full", "")
	}
}

// GetSuggestedQuestions handles GET /api/v1/questions/suggested
func (h *SchemaHandler) GetSuggestedQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuggestedQuestionsResponse{
		Questions: h.schema.SuggestedQuestions(),
	})
}
