package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-investigator/errors"
	"graph-investigator/models"
)

const pipelineTestSchema = `
entities:
  - name: Claim
    description: Insurance claim record
    properties:
      - name: id
      - name: claim_amount
  - name: Provider
    description: Medical providers
    properties:
      - name: id
      - name: name
relationships:
  - type: TREATED_AT
    source: Claim
    target: Provider
    counter_example: "(Provider)-[:TREATED_AT]->(Claim)"
guide: |
  Treatment chain: Claim -[:TREATED_AT]-> Provider
`

func loadTestSchema(t *testing.T) *models.SchemaView {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipelineTestSchema), 0o644))
	view, err := LoadSchemaView(path)
	require.NoError(t, err)
	return view
}

// stageResponses routes mock completions by inspecting the system prompt.
func stageResponses(planner, generator, synthesis string) func(ctx context.Context, system, user string, temp float64) (string, error) {
	return func(ctx context.Context, system, user string, temp float64) (string, error) {
		switch {
		case strings.Contains(system, "planning an investigation"):
			return planner, nil
		case strings.Contains(system, "translate an investigation plan"):
			return generator, nil
		case strings.Contains(system, "correcting a statement"):
			return "MATCH (n) RETURN n LIMIT 50", nil
		default:
			return synthesis, nil
		}
	}
}

func newTestPipeline(t *testing.T, generation GenerationService, store GraphStore, audit AuditStore) *InvestigationPipeline {
	t.Helper()
	prompts := DefaultPromptSet()
	logger := testLogger()
	schema := NewSchemaProvider(loadTestSchema(t), store, logger, false)

	return NewInvestigationPipeline(
		NewComplexityClassifier(),
		schema,
		NewInvestigationPlanner(generation, prompts, logger, 0.2),
		NewQueryGenerator(generation, prompts, logger, 0.0, 50, 2),
		NewQueryExecutor(store, generation, prompts, logger, nil, 50, 300),
		NewVisualizationEnricher(store, logger, 5, 30),
		NewSynthesizer(generation, prompts, logger, 0.3, 15, 3),
		audit,
		nil,
		logger,
		5,
	)
}

func TestPipeline_SingleCandidateTurn(t *testing.T) {
	generation := &MockGenerationService{
		CompleteFunc: stageResponses(
			"Anchor on Claim, fetch by identifier.",
			"MATCH (c:Claim {id: 'C_S1_001'}) RETURN c LIMIT 50",
			"Claim C_S1_001 is open.\n\nFOLLOW-UP QUESTIONS:\n- Who filed it?",
		),
	}
	store := &MockGraphStore{
		RunFunc: func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
			return []models.Row{{"c": claimNode("4:x:1", "C_S1_001")}}, nil
		},
	}
	pipeline := newTestPipeline(t, generation, store, nil)
	session := NewSessionRegistry().Create()

	result, err := pipeline.RunTurn(context.Background(), session, "What is the status of claim C_S1_001?")
	require.NoError(t, err)

	assert.Equal(t, models.ComplexitySimple, result.Complexity)
	assert.Equal(t, "Anchor on Claim, fetch by identifier.", result.Plan)
	require.Len(t, result.ExecutedQueries, 1)
	assert.Equal(t, 1, result.ExecutedQueries[0].RowCount)
	assert.False(t, result.ExecutedQueries[0].Repaired)
	assert.True(t, result.Graph.HasNode("C_S1_001"))
	assert.Equal(t, "Claim C_S1_001 is open.", result.Answer.Narrative)
	require.Len(t, result.Answer.FollowUps, 1)

	// Planner, generator, synthesizer: exactly three generation calls
	assert.Equal(t, 3, generation.CallCount())

	history := session.History()
	require.Len(t, history, 1)
	assert.Equal(t, result.Plan, history[0].Plan)
}

func TestPipeline_MultiCandidateResultsUnioned(t *testing.T) {
	generation := &MockGenerationService{
		CompleteFunc: stageResponses(
			"Anchor on Provider, aggregate then expand.",
			"MATCH (p:Provider) RETURN p LIMIT 50\n<<<NEXT>>>\nMATCH (c:Claim) RETURN c LIMIT 50",
			"Two views of the network.",
		),
	}
	store := &MockGraphStore{
		RunFunc: func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
			if strings.Contains(statement, "Provider") {
				return []models.Row{{"p": models.Node{
					ElementID:  "4:x:10",
					Labels:     []string{"Provider"},
					Properties: map[string]interface{}{"id": "PROV_S1_MAIN", "name": "Main Clinic"},
				}}}, nil
			}
			return []models.Row{{"c": claimNode("4:x:11", "C_S1_002")}}, nil
		},
	}
	pipeline := newTestPipeline(t, generation, store, nil)
	session := NewSessionRegistry().Create()

	result, err := pipeline.RunTurn(context.Background(), session, "Show the provider network")
	require.NoError(t, err)

	require.Len(t, result.ExecutedQueries, 2)
	assert.True(t, result.Graph.HasNode("PROV_S1_MAIN"))
	assert.True(t, result.Graph.HasNode("C_S1_002"))
}

func TestPipeline_ExhaustedCandidateStillAnswers(t *testing.T) {
	generation := &MockGenerationService{
		CompleteFunc: stageResponses(
			"Anchor on Claim.",
			"BROKEN STATEMENT",
			"No evidence could be retrieved; the query failed both times.",
		),
	}
	store := &MockGraphStore{
		RunFunc: func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
			return nil, fmt.Errorf("statement rejected")
		},
	}
	pipeline := newTestPipeline(t, generation, store, nil)
	session := NewSessionRegistry().Create()

	result, err := pipeline.RunTurn(context.Background(), session, "What is the status of this claim?")
	require.NoError(t, err)

	require.Len(t, result.ExecutedQueries, 1)
	assert.True(t, result.ExecutedQueries[0].Repaired)
	assert.Equal(t, 0, result.ExecutedQueries[0].RowCount)
	assert.NotEmpty(t, result.ExecutedQueries[0].Error)
	assert.NotEmpty(t, result.Answer.Narrative)

	// Both original and repaired attempts hit the store, nothing more
	assert.Equal(t, 2, store.RunCount())
}

func TestPipeline_PlannerFailureFailsTurn(t *testing.T) {
	generation := &MockGenerationService{
		CompleteFunc: func(ctx context.Context, system, user string, temp float64) (string, error) {
			return "", fmt.Errorf("provider down")
		},
	}
	pipeline := newTestPipeline(t, generation, &MockGraphStore{}, nil)
	session := NewSessionRegistry().Create()

	_, err := pipeline.RunTurn(context.Background(), session, "Anything")
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.StagePlanner, appErr.Stage)

	// Failed turns never enter history
	assert.Empty(t, session.History())
}

func TestPipeline_EmptyQuestionRejected(t *testing.T) {
	pipeline := newTestPipeline(t, &MockGenerationService{}, &MockGraphStore{}, nil)
	session := NewSessionRegistry().Create()

	_, err := pipeline.RunTurn(context.Background(), session, "   ")
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, appErr.Code)
}

func TestPipeline_HistoryWindowBoundsPrompt(t *testing.T) {
	generation := &MockGenerationService{
		CompleteFunc: stageResponses(
			"Plan text.",
			"MATCH (n) RETURN n LIMIT 50",
			"Answer.",
		),
	}
	store := &MockGraphStore{}
	pipeline := newTestPipeline(t, generation, store, nil)
	session := NewSessionRegistry().Create()

	for i := 0; i < 7; i++ {
		_, err := pipeline.RunTurn(context.Background(), session, fmt.Sprintf("Question number %d please", i))
		require.NoError(t, err)
	}

	// Full transcript retained
	assert.Len(t, session.History(), 7)

	// The final planner prompt saw six prior turns but renders only the
	// five most recent
	var lastPlannerPrompt string
	for _, call := range generation.Calls {
		if strings.Contains(call.SystemInstruction, "planning an investigation") {
			lastPlannerPrompt = call.UserContent
		}
	}
	require.NotEmpty(t, lastPlannerPrompt)
	assert.NotContains(t, lastPlannerPrompt, "Question number 0")
	assert.Contains(t, lastPlannerPrompt, "Question number 1")
	assert.Contains(t, lastPlannerPrompt, "Question number 5")
}

type recordingAudit struct {
	turns []models.ConversationTurn
	err   error
}

func (a *recordingAudit) RecordTurn(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	a.turns = append(a.turns, turn)
	return a.err
}

func TestPipeline_AuditFailureDoesNotFailTurn(t *testing.T) {
	generation := &MockGenerationService{
		CompleteFunc: stageResponses("Plan.", "MATCH (n) RETURN n LIMIT 50", "Answer."),
	}
	audit := &recordingAudit{err: fmt.Errorf("audit database down")}
	pipeline := newTestPipeline(t, generation, &MockGraphStore{}, audit)
	session := NewSessionRegistry().Create()

	result, err := pipeline.RunTurn(context.Background(), session, "A question")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Len(t, audit.turns, 1)
}
