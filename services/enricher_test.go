package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-investigator/models"
)

func claimNode(elementID, id string) models.Node {
	return models.Node{
		ElementID: elementID,
		Labels:    []string{"Claim"},
		Properties: map[string]interface{}{
			"id": id,
		},
	}
}

func TestVisualizationEnricher_AssemblesDeduplicatedGraph(t *testing.T) {
	store := &MockGraphStore{}
	enricher := NewVisualizationEnricher(store, testLogger(), 5, 30)

	node := claimNode("4:abc:1", "C_S1_001")
	rel := models.Relationship{
		ElementID:      "5:abc:9",
		Type:           "FILED_BY",
		StartElementID: "4:abc:1",
		EndElementID:   "4:abc:2",
	}
	person := models.Node{
		ElementID:  "4:abc:2",
		Labels:     []string{"Person"},
		Properties: map[string]interface{}{"id": "P_S1_A", "name": "Alex Roe"},
	}

	// The same content arrives via two result sets
	sets := []models.ResultSet{
		{CandidateIndex: 1, Rows: []models.Row{{"c": node, "r": rel, "p": person}}},
		{CandidateIndex: 2, Rows: []models.Row{{"c": node, "r": rel, "p": person}}},
	}

	graph := enricher.Enrich(context.Background(), sets)

	assert.Len(t, graph.Nodes, 2)
	assert.Len(t, graph.Edges, 1)
	assert.Equal(t, "FILED_BY", graph.Edges[0].Type)
	assert.True(t, graph.HasNode("C_S1_001"))
	assert.True(t, graph.HasNode("P_S1_A"))
	// Nothing was missing, so no neighborhood fetches happened
	assert.Equal(t, 0, store.RunCount())
}

func TestVisualizationEnricher_FetchesReferencedButMissingEntities(t *testing.T) {
	fetched := make(map[string]bool)
	store := &MockGraphStore{
		RunFunc: func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
			id := params["id"].(string)
			fetched[id] = true
			return []models.Row{{"n": claimNode("4:x:"+id, id)}}, nil
		},
	}
	enricher := NewVisualizationEnricher(store, testLogger(), 5, 30)

	// A scalar column references an entity never returned as a node
	sets := []models.ResultSet{
		{CandidateIndex: 1, Rows: []models.Row{
			{"provider_id": "PROV_S1_MAIN", "count": int64(7)},
		}},
	}

	graph := enricher.Enrich(context.Background(), sets)

	assert.True(t, fetched["PROV_S1_MAIN"])
	require.True(t, graph.HasNode("PROV_S1_MAIN"))
	assert.Equal(t, 1, graph.EnrichedNodeCount())
}

func TestVisualizationEnricher_EntityCapBoundsFetches(t *testing.T) {
	store := &MockGraphStore{
		RunFunc: func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
			return nil, nil
		},
	}
	enricher := NewVisualizationEnricher(store, testLogger(), 5, 30)

	row := models.Row{}
	for i := 0; i < 9; i++ {
		row[fmt.Sprintf("ref%d", i)] = fmt.Sprintf("P_S2_%c", 'A'+i)
	}
	sets := []models.ResultSet{{CandidateIndex: 1, Rows: []models.Row{row}}}

	enricher.Enrich(context.Background(), sets)

	assert.Equal(t, 5, store.RunCount())
}

func TestVisualizationEnricher_FetchOrderDeterministic(t *testing.T) {
	var order []string
	store := &MockGraphStore{
		RunFunc: func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
			order = append(order, params["id"].(string))
			return nil, nil
		},
	}
	enricher := NewVisualizationEnricher(store, testLogger(), 5, 30)

	sets := []models.ResultSet{{CandidateIndex: 1, Rows: []models.Row{
		{"a": "P_S2_C", "b": "P_S2_A", "c": "P_S2_B"},
	}}}

	enricher.Enrich(context.Background(), sets)

	assert.Equal(t, []string{"P_S2_A", "P_S2_B", "P_S2_C"}, order)
}

func TestVisualizationEnricher_FetchFailureSkipped(t *testing.T) {
	store := &MockGraphStore{
		RunFunc: func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
			if params["id"] == "P_S2_A" {
				return nil, fmt.Errorf("store unavailable")
			}
			id := params["id"].(string)
			return []models.Row{{"n": claimNode("4:x:"+id, id)}}, nil
		},
	}
	enricher := NewVisualizationEnricher(store, testLogger(), 5, 30)

	sets := []models.ResultSet{{CandidateIndex: 1, Rows: []models.Row{
		{"a": "P_S2_A", "b": "P_S2_B"},
	}}}

	graph := enricher.Enrich(context.Background(), sets)

	// The failed fetch is skipped, the other completes
	assert.False(t, graph.HasNode("P_S2_A"))
	assert.True(t, graph.HasNode("P_S2_B"))
	assert.Equal(t, 2, store.RunCount())
}

func TestVisualizationEnricher_RelCapPassedToFetch(t *testing.T) {
	var limit interface{}
	store := &MockGraphStore{
		RunFunc: func(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
			limit = params["limit"]
			return nil, nil
		},
	}
	enricher := NewVisualizationEnricher(store, testLogger(), 5, 30)

	sets := []models.ResultSet{{CandidateIndex: 1, Rows: []models.Row{{"a": "FAX_S1_SHARED"}}}}
	enricher.Enrich(context.Background(), sets)

	assert.Equal(t, 30, limit)
}

func TestVisualizationEnricher_NestedCollectionsTraversed(t *testing.T) {
	store := &MockGraphStore{}
	enricher := NewVisualizationEnricher(store, testLogger(), 5, 30)

	inner := claimNode("4:x:1", "C_S3_010")
	sets := []models.ResultSet{{CandidateIndex: 1, Rows: []models.Row{
		{"path": []interface{}{inner, models.Relationship{
			ElementID:      "5:x:1",
			Type:           "UNDER_POLICY",
			StartElementID: "4:x:1",
			EndElementID:   "4:x:404",
		}}},
	}}}

	graph := enricher.Enrich(context.Background(), sets)

	assert.True(t, graph.HasNode("C_S3_010"))
	// Endpoint never materialized, so the edge is dropped
	assert.Empty(t, graph.Edges)
}

func TestEntityIDPattern(t *testing.T) {
	matches := []string{"PROV_S1_MAIN", "P_S2_A", "FAX_S1_SHARED", "C_S1_001"}
	for _, s := range matches {
		assert.True(t, entityIDPattern.MatchString(s), s)
	}

	rejects := []string{"Open", "Bodily Injury", "claim", "P_", "_S1", "p_s1_a", "PROV"}
	for _, s := range rejects {
		assert.False(t, entityIDPattern.MatchString(s), s)
	}
}
