package services

import (
	"context"
	"regexp"
	"sort"

	"graph-investigator/models"
)

// One-hop neighborhood fetch for an entity referenced in results but not
// returned as a node. The relationship count per entity is capped by the
// LIMIT parameter.
const neighborhoodStatement = `MATCH (n {id: $id})
OPTIONAL MATCH (n)-[r]-(m)
RETURN n, r, m
LIMIT $limit`

// entityIDPattern recognizes domain entity identifiers appearing as scalar
// values, e.g. PROV_S1_MAIN, P_S2_A, FAX_S1_SHARED.
var entityIDPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*(_[A-Z0-9]+)+$`)

// VisualizationEnricher completes a result graph with one-hop
// neighborhoods for entities referenced but not returned. A successful
// query can return an entity's identifier as a property value without the
// node it lives on; a deterministic second pass is cheaper and more
// reliable than asking the generation stage to anticipate every such
// reference.
//
// No generation calls happen here. Per-entity fetch failures are skipped:
// visualization completeness is best-effort, never a turn failure.
type VisualizationEnricher struct {
	store     GraphStore
	logger    Logger
	entityCap int
	relCap    int
}

// NewVisualizationEnricher creates an enricher stage.
func NewVisualizationEnricher(store GraphStore, logger Logger, entityCap, relCap int) *VisualizationEnricher {
	return &VisualizationEnricher{
		store:     store,
		logger:    logger,
		entityCap: entityCap,
		relCap:    relCap,
	}
}

// Enrich assembles the deduplicated visualization graph from all result
// sets, then fetches neighborhoods for up to entityCap referenced-but-
// missing entities. Idempotent: the same inputs always assemble the same
// graph, and merging previously-merged content adds nothing.
func (e *VisualizationEnricher) Enrich(ctx context.Context, resultSets []models.ResultSet) *models.VisualizationGraph {
	graph := models.NewVisualizationGraph()

	referenced := make(map[string]struct{})
	for _, set := range resultSets {
		mergeRows(graph, set.Rows, false)
		collectReferencedIDs(set.Rows, referenced)
	}

	missing := make([]string, 0, len(referenced))
	for id := range referenced {
		if !graph.HasNode(id) {
			missing = append(missing, id)
		}
	}
	// Deterministic fetch order regardless of map iteration
	sort.Strings(missing)

	if len(missing) > e.entityCap {
		missing = missing[:e.entityCap]
	}

	for _, id := range missing {
		rows, err := e.store.Run(ctx, neighborhoodStatement, map[string]interface{}{
			"id":    id,
			"limit": e.relCap,
		})
		if err != nil {
			e.logger.Warn("Enrichment fetch skipped",
				String("entity_id", id),
				Field("error", err.Error()),
			)
			continue
		}
		mergeRows(graph, rows, true)
	}

	return graph
}

// mergeRows merges result rows into the graph: nodes first so relationship
// endpoints resolve, then relationships.
func mergeRows(graph *models.VisualizationGraph, rows []models.Row, enriched bool) {
	for _, row := range rows {
		for _, value := range row {
			switch v := value.(type) {
			case models.Node:
				graph.AddNode(v, enriched)
			case []interface{}:
				for _, item := range v {
					if node, ok := item.(models.Node); ok {
						graph.AddNode(node, enriched)
					}
				}
			}
		}
	}
	for _, row := range rows {
		for _, value := range row {
			switch v := value.(type) {
			case models.Relationship:
				graph.AddEdge(v)
			case []interface{}:
				for _, item := range v {
					if rel, ok := item.(models.Relationship); ok {
						graph.AddEdge(rel)
					}
				}
			}
		}
	}
}

// collectReferencedIDs gathers every distinct entity identifier appearing
// anywhere in the rows: bound nodes' id properties and scalar string values
// shaped like entity identifiers.
func collectReferencedIDs(rows []models.Row, into map[string]struct{}) {
	for _, row := range rows {
		for _, value := range row {
			collectFromValue(value, into)
		}
	}
}

func collectFromValue(value interface{}, into map[string]struct{}) {
	switch v := value.(type) {
	case models.Node:
		if id, ok := v.Properties["id"].(string); ok && id != "" {
			into[id] = struct{}{}
		}
	case string:
		if entityIDPattern.MatchString(v) {
			into[v] = struct{}{}
		}
	case []interface{}:
		for _, item := range v {
			collectFromValue(item, into)
		}
	}
}
