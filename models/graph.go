package models

import "fmt"

// Node is a graph node as returned by the store. Key() prefers the stable
// domain identifier over the store's internal element id.
type Node struct {
	ElementID  string                 `json:"element_id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

// Key returns the stable entity identifier for deduplication.
func (n Node) Key() string {
	if id, ok := n.Properties["id"].(string); ok && id != "" {
		return id
	}
	return n.ElementID
}

// PrimaryLabel returns the first label, or "Node" when unlabeled.
func (n Node) PrimaryLabel() string {
	if len(n.Labels) > 0 {
		return n.Labels[0]
	}
	return "Node"
}

// DisplayName picks a human-readable name from common property keys.
func (n Node) DisplayName() string {
	for _, key := range []string{"name", "number", "vin", "policy_number", "street", "id"} {
		if v, ok := n.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return n.PrimaryLabel()
}

// Relationship is a graph relationship as returned by the store. Endpoints
// reference store element ids and are resolved against materialized nodes
// when a visualization graph is assembled.
type Relationship struct {
	ElementID      string                 `json:"element_id"`
	Type           string                 `json:"type"`
	StartElementID string                 `json:"start_element_id"`
	EndElementID   string                 `json:"end_element_id"`
	Properties     map[string]interface{} `json:"properties"`
}

// Row maps a result alias to a node, relationship, or scalar value.
type Row map[string]interface{}

// VizNode is a deduplicated node in the visualization graph, keyed by the
// stable entity identifier.
type VizNode struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Kind       string                 `json:"kind"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Enriched   bool                   `json:"enriched,omitempty"`
}

// VizEdge is a deduplicated edge keyed by (source, type, target).
type VizEdge struct {
	Source string `json:"source"`
	Type   string `json:"type"`
	Target string `json:"target"`
}

// VisualizationGraph is the deduplicated node/edge collection assembled from
// result sets plus enrichment fetches. Merging the same content twice adds
// nothing.
type VisualizationGraph struct {
	Nodes []VizNode `json:"nodes"`
	Edges []VizEdge `json:"edges"`

	nodeIndex map[string]int      // entity key -> index into Nodes
	edgeIndex map[string]struct{} // source|type|target
	elements  map[string]string   // store element id -> entity key
}

// NewVisualizationGraph returns an empty graph ready for merging.
func NewVisualizationGraph() *VisualizationGraph {
	return &VisualizationGraph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]struct{}),
		elements:  make(map[string]string),
	}
}

// AddNode merges a store node into the graph, returning its entity key.
// A node already present is not duplicated; its enrichment flag is only
// ever cleared, never set, by a direct-result merge.
func (g *VisualizationGraph) AddNode(n Node, enriched bool) string {
	key := n.Key()
	g.elements[n.ElementID] = key

	if idx, ok := g.nodeIndex[key]; ok {
		if !enriched {
			g.Nodes[idx].Enriched = false
		}
		return key
	}

	g.nodeIndex[key] = len(g.Nodes)
	g.Nodes = append(g.Nodes, VizNode{
		ID:         key,
		Label:      n.DisplayName(),
		Kind:       n.PrimaryLabel(),
		Properties: n.Properties,
		Enriched:   enriched,
	})
	return key
}

// AddEdge merges a store relationship, resolving endpoints against nodes
// already in the graph. Relationships whose endpoints were never
// materialized are dropped: an edge without both ends cannot be drawn.
func (g *VisualizationGraph) AddEdge(r Relationship) bool {
	source, ok := g.elements[r.StartElementID]
	if !ok {
		return false
	}
	target, ok := g.elements[r.EndElementID]
	if !ok {
		return false
	}

	key := fmt.Sprintf("%s|%s|%s", source, r.Type, target)
	if _, exists := g.edgeIndex[key]; exists {
		return true
	}

	g.edgeIndex[key] = struct{}{}
	g.Edges = append(g.Edges, VizEdge{Source: source, Type: r.Type, Target: target})
	return true
}

// HasNode reports whether an entity identifier is materialized in the graph.
func (g *VisualizationGraph) HasNode(entityID string) bool {
	_, ok := g.nodeIndex[entityID]
	return ok
}

// EnrichedNodeCount returns how many nodes exist only because of enrichment.
func (g *VisualizationGraph) EnrichedNodeCount() int {
	count := 0
	for _, n := range g.Nodes {
		if n.Enriched {
			count++
		}
	}
	return count
}
