package services

import (
	"fmt"
	"strings"
)

// Statement separator and synthesis delimiter tokens. These are wire-format
// contracts with the generation capability, not presentation details.
const (
	DefaultStatementSeparator = "<<<NEXT>>>"
	DefaultFollowUpDelimiter  = "FOLLOW-UP QUESTIONS:"
)

// PromptSet holds the instructional templates for every model-backed stage.
// It is immutable configuration loaded once at startup and injected into
// each stage explicitly, so stages stay testable with substituted templates.
type PromptSet struct {
	PlannerSystem     string
	PlannerTemplate   string
	GeneratorSystem   string
	GeneratorTemplate string
	RepairSystem      string
	RepairTemplate    string
	SynthesisSystem   string
	SynthesisTemplate string

	StatementSeparator string
	FollowUpDelimiter  string
}

// DefaultPromptSet returns the production templates.
//
// Two deliberate leakage boundaries are encoded here. The generator's worked
// examples teach query mechanics on placeholder identifiers only; none of
// them is sufficient to infer a discoverable pattern. The synthesizer's
// analytical checklist is applied to rows already retrieved, never rendered
// into the planner or generator, so interpretive knowledge cannot shape what
// gets traversed.
func DefaultPromptSet() *PromptSet {
	return &PromptSet{
		PlannerSystem: `You are a veteran P&C insurance fraud analyst with 20 years of SIU experience, planning an investigation over a knowledge graph. You reason about investigative approach only. You never write queries.`,

		PlannerTemplate: `GRAPH SCHEMA:
%s

INVESTIGATION CONTEXT (recent turns):
%s

USER QUESTION: %s

Write an investigation plan of 3 to 6 sentences of plain prose. The plan must:
- name the entity kind the question anchors on
- pick a small number of metrics or traversals appropriate to that anchor
- state whether the approach is aggregation, neighborhood traversal, or both
- name the concrete filters (identifiers or property values) the question supplies, if any

Do NOT write any query syntax. Prose only.`,

		GeneratorSystem: `You are a Cypher specialist. You translate an investigation plan into precise, executable Cypher for a labeled property graph. You output query text only: no prose, no markdown, no explanation.`,

		GeneratorTemplate: `GRAPH SCHEMA:
%s

%s

USER QUESTION: %s

INVESTIGATION PLAN:
%s

QUERY MECHANICS (placeholder identifiers, adapt the shapes not the values):

Optional-match chaining keeps primary rows when secondary data is absent:
  MATCH (a:EntityA {id: 'ID_0001'})
  OPTIONAL MATCH (a)<-[r:REL_ONE]-(b:EntityB)
  RETURN a, r, b
  LIMIT %d

Aggregation with grouping compares entities against each other:
  MATCH (b:EntityB)-[:REL_ONE]->(a:EntityA)
  WITH a, count(b) AS volume, sum(b.amount) AS exposure
  RETURN a.name, volume, exposure
  ORDER BY volume DESC
  LIMIT %d

Multi-hop chaining walks a path of known relationships:
  MATCH (a:EntityA {id: 'ID_0001'})<-[:REL_ONE]-(b:EntityB)-[:REL_TWO]->(c:EntityC)
  RETURN a, b, c
  LIMIT %d

OUTPUT RULES:
- Produce 1 or 2 Cypher statements. Nothing else.
- If you produce 2, put the line %s between them.
- Every statement ends with LIMIT %d.
- Prefer RETURN patterns that include nodes AND relationships so results can be drawn.
- Use OPTIONAL MATCH for secondary lookups so primary rows are never lost.
- Respect the canonical relationship directions above exactly.`,

		RepairSystem: `You are a Cypher specialist correcting a statement that the graph store rejected. Output the corrected statement only: no prose, no markdown.`,

		RepairTemplate: `The following Cypher statement failed:

%s

STORE ERROR:
%s

%s

Produce one corrected Cypher statement. Keep the original intent and the LIMIT clause. Output the statement text only.`,

		SynthesisSystem: `You are a veteran P&C insurance SIU analyst presenting findings to your investigation team. You state what the data shows before interpreting what it means, and you quantify everything you can.`,

		SynthesisTemplate: `ORIGINAL QUESTION: %s

INVESTIGATION PLAN:
%s

EVIDENCE (query results):
%s

Assess the evidence against these structural signals, strictly as retrieved:
- representation rate vs. expected baselines (e.g. attorney representation share)
- concentration ratios (volume funneling through few counterparties)
- shared infrastructure (common phone, fax, device, or address nodes)
- role rotation (one person appearing across claims in different roles)
- asset recycling (one vehicle or property cycling through claims)
- temporal proximity (bind dates, claim dates, opening dates clustering)
- network continuity (links between closed cases and active entities)
- ownership and employment links (corporate or former-employee chains)

Write a concise narrative for insurance professionals. Cite specific
entities, counts, and amounts from the evidence. If results are empty or
inconclusive, say so directly and explain what the absence might mean.

Then write the line:
%s
followed by zero to three follow-up questions, one per line. Each must be
answerable by a further query over the same schema and should reference
concrete entities or values surfaced above.`,

		StatementSeparator: DefaultStatementSeparator,
		FollowUpDelimiter:  DefaultFollowUpDelimiter,
	}
}

// RenderPlanner builds the planner user prompt.
func (p *PromptSet) RenderPlanner(schemaContext, historyText, question string) string {
	if strings.TrimSpace(historyText) == "" {
		historyText = "No prior context."
	}
	return fmt.Sprintf(p.PlannerTemplate, schemaContext, historyText, question)
}

// RenderGenerator builds the generator user prompt. directionality is the
// rendered canonical-direction table with counter-examples.
func (p *PromptSet) RenderGenerator(schemaContext, directionality, question, plan string, rowLimit int) string {
	return fmt.Sprintf(p.GeneratorTemplate,
		schemaContext, directionality, question, plan,
		rowLimit, rowLimit, rowLimit,
		p.StatementSeparator, rowLimit)
}

// RenderRepair builds the repair user prompt. The error text is already
// truncated by the caller; only the directionality subset of the schema is
// supplied.
func (p *PromptSet) RenderRepair(failedStatement, truncatedError, directionality string) string {
	return fmt.Sprintf(p.RepairTemplate, failedStatement, truncatedError, directionality)
}

// RenderSynthesis builds the synthesis user prompt.
func (p *PromptSet) RenderSynthesis(question, plan, serializedResults string) string {
	return fmt.Sprintf(p.SynthesisTemplate, question, plan, serializedResults, p.FollowUpDelimiter)
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// around statements despite instructions.
func stripCodeFences(text string) string {
	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```") {
		if idx := strings.Index(clean, "\n"); idx >= 0 {
			clean = clean[idx+1:]
		} else {
			clean = strings.TrimPrefix(clean, "```")
		}
	}
	if strings.HasSuffix(clean, "```") {
		clean = clean[:strings.LastIndex(clean, "```")]
	}
	return strings.TrimSpace(clean)
}
