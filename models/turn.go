package models

import "time"

// ComplexityLabel routes a question to a schema fidelity and prompt budget.
// It never gates correctness, only how much context downstream stages receive.
type ComplexityLabel string

const (
	ComplexitySimple ComplexityLabel = "simple"
	ComplexityDeep   ComplexityLabel = "deep"
)

// Answer is the terminal artifact of a conversation turn: a narrative
// explanation plus up to three follow-up questions answerable over the
// same schema.
type Answer struct {
	Narrative string   `json:"narrative"`
	FollowUps []string `json:"follow_ups"`
}

// ConversationTurn is one completed (question, answer) exchange. Turns are
// append-only and owned by their session.
type ConversationTurn struct {
	Question   string          `json:"question"`
	Complexity ComplexityLabel `json:"complexity"`
	Plan       string          `json:"plan"`
	Statements []string        `json:"statements"`
	Answer     Answer          `json:"answer"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ExecutedQuery describes one candidate's final execution for the caller:
// the statement that actually ran, whether it was the repaired variant, and
// the failure note when both attempts were exhausted.
type ExecutedQuery struct {
	Statement string `json:"statement"`
	Repaired  bool   `json:"repaired"`
	RowCount  int    `json:"row_count"`
	Error     string `json:"error,omitempty"`
}

// TurnResult is everything the transport layer exposes for one turn.
type TurnResult struct {
	SessionID       string              `json:"session_id"`
	Question        string              `json:"question"`
	Complexity      ComplexityLabel     `json:"complexity"`
	Plan            string              `json:"plan"`
	ExecutedQueries []ExecutedQuery     `json:"executed_queries"`
	Graph           *VisualizationGraph `json:"graph"`
	Answer          Answer              `json:"answer"`
}
