package services

import (
	"context"

	"graph-investigator/models"
)

// GenerationService is the text-generation boundary. Any provider that
// accepts separate system/user content and a temperature-like determinism
// control is interchangeable.
type GenerationService interface {
	Complete(ctx context.Context, systemInstruction, userContent string, temperature float64) (string, error)
}

// GraphStore is the query-execution boundary to the graph store. The core
// only reads; index, constraint, and connection bootstrap live outside it.
type GraphStore interface {
	Run(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error)
}

// AuditStore records completed turns for investigator audit. Writes are
// best-effort and never fail a turn.
type AuditStore interface {
	RecordTurn(ctx context.Context, sessionID string, turn models.ConversationTurn) error
}
