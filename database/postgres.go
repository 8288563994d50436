package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"graph-investigator/config"
	"graph-investigator/errors"
	"graph-investigator/models"
)

const createTurnsTable = `CREATE TABLE IF NOT EXISTS investigation_turns (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT        NOT NULL,
	question    TEXT        NOT NULL,
	complexity  TEXT        NOT NULL,
	plan        TEXT        NOT NULL,
	statements  JSONB       NOT NULL,
	answer      JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
)`

const insertTurn = `INSERT INTO investigation_turns
	(session_id, question, complexity, plan, statements, answer, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// TurnAuditStore persists completed turns to PostgreSQL for investigator
// audit. Writes are retried on transient failures but a final failure is
// reported, not escalated; the caller treats auditing as best-effort.
type TurnAuditStore struct {
	db      *sql.DB
	retryer *errors.Retryer
}

// NewTurnAuditStore connects to the audit database and ensures the turns
// table exists.
func NewTurnAuditStore(ctx context.Context, cfg config.AuditConfig) (*TurnAuditStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.NewDatabaseError(
			errors.ErrCodeAuditConnection,
			"Failed to open audit database",
			err,
		)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError(
			errors.ErrCodeAuditConnection,
			"Failed to reach audit database",
			err,
		)
	}

	if _, err := db.ExecContext(ctx, createTurnsTable); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError(
			errors.ErrCodeAuditConnection,
			"Failed to create audit turns table",
			err,
		)
	}

	return &TurnAuditStore{
		db:      db,
		retryer: errors.NewRetryer(errors.DatabaseRetryConfig()),
	}, nil
}

// RecordTurn persists one completed turn.
func (s *TurnAuditStore) RecordTurn(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	statements, err := json.Marshal(turn.Statements)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeSerializationError, "Failed to serialize turn statements", err)
	}
	answer, err := json.Marshal(turn.Answer)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeSerializationError, "Failed to serialize turn answer", err)
	}

	return s.retryer.Execute(ctx, func() error {
		_, err := s.db.ExecContext(ctx, insertTurn,
			sessionID,
			turn.Question,
			string(turn.Complexity),
			turn.Plan,
			statements,
			answer,
			turn.CreatedAt,
		)
		if err != nil {
			return errors.NewDatabaseError(errors.ErrCodeAuditWrite, "Failed to record turn", err)
		}
		return nil
	})
}

// Close releases the database pool.
func (s *TurnAuditStore) Close() error {
	return s.db.Close()
}
