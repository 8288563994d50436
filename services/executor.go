package services

import (
	"context"
	"unicode/utf8"

	"graph-investigator/errors"
	"graph-investigator/models"
)

// QueryExecutor runs candidates against the graph store with a single
// bounded repair per candidate.
//
// Cost and latency are bounded by construction: at most two store
// round-trips and one repair-generation call per candidate. The explicit
// state machine enforces the bound structurally; Repairing is only
// reachable from Failed, and a repaired statement that fails lands in
// FinalFailed with no way back.
type QueryExecutor struct {
	store           GraphStore
	generation      GenerationService
	prompts         *PromptSet
	logger          Logger
	metrics         *PipelineMetrics
	rowLimit        int
	errorTruncation int
}

// NewQueryExecutor creates an executor stage.
func NewQueryExecutor(store GraphStore, generation GenerationService, prompts *PromptSet, logger Logger, metrics *PipelineMetrics, rowLimit, errorTruncation int) *QueryExecutor {
	return &QueryExecutor{
		store:           store,
		generation:      generation,
		prompts:         prompts,
		logger:          logger,
		metrics:         metrics,
		rowLimit:        rowLimit,
		errorTruncation: errorTruncation,
	}
}

// Execute runs one candidate to a terminal state. A candidate whose
// original and repaired statements both fail contributes an empty result
// set with the last error attached; exhaustion is never fatal to the turn.
func (e *QueryExecutor) Execute(ctx context.Context, candidate models.QueryCandidate, directionality string) models.ExecutionOutcome {
	statement := candidate.Statement
	state := models.CandidatePending
	repaired := false

	var rows []models.Row
	var lastErr error

	for {
		switch state {
		case models.CandidatePending:
			state = models.CandidateExecuting

		case models.CandidateExecuting:
			var err error
			rows, err = e.store.Run(ctx, statement, nil)
			if err == nil {
				state = models.CandidateSucceeded
				break
			}

			e.metrics.CountStoreError()
			lastErr = err
			if repaired {
				state = models.CandidateFinalFailed
			} else {
				state = models.CandidateFailed
			}

		case models.CandidateFailed:
			state = models.CandidateRepairing

		case models.CandidateRepairing:
			fixed, err := e.repair(ctx, statement, lastErr, directionality)
			if err != nil {
				e.logger.Warn("Query repair generation failed",
					Int("candidate", candidate.Index),
					Field("error", err.Error()),
				)
				state = models.CandidateFinalFailed
				break
			}
			statement = fixed
			repaired = true
			state = models.CandidateExecuting

		case models.CandidateSucceeded:
			if len(rows) > e.rowLimit {
				rows = rows[:e.rowLimit]
			}
			e.logger.Info("Query candidate succeeded",
				Int("candidate", candidate.Index),
				Int("rows", len(rows)),
				Bool("repaired", repaired),
			)
			return models.ExecutionOutcome{
				Candidate:         candidate,
				ExecutedStatement: statement,
				Repaired:          repaired,
				Rows:              rows,
			}

		case models.CandidateFinalFailed:
			e.logger.Warn("Query candidate exhausted",
				Int("candidate", candidate.Index),
				Bool("repaired", repaired),
				Field("error", lastErr.Error()),
			)
			return models.ExecutionOutcome{
				Candidate:         candidate,
				ExecutedStatement: statement,
				Repaired:          repaired,
				Rows:              nil,
				Error:             lastErr.Error(),
			}
		}
	}
}

// repair asks for one corrected statement. The prompt receives the failed
// statement, a truncated error message, and only the directionality subset
// of the schema.
func (e *QueryExecutor) repair(ctx context.Context, statement string, cause error, directionality string) (string, error) {
	e.metrics.CountRepair()
	e.metrics.CountGeneration(errors.StageRepairer)

	message := truncateOnRuneBoundary(cause.Error(), e.errorTruncation)

	prompt := e.prompts.RenderRepair(statement, message, directionality)
	raw, err := e.generation.Complete(ctx, e.prompts.RepairSystem, prompt, 0.0)
	if err != nil {
		return "", errors.NewGenerationError(errors.StageRepairer, "Repair generation failed", err)
	}

	fixed := stripCodeFences(raw)
	if fixed == "" {
		return "", errors.NewGenerationError(errors.StageRepairer, "Repair generation returned no statement", nil)
	}
	return fixed, nil
}

// truncateOnRuneBoundary caps s at limit bytes without splitting a rune;
// the cut backs up to the start of the rune straddling the limit.
func truncateOnRuneBoundary(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
