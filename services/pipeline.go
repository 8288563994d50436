package services

import (
	"context"
	"strings"
	"time"

	"graph-investigator/errors"
	"graph-investigator/models"
)

// InvestigationPipeline runs one conversation turn through the fixed stage
// sequence: classify, plan, generate, execute with bounded repair, enrich,
// synthesize. Stages are strictly sequential; each consumes only the
// artifacts of earlier stages.
type InvestigationPipeline struct {
	classifier  *ComplexityClassifier
	schema      *SchemaProvider
	planner     *InvestigationPlanner
	generator   *QueryGenerator
	executor    *QueryExecutor
	enricher    *VisualizationEnricher
	synthesizer *Synthesizer
	audit       AuditStore
	metrics     *PipelineMetrics
	logger      Logger

	historyWindow int
}

// NewInvestigationPipeline wires the stage sequence. audit may be nil when
// turn auditing is disabled.
func NewInvestigationPipeline(
	classifier *ComplexityClassifier,
	schema *SchemaProvider,
	planner *InvestigationPlanner,
	generator *QueryGenerator,
	executor *QueryExecutor,
	enricher *VisualizationEnricher,
	synthesizer *Synthesizer,
	audit AuditStore,
	metrics *PipelineMetrics,
	logger Logger,
	historyWindow int,
) *InvestigationPipeline {
	return &InvestigationPipeline{
		classifier:    classifier,
		schema:        schema,
		planner:       planner,
		generator:     generator,
		executor:      executor,
		enricher:      enricher,
		synthesizer:   synthesizer,
		audit:         audit,
		metrics:       metrics,
		logger:        logger,
		historyWindow: historyWindow,
	}
}

// RunTurn answers one question within a session. Candidate exhaustion never
// fails the turn; a generation failure at the planner, generator, or
// synthesizer stage does, attributed to that stage. The session's history
// is appended only on success.
func (p *InvestigationPipeline) RunTurn(ctx context.Context, session *Session, question string) (*models.TurnResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "Question must not be empty", nil)
	}

	start := time.Now()
	label := p.classifier.Classify(question)
	p.metrics.ObserveStage(errors.StageClassifier, start)

	p.logger.Info("Turn started",
		String("session_id", session.ID),
		String("complexity", string(label)),
	)

	schemaContext := p.schema.Context(ctx, label)
	directionality := p.schema.Directionality()
	history := session.Recent(p.historyWindow)

	if err := ctx.Err(); err != nil {
		return nil, errors.WrapError(err, errors.ErrTypeTimeout, errors.ErrCodeProcessingError, "Turn abandoned before planning")
	}

	start = time.Now()
	p.metrics.CountGeneration(errors.StagePlanner)
	plan, err := p.planner.Plan(ctx, question, schemaContext, history)
	p.metrics.ObserveStage(errors.StagePlanner, start)
	if err != nil {
		return nil, p.failTurn(err)
	}

	start = time.Now()
	p.metrics.CountGeneration(errors.StageGenerator)
	candidates, err := p.generator.Generate(ctx, question, schemaContext, directionality, plan)
	p.metrics.ObserveStage(errors.StageGenerator, start)
	if err != nil {
		return nil, p.failTurn(err)
	}

	start = time.Now()
	outcomes := make([]models.ExecutionOutcome, 0, len(candidates))
	resultSets := make([]models.ResultSet, 0, len(candidates))
	for _, candidate := range candidates {
		outcome := p.executor.Execute(ctx, candidate, directionality)
		outcomes = append(outcomes, outcome)
		if outcome.Succeeded() {
			resultSets = append(resultSets, models.ResultSet{
				CandidateIndex: candidate.Index,
				Statement:      outcome.ExecutedStatement,
				Rows:           outcome.Rows,
			})
		}
	}
	p.metrics.ObserveStage(errors.StageExecutor, start)

	if err := ctx.Err(); err != nil {
		return nil, errors.WrapError(err, errors.ErrTypeTimeout, errors.ErrCodeProcessingError, "Turn abandoned before enrichment")
	}

	start = time.Now()
	graph := p.enricher.Enrich(ctx, resultSets)
	p.metrics.ObserveStage(errors.StageEnricher, start)

	start = time.Now()
	p.metrics.CountGeneration(errors.StageSynthesizer)
	answer, err := p.synthesizer.Synthesize(ctx, question, plan, outcomes)
	p.metrics.ObserveStage(errors.StageSynthesizer, start)
	if err != nil {
		return nil, p.failTurn(err)
	}

	turn := models.ConversationTurn{
		Question:   question,
		Complexity: label,
		Plan:       plan,
		Statements: executedStatements(outcomes),
		Answer:     answer,
		CreatedAt:  time.Now(),
	}
	session.Append(turn)
	p.metrics.CountTurn(string(label))

	if p.audit != nil {
		if err := p.audit.RecordTurn(ctx, session.ID, turn); err != nil {
			p.logger.Warn("Turn audit write failed",
				String("session_id", session.ID),
				Field("error", err.Error()),
			)
		}
	}

	result := &models.TurnResult{
		SessionID:       session.ID,
		Question:        question,
		Complexity:      label,
		Plan:            plan,
		ExecutedQueries: executedQueries(outcomes),
		Graph:           graph,
		Answer:          answer,
	}

	p.logger.Info("Turn completed",
		String("session_id", session.ID),
		Int("candidates", len(candidates)),
		Int("graph_nodes", len(graph.Nodes)),
	)
	return result, nil
}

// failTurn attributes a turn-level failure to its originating stage.
func (p *InvestigationPipeline) failTurn(err error) error {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Stage != "" {
		p.metrics.CountTurnFailure(appErr.Stage)
	}
	return err
}

func executedStatements(outcomes []models.ExecutionOutcome) []string {
	statements := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		statements = append(statements, outcome.ExecutedStatement)
	}
	return statements
}

func executedQueries(outcomes []models.ExecutionOutcome) []models.ExecutedQuery {
	queries := make([]models.ExecutedQuery, 0, len(outcomes))
	for _, outcome := range outcomes {
		queries = append(queries, models.ExecutedQuery{
			Statement: outcome.ExecutedStatement,
			Repaired:  outcome.Repaired,
			RowCount:  len(outcome.Rows),
			Error:     outcome.Error,
		})
	}
	return queries
}
