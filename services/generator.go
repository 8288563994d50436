package services

import (
	"context"
	"strings"

	"graph-investigator/errors"
	"graph-investigator/models"
)

// QueryGenerator turns an investigation plan into 1 or 2 executable
// statements. It runs at a low-variance sampling setting: correctness here
// depends on syntactic precision, not phrasing.
type QueryGenerator struct {
	generation    GenerationService
	prompts       *PromptSet
	logger        Logger
	temperature   float64
	rowLimit      int
	maxCandidates int
}

// NewQueryGenerator creates a generator stage.
func NewQueryGenerator(generation GenerationService, prompts *PromptSet, logger Logger, temperature float64, rowLimit, maxCandidates int) *QueryGenerator {
	return &QueryGenerator{
		generation:    generation,
		prompts:       prompts,
		logger:        logger,
		temperature:   temperature,
		rowLimit:      rowLimit,
		maxCandidates: maxCandidates,
	}
}

// Generate produces query candidates for a plan. Zero usable candidates is
// a turn failure attributed to this stage.
func (g *QueryGenerator) Generate(ctx context.Context, question, schemaContext, directionality, plan string) ([]models.QueryCandidate, error) {
	prompt := g.prompts.RenderGenerator(schemaContext, directionality, question, plan, g.rowLimit)

	raw, err := g.generation.Complete(ctx, g.prompts.GeneratorSystem, prompt, g.temperature)
	if err != nil {
		return nil, errors.NewGenerationError(errors.StageGenerator, "Query generation failed", err)
	}

	candidates := g.parseCandidates(raw)
	if len(candidates) == 0 {
		return nil, errors.NewGenerationError(errors.StageGenerator, "Query generator returned no usable statements", nil)
	}

	g.logger.Debug("Query candidates generated", Int("count", len(candidates)))
	return candidates, nil
}

// parseCandidates splits raw generation output on the separator token,
// strips formatting artifacts, and drops empties. More statements than the
// cap are discarded from the tail.
func (g *QueryGenerator) parseCandidates(raw string) []models.QueryCandidate {
	clean := stripCodeFences(raw)
	if clean == "" {
		return nil
	}

	segments := strings.Split(clean, g.prompts.StatementSeparator)

	var candidates []models.QueryCandidate
	for _, segment := range segments {
		statement := stripCodeFences(segment)
		if statement == "" {
			continue
		}
		candidates = append(candidates, models.QueryCandidate{
			Index:     len(candidates) + 1,
			Statement: statement,
		})
		if len(candidates) == g.maxCandidates {
			break
		}
	}
	return candidates
}
