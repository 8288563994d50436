package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"graph-investigator/errors"
	"graph-investigator/models"
)

// InvestigationPlanner turns a question into a short prose investigation
// plan. The plan is a contract of convention: free text consumed only by
// the generator's prompt, never executed or parsed structurally.
type InvestigationPlanner struct {
	generation  GenerationService
	prompts     *PromptSet
	logger      Logger
	temperature float64
}

// NewInvestigationPlanner creates a planner stage.
func NewInvestigationPlanner(generation GenerationService, prompts *PromptSet, logger Logger, temperature float64) *InvestigationPlanner {
	return &InvestigationPlanner{
		generation:  generation,
		prompts:     prompts,
		logger:      logger,
		temperature: temperature,
	}
}

// Plan produces the investigation plan for a question. There is no retry:
// a planner failure is a turn failure attributed to this stage.
func (p *InvestigationPlanner) Plan(ctx context.Context, question, schemaContext string, history []models.ConversationTurn) (string, error) {
	prompt := p.prompts.RenderPlanner(schemaContext, renderHistory(history), question)

	raw, err := p.generation.Complete(ctx, p.prompts.PlannerSystem, prompt, p.temperature)
	if err != nil {
		return "", errors.NewGenerationError(errors.StagePlanner, "Investigation planning failed", err)
	}

	plan := sanitizePlan(raw)
	if plan == "" {
		return "", errors.NewGenerationError(errors.StagePlanner, "Investigation planner returned no usable text", nil)
	}

	p.logger.Debug("Investigation plan produced", Int("length", len(plan)))
	return plan, nil
}

// renderHistory serializes recent turns for prompt continuity. The caller
// has already windowed the slice.
func renderHistory(history []models.ConversationTurn) string {
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "User: %s\nApproach: %s\n\n", turn.Question, turn.Plan)
	}
	return b.String()
}

// queryLinePattern recognizes statement-shaped lines: an uppercase clause
// keyword in statement position. Prose sentences that happen to open with
// "With" or "Return" are not statements and must survive sanitization.
var queryLinePattern = regexp.MustCompile(`^(OPTIONAL MATCH|MATCH|RETURN|WITH)[ (]`)

// sanitizePlan enforces the planner/generator separation: fenced blocks and
// statement-shaped lines are stripped so a plan can never smuggle an
// executable statement into the next stage.
func sanitizePlan(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	var kept []string
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if queryLinePattern.MatchString(trimmed) {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}
