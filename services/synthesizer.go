package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"graph-investigator/errors"
	"graph-investigator/models"
)

// Synthesizer converts raw result rows into a narrative answer plus a
// bounded set of follow-up questions. Its analytical frame is applied
// strictly to rows already retrieved; interpretive knowledge never shapes
// what gets traversed.
type Synthesizer struct {
	generation   GenerationService
	prompts      *PromptSet
	logger       Logger
	temperature  float64
	rowCap       int
	maxFollowUps int
}

// NewSynthesizer creates a synthesizer stage.
func NewSynthesizer(generation GenerationService, prompts *PromptSet, logger Logger, temperature float64, rowCap, maxFollowUps int) *Synthesizer {
	return &Synthesizer{
		generation:   generation,
		prompts:      prompts,
		logger:       logger,
		temperature:  temperature,
		rowCap:       rowCap,
		maxFollowUps: maxFollowUps,
	}
}

// Synthesize produces the answer for a turn. A degraded synthesis (missing
// delimiter, or empty output) yields an empty or follow-up-free answer
// rather than a turn failure; the caller still has the raw results.
func (s *Synthesizer) Synthesize(ctx context.Context, question, plan string, outcomes []models.ExecutionOutcome) (models.Answer, error) {
	serialized, err := s.serializeOutcomes(outcomes)
	if err != nil {
		return models.Answer{FollowUps: []string{}}, err
	}

	prompt := s.prompts.RenderSynthesis(question, plan, serialized)
	raw, err := s.generation.Complete(ctx, s.prompts.SynthesisSystem, prompt, s.temperature)
	if err != nil {
		return models.Answer{FollowUps: []string{}},
			errors.NewGenerationError(errors.StageSynthesizer, "Answer synthesis failed", err)
	}

	answer := s.parseAnswer(raw)
	if answer.Narrative == "" && len(answer.FollowUps) == 0 {
		s.logger.Warn("Synthesis degraded to empty answer")
	}
	return answer, nil
}

// serializedResult is the prompt-facing shape of one candidate's outcome.
type serializedResult struct {
	QueryIndex int                      `json:"query_index"`
	Statement  string                   `json:"statement"`
	RowCount   int                      `json:"row_count"`
	Rows       []map[string]interface{} `json:"rows,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// serializeOutcomes renders outcomes as size-bounded JSON: at most rowCap
// rows per candidate, nodes as property maps, relationships as type tokens.
func (s *Synthesizer) serializeOutcomes(outcomes []models.ExecutionOutcome) (string, error) {
	results := make([]serializedResult, 0, len(outcomes))
	for _, outcome := range outcomes {
		result := serializedResult{
			QueryIndex: outcome.Candidate.Index,
			Statement:  outcome.ExecutedStatement,
			RowCount:   len(outcome.Rows),
			Error:      outcome.Error,
		}

		rows := outcome.Rows
		if len(rows) > s.rowCap {
			rows = rows[:s.rowCap]
		}
		for _, row := range rows {
			serializedRow := make(map[string]interface{}, len(row))
			for alias, value := range row {
				serializedRow[alias] = serializeValue(value)
			}
			result.Rows = append(result.Rows, serializedRow)
		}
		results = append(results, result)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", errors.WithStage(errors.NewInternalError(
			errors.ErrCodeSerializationError,
			"Failed to serialize results for synthesis",
			err,
		), errors.StageSynthesizer)
	}
	return string(data), nil
}

func serializeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case models.Node:
		return v.Properties
	case models.Relationship:
		return fmt.Sprintf("[:%s]", v.Type)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = serializeValue(item)
		}
		return out
	default:
		return v
	}
}

// listMarkerPattern matches a leading bullet or ordinal marker. Only the
// marker is stripped; a question that opens with a number keeps it.
var listMarkerPattern = regexp.MustCompile(`^(?:[-*]|\d+[.)])\s+`)

// parseAnswer splits raw output on the follow-up delimiter. A missing or
// malformed delimiter yields zero follow-ups rather than a failure.
func (s *Synthesizer) parseAnswer(raw string) models.Answer {
	text := strings.TrimSpace(raw)
	answer := models.Answer{FollowUps: []string{}}

	idx := strings.Index(text, s.prompts.FollowUpDelimiter)
	if idx < 0 {
		answer.Narrative = text
		return answer
	}

	answer.Narrative = strings.TrimSpace(text[:idx])
	tail := text[idx+len(s.prompts.FollowUpDelimiter):]

	for _, line := range strings.Split(tail, "\n") {
		question := strings.TrimSpace(line)
		question = listMarkerPattern.ReplaceAllString(question, "")
		if question == "" {
			continue
		}
		answer.FollowUps = append(answer.FollowUps, question)
		if len(answer.FollowUps) == s.maxFollowUps {
			break
		}
	}
	return answer
}
