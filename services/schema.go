package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"graph-investigator/errors"
	"graph-investigator/models"
)

// Statements used to augment deep-turn schema context with live cardinality
// statistics. Best-effort: a failure here degrades to the static schema.
const (
	labelCountStatement = `MATCH (n)
WITH labels(n)[0] AS label, count(n) AS cnt
RETURN label, cnt ORDER BY cnt DESC`

	highVolumeProviderStatement = `MATCH (p:Provider)<-[:TREATED_AT]-(c:Claim)
WITH p, count(c) AS claim_count
WHERE claim_count > 3
OPTIONAL MATCH (p)<-[:TREATED_AT]-(c2:Claim)-[:REPRESENTED_BY]->(a:Attorney)
WITH p, claim_count, count(DISTINCT a) AS attorney_count
RETURN p.name AS name, p.id AS id, claim_count, attorney_count
ORDER BY claim_count DESC LIMIT 5`

	highVolumeAttorneyStatement = `MATCH (a:Attorney)<-[:REPRESENTED_BY]-(c:Claim)
WITH a, count(c) AS claim_count, sum(c.claim_amount) AS total_exposure
WHERE claim_count > 3
RETURN a.name AS name, a.id AS id, claim_count, total_exposure
ORDER BY claim_count DESC LIMIT 5`
)

// SchemaProvider supplies the structural description of the graph at two
// fidelities. The view itself is loaded once and immutable; live statistics
// are fetched per deep turn and attached to the rendered context only.
type SchemaProvider struct {
	view           *models.SchemaView
	store          GraphStore
	logger         Logger
	liveStatistics bool
}

// LoadSchemaView parses the YAML structural description.
func LoadSchemaView(path string) (*models.SchemaView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInternalError(
			errors.ErrCodeSchemaLoad,
			"Failed to read schema description: "+path,
			err,
		)
	}

	var view models.SchemaView
	if err := yaml.Unmarshal(data, &view); err != nil {
		return nil, errors.NewInternalError(
			errors.ErrCodeSchemaLoad,
			"Failed to parse schema description: "+path,
			err,
		)
	}

	if len(view.Entities) == 0 || len(view.Relationships) == 0 {
		return nil, errors.NewInternalError(
			errors.ErrCodeSchemaLoad,
			"Schema description has no entities or relationships",
			nil,
		)
	}

	return &view, nil
}

// NewSchemaProvider wires a loaded view to the store used for statistics.
func NewSchemaProvider(view *models.SchemaView, store GraphStore, logger Logger, liveStatistics bool) *SchemaProvider {
	return &SchemaProvider{
		view:           view,
		store:          store,
		logger:         logger,
		liveStatistics: liveStatistics,
	}
}

// View returns the immutable structural description.
func (s *SchemaProvider) View() *models.SchemaView {
	return s.view
}

// Directionality returns the relationship-direction subset used by repair.
func (s *SchemaProvider) Directionality() string {
	return s.view.Directionality()
}

// Context renders the schema at the fidelity the complexity label selects:
// compact for simple turns, full plus live statistics for deep turns. The
// label controls prompt size and cost only, never correctness.
func (s *SchemaProvider) Context(ctx context.Context, label models.ComplexityLabel) string {
	if label != models.ComplexityDeep {
		return s.view.Compact()
	}

	rendered := s.view.Full()
	if s.liveStatistics && s.store != nil {
		if stats := s.statistics(ctx); stats != "" {
			rendered += "\n" + stats
		}
	}
	return rendered
}

// statistics fetches live cardinality context. Transient store errors are
// retried; a final failure degrades to no statistics.
func (s *SchemaProvider) statistics(ctx context.Context) string {
	var b strings.Builder

	counts, err := errors.ExecuteWithResult(ctx, errors.DatabaseRetryConfig(), func() ([]models.Row, error) {
		return s.store.Run(ctx, labelCountStatement, nil)
	})
	if err != nil {
		s.logger.Warn("Schema statistics unavailable", Field("error", err.Error()))
		return ""
	}

	if len(counts) > 0 {
		b.WriteString("LIVE DATABASE SUMMARY:\n")
		for _, row := range counts {
			label, _ := row["label"].(string)
			if label == "" {
				continue
			}
			fmt.Fprintf(&b, "  - %s: %v nodes\n", label, row["cnt"])
		}
	}

	s.appendVolumeSummary(ctx, &b, "HIGH-VOLUME PROVIDERS:", highVolumeProviderStatement,
		func(row models.Row) string {
			return fmt.Sprintf("  - %v (id: %v): %v claims, %v distinct attorneys",
				row["name"], row["id"], row["claim_count"], row["attorney_count"])
		})

	s.appendVolumeSummary(ctx, &b, "HIGH-VOLUME ATTORNEYS:", highVolumeAttorneyStatement,
		func(row models.Row) string {
			return fmt.Sprintf("  - %v (id: %v): %v claims, %v total exposure",
				row["name"], row["id"], row["claim_count"], row["total_exposure"])
		})

	return b.String()
}

func (s *SchemaProvider) appendVolumeSummary(ctx context.Context, b *strings.Builder, heading, statement string, format func(models.Row) string) {
	rows, err := s.store.Run(ctx, statement, nil)
	if err != nil || len(rows) == 0 {
		return
	}
	b.WriteString(heading + "\n")
	for _, row := range rows {
		b.WriteString(format(row) + "\n")
	}
}

// SuggestedQuestions returns curated starter questions spanning the
// schema's main investigation chains.
func (s *SchemaProvider) SuggestedQuestions() []string {
	return []string{
		"Show me the highest-volume providers and their attorney connections",
		"Which claims have the largest dollar exposure?",
		"Are there attorneys sharing the same fax phone number?",
		"Find people who appear in multiple claims in different roles",
		"Which attorneys represent the most claimants?",
		"Find claims where the policy bind date is close to the claim date",
		"What providers have had their licenses revoked?",
	}
}
