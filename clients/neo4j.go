package clients

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"graph-investigator/config"
	"graph-investigator/errors"
	"graph-investigator/models"
)

// Neo4jStore executes read statements against a Neo4j database. Each
// statement runs under its own timeout so one slow candidate cannot consume
// the whole turn budget.
type Neo4jStore struct {
	driver       neo4j.DriverWithContext
	database     string
	queryTimeout time.Duration
}

// NewNeo4jStore connects to the graph store and verifies connectivity.
func NewNeo4jStore(ctx context.Context, cfg config.Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, errors.NewDatabaseError(
			errors.ErrCodeStoreConnection,
			"Failed to create graph store driver",
			err,
		)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, errors.NewDatabaseError(
			errors.ErrCodeStoreConnection,
			"Failed to reach graph store at "+cfg.URI,
			err,
		)
	}

	return &Neo4jStore{
		driver:       driver,
		database:     cfg.Database,
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// Run executes one statement and eagerly materializes its rows. Store-
// reported statement errors and timeouts are classified distinctly; the
// caller decides whether a failure is repairable.
func (s *Neo4jStore) Run(ctx context.Context, statement string, params map[string]interface{}) ([]models.Row, error) {
	queryCtx := ctx
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	result, err := neo4j.ExecuteQuery(queryCtx, s.driver, statement, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewStoreTimeoutError("Statement exceeded the execution timeout", err)
		}
		return nil, errors.NewStoreError("Statement execution failed", err)
	}

	rows := make([]models.Row, 0, len(result.Records))
	for _, record := range result.Records {
		row := make(models.Row, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = convertValue(record.Values[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// convertValue maps driver types onto the store-agnostic result model.
// Paths are flattened into an alternating node/relationship slice.
func convertValue(value interface{}) interface{} {
	switch v := value.(type) {
	case dbtype.Node:
		return convertNode(v)
	case dbtype.Relationship:
		return convertRelationship(v)
	case dbtype.Path:
		flattened := make([]interface{}, 0, len(v.Nodes)+len(v.Relationships))
		for _, node := range v.Nodes {
			flattened = append(flattened, convertNode(node))
		}
		for _, rel := range v.Relationships {
			flattened = append(flattened, convertRelationship(rel))
		}
		return flattened
	case []interface{}:
		converted := make([]interface{}, len(v))
		for i, item := range v {
			converted[i] = convertValue(item)
		}
		return converted
	default:
		return v
	}
}

func convertNode(n dbtype.Node) models.Node {
	return models.Node{
		ElementID:  n.ElementId,
		Labels:     n.Labels,
		Properties: n.Props,
	}
}

func convertRelationship(r dbtype.Relationship) models.Relationship {
	return models.Relationship{
		ElementID:      r.ElementId,
		Type:           r.Type,
		StartElementID: r.StartElementId,
		EndElementID:   r.EndElementId,
		Properties:     r.Props,
	}
}
