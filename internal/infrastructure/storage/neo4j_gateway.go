package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/ports"
)

// Neo4jConfig describes how to reach the Neo4j server.
type Neo4jConfig struct {
	URI            string
	User           string
	Password       string
	Database       string
	MaxPoolSize    int
	TimeoutSeconds int
}

// Constraints are the unique-key constraints every import relies on. They
// are applied once, before the first import, and never change at runtime.
var Constraints = []string{
	"CREATE CONSTRAINT unique_term_id IF NOT EXISTS FOR (n:Term) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT unique_synonym_collection_id IF NOT EXISTS FOR (n:SynonymCollection) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT unique_synonym_id IF NOT EXISTS FOR (n:Synonym) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT unique_publication_id IF NOT EXISTS FOR (n:Publication) REQUIRE n.id IS UNIQUE",
}

// Neo4jGateway implements GraphStore with Cypher MERGE statements keyed on
// the node property "id".
type Neo4jGateway struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logging.Logger
}

var (
	_ ports.GraphStore        = (*Neo4jGateway)(nil)
	_ ports.GraphPurger       = (*Neo4jGateway)(nil)
	_ ports.PublicationIndex  = (*Neo4jGateway)(nil)
	_ ports.ConstraintApplier = (*Neo4jGateway)(nil)
)

// NewNeo4jGateway opens a driver and verifies connectivity.
func NewNeo4jGateway(ctx context.Context, cfg Neo4jConfig, log *logging.Logger) (*Neo4jGateway, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j: uri is required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Neo4jGateway{
		driver:   driver,
		database: cfg.Database,
		log:      log.With("component", "storage.neo4j"),
	}, nil
}

// Close releases the driver and its connection pool.
func (g *Neo4jGateway) Close(ctx context.Context) error {
	if g == nil || g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}

// UpsertNode MERGEs the node on its id and sets the given properties.
func (g *Neo4jGateway) UpsertNode(ctx context.Context, label, key string, attrs map[string]any) error {
	if err := checkRef(domain.NodeRef{Label: label, Key: key}); err != nil {
		return err
	}
	return g.write(ctx, upsertNodeCypher(label), map[string]any{
		"key":   key,
		"attrs": nonNil(attrs),
	})
}

// NodeExists reports whether a node with the label and id is present.
func (g *Neo4jGateway) NodeExists(ctx context.Context, label, key string) (bool, error) {
	if err := checkIdentifier("label", label); err != nil {
		return false, err
	}
	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	exists, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, nodeExistsCypher(label), map[string]any{"key": key})
		if err != nil {
			return false, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return false, err
		}
		v, _ := rec.Get("found")
		found, _ := v.(bool)
		return found, nil
	})
	if err != nil {
		return false, fmt.Errorf("neo4j: node exists %s %s: %w", label, key, err)
	}
	return exists.(bool), nil
}

// UpsertEdge MERGEs the relationship between two existing nodes. Properties
// are set ON CREATE, and also ON MATCH when overwrite is set.
func (g *Neo4jGateway) UpsertEdge(ctx context.Context, edgeType string, from, to domain.NodeRef, attrs map[string]any, overwrite bool) error {
	if err := checkIdentifier("edge type", edgeType); err != nil {
		return err
	}
	if err := checkRef(from); err != nil {
		return err
	}
	if err := checkRef(to); err != nil {
		return err
	}

	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	matched, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, upsertEdgeCypher(edgeType, from.Label, to.Label, overwrite), map[string]any{
			"from":  from.Key,
			"to":    to.Key,
			"attrs": nonNil(attrs),
		})
		if err != nil {
			return int64(0), err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return int64(0), err
		}
		v, _ := rec.Get("matched")
		n, _ := v.(int64)
		return n, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j: upsert edge %s: %w", edgeType, err)
	}
	if matched.(int64) == 0 {
		return fmt.Errorf("neo4j: upsert edge %s %s->%s: %w", edgeType, from.Key, to.Key, domain.ErrMissingEndpoint)
	}
	return nil
}

// AddLabel sets a secondary label on an existing node.
func (g *Neo4jGateway) AddLabel(ctx context.Context, ref domain.NodeRef, label string) error {
	if err := checkRef(ref); err != nil {
		return err
	}
	if err := checkIdentifier("label", label); err != nil {
		return err
	}
	return g.write(ctx, addLabelCypher(ref.Label, label), map[string]any{"key": ref.Key})
}

// PurgeOntology detaches and deletes Term, SynonymCollection and Synonym nodes.
func (g *Neo4jGateway) PurgeOntology(ctx context.Context) error {
	for _, label := range ontologyLabels {
		if err := g.write(ctx, fmt.Sprintf("MATCH (n:`%s`) DETACH DELETE n", label), nil); err != nil {
			return err
		}
		g.log.Info("purged ontology nodes", "label", label)
	}
	return nil
}

// PendingPublications returns publication ids whose title is still empty,
// least recently attempted first.
func (g *Neo4jGateway) PendingPublications(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (p:Publication)
WHERE coalesce(p.title, '') = ''
RETURN p.id AS id
ORDER BY coalesce(p.`+domain.AttrEnrichAttemptedAt+`, ''), id
LIMIT $limit
`, map[string]any{"limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(records))
		for _, rec := range records {
			if v, ok := rec.Get("id"); ok {
				if id, ok := v.(string); ok {
					ids = append(ids, id)
				}
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: pending publications: %w", err)
	}
	return out.([]string), nil
}

// ApplyConstraints creates the unique-key constraints if they are missing.
func (g *Neo4jGateway) ApplyConstraints(ctx context.Context) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range Constraints {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("neo4j: apply constraint: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("neo4j: apply constraint: %w", err)
		}
		g.log.Info("constraint defined", "statement", stmt)
	}
	return nil
}

func (g *Neo4jGateway) write(ctx context.Context, cypher string, params map[string]any) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("neo4j: write: %w", err)
	}
	return nil
}

func (g *Neo4jGateway) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return g.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: g.database,
	})
}

func upsertNodeCypher(label string) string {
	return fmt.Sprintf("MERGE (n:`%s` {id: $key}) SET n += $attrs", label)
}

func nodeExistsCypher(label string) string {
	return fmt.Sprintf("OPTIONAL MATCH (n:`%s` {id: $key}) RETURN n IS NOT NULL AS found LIMIT 1", label)
}

func addLabelCypher(label, extra string) string {
	return fmt.Sprintf("MATCH (n:`%s` {id: $key}) SET n:`%s`", label, extra)
}

// upsertEdgeCypher always yields one row: count(r) over an empty match is
// zero, which reports a missing endpoint instead of silently doing nothing.
func upsertEdgeCypher(edgeType, fromLabel, toLabel string, overwrite bool) string {
	set := "ON CREATE SET r += $attrs"
	if overwrite {
		set = "SET r += $attrs"
	}
	return fmt.Sprintf("MATCH (a:`%s` {id: $from}), (b:`%s` {id: $to}) "+
		"MERGE (a)-[r:`%s`]->(b) %s RETURN count(r) AS matched",
		fromLabel, toLabel, edgeType, set)
}

func nonNil(attrs map[string]any) map[string]any {
	if attrs == nil {
		return map[string]any{}
	}
	return attrs
}
