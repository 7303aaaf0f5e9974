package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/ports"
)

// SQLConfig selects the relational backend: driver is "sqlite3" or "postgres".
type SQLConfig struct {
	Driver string
	DSN    string
}

var sqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS graph_nodes (
		label TEXT NOT NULL,
		node_key TEXT NOT NULL,
		attributes TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (label, node_key)
	)`,
	`CREATE TABLE IF NOT EXISTS graph_node_labels (
		label TEXT NOT NULL,
		node_key TEXT NOT NULL,
		extra_label TEXT NOT NULL,
		PRIMARY KEY (label, node_key, extra_label)
	)`,
	`CREATE TABLE IF NOT EXISTS graph_edges (
		edge_type TEXT NOT NULL,
		from_label TEXT NOT NULL,
		from_key TEXT NOT NULL,
		to_label TEXT NOT NULL,
		to_key TEXT NOT NULL,
		attributes TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (edge_type, from_label, from_key, to_label, to_key)
	)`,
}

// SQLGateway stores the graph as node, label and edge tables. Primary keys
// carry the natural keys, so every write is an upsert.
type SQLGateway struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	driver string
	log    *logging.Logger
}

var (
	_ ports.GraphStore        = (*SQLGateway)(nil)
	_ ports.GraphPurger       = (*SQLGateway)(nil)
	_ ports.PublicationIndex  = (*SQLGateway)(nil)
	_ ports.ConstraintApplier = (*SQLGateway)(nil)
)

// NewSQLGateway opens the database and creates the tables if needed.
func NewSQLGateway(ctx context.Context, cfg SQLConfig, log *logging.Logger) (*SQLGateway, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite3"
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sql store: dsn is required")
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql store: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql store: ping %s: %w", driver, err)
	}

	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		placeholder = sq.Dollar
	}

	g := &SQLGateway{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		driver: driver,
		log:    log.With("component", "storage.sql", "driver", driver),
	}
	if err := g.ApplyConstraints(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return g, nil
}

// Close releases the connection pool.
func (g *SQLGateway) Close() error {
	return g.db.Close()
}

// ApplyConstraints creates the tables; their primary keys are the unique constraints.
func (g *SQLGateway) ApplyConstraints(ctx context.Context) error {
	for _, stmt := range sqlSchema {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sql store: create schema: %w", err)
		}
	}
	return nil
}

// UpsertNode inserts the node or merges attrs into the stored attributes in
// a single statement. Empty attrs never touch an existing row.
func (g *SQLGateway) UpsertNode(ctx context.Context, label, key string, attrs map[string]any) error {
	if err := checkRef(domain.NodeRef{Label: label, Key: key}); err != nil {
		return err
	}

	query, args, err := g.upsertNodeSQL(label, key, attrs)
	if err != nil {
		return err
	}
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sql store: upsert node %s %s: %w", label, key, err)
	}
	return nil
}

func (g *SQLGateway) upsertNodeSQL(label, key string, attrs map[string]any) (string, []any, error) {
	attrs = withoutNil(attrs)
	payload, err := encodeAttributes(attrs)
	if err != nil {
		return "", nil, err
	}

	conflict := "ON CONFLICT (label, node_key) DO NOTHING"
	if len(attrs) > 0 {
		conflict = "ON CONFLICT (label, node_key) DO UPDATE SET attributes = " + g.mergeExpr("graph_nodes.attributes", "excluded.attributes")
	}
	return g.sb.Insert("graph_nodes").
		Columns("label", "node_key", "attributes").
		Values(label, key, payload).
		Suffix(conflict).
		ToSql()
}

// mergeExpr overlays the JSON object update onto current inside the database.
func (g *SQLGateway) mergeExpr(current, update string) string {
	if g.driver == "sqlite3" {
		return fmt.Sprintf("json_patch(%s, %s)", current, update)
	}
	return fmt.Sprintf("(%s::jsonb || %s::jsonb)::text", current, update)
}

// NodeExists reports whether a graph_nodes row exists for the label and key.
func (g *SQLGateway) NodeExists(ctx context.Context, label, key string) (bool, error) {
	query, args, err := g.sb.Select("1").
		From("graph_nodes").
		Where(sq.Eq{"label": label, "node_key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = g.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sql store: node exists %s %s: %w", label, key, err)
	}
	return true, nil
}

// UpsertEdge inserts the edge row once both endpoints exist. An existing
// row is merged with attrs only when overwrite is set.
func (g *SQLGateway) UpsertEdge(ctx context.Context, edgeType string, from, to domain.NodeRef, attrs map[string]any, overwrite bool) error {
	if err := checkIdentifier("edge type", edgeType); err != nil {
		return err
	}

	return g.inTx(ctx, func(tx *sql.Tx) error {
		for _, ref := range []domain.NodeRef{from, to} {
			_, found, err := g.nodeAttributes(ctx, tx, ref.Label, ref.Key)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s %s: %w", ref.Label, ref.Key, domain.ErrMissingEndpoint)
			}
		}

		edgeKey := sq.Eq{
			"edge_type":  edgeType,
			"from_label": from.Label,
			"from_key":   from.Key,
			"to_label":   to.Label,
			"to_key":     to.Key,
		}
		query, args, err := g.sb.Select("attributes").From("graph_edges").Where(edgeKey).ToSql()
		if err != nil {
			return err
		}
		var raw string
		err = tx.QueryRowContext(ctx, query, args...).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			payload, encErr := encodeAttributes(attrs)
			if encErr != nil {
				return encErr
			}
			query, args, err = g.sb.Insert("graph_edges").
				Columns("edge_type", "from_label", "from_key", "to_label", "to_key", "attributes").
				Values(edgeType, from.Label, from.Key, to.Label, to.Key, payload).
				Suffix("ON CONFLICT DO NOTHING").
				ToSql()
		case err != nil:
			return fmt.Errorf("load edge %s: %w", edgeType, err)
		case !overwrite:
			return nil
		default:
			payload, encErr := encodeAttributes(withoutNil(attrs))
			if encErr != nil {
				return encErr
			}
			query, args, err = g.sb.Update("graph_edges").
				Set("attributes", sq.Expr(g.mergeExpr("attributes", "?"), payload)).
				Where(edgeKey).
				ToSql()
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert edge %s %s->%s: %w", edgeType, from.Key, to.Key, err)
		}
		return nil
	})
}

// AddLabel records a secondary label for an existing node.
func (g *SQLGateway) AddLabel(ctx context.Context, ref domain.NodeRef, label string) error {
	if err := checkIdentifier("label", label); err != nil {
		return err
	}

	return g.inTx(ctx, func(tx *sql.Tx) error {
		_, found, err := g.nodeAttributes(ctx, tx, ref.Label, ref.Key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s %s: %w", ref.Label, ref.Key, domain.ErrMissingEndpoint)
		}
		query, args, err := g.sb.Insert("graph_node_labels").
			Columns("label", "node_key", "extra_label").
			Values(ref.Label, ref.Key, label).
			Suffix("ON CONFLICT DO NOTHING").
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("add label %s: %w", label, err)
		}
		return nil
	})
}

// Labels returns the secondary labels attached to a node, sorted.
func (g *SQLGateway) Labels(ctx context.Context, ref domain.NodeRef) ([]string, error) {
	query, args, err := g.sb.Select("extra_label").
		From("graph_node_labels").
		Where(sq.Eq{"label": ref.Label, "node_key": ref.Key}).
		OrderBy("extra_label").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sql store: labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("sql store: scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// PurgeOntology deletes ontology nodes together with their labels and edges.
func (g *SQLGateway) PurgeOntology(ctx context.Context) error {
	return g.inTx(ctx, func(tx *sql.Tx) error {
		statements := []sq.Sqlizer{
			g.sb.Delete("graph_edges").Where(sq.Or{
				sq.Eq{"from_label": ontologyLabels},
				sq.Eq{"to_label": ontologyLabels},
			}),
			g.sb.Delete("graph_node_labels").Where(sq.Eq{"label": ontologyLabels}),
			g.sb.Delete("graph_nodes").Where(sq.Eq{"label": ontologyLabels}),
		}
		for _, stmt := range statements {
			query, args, err := stmt.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("purge ontology: %w", err)
			}
		}
		g.log.Info("purged ontology nodes", "labels", ontologyLabels)
		return nil
	})
}

// PendingPublications lists publication keys whose title is still empty,
// least recently attempted first.
func (g *SQLGateway) PendingPublications(ctx context.Context, limit int) ([]string, error) {
	query, args, err := g.sb.Select("node_key", "attributes").
		From("graph_nodes").
		Where(sq.Eq{"label": domain.LabelPublication}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sql store: pending publications: %w", err)
	}
	defer rows.Close()

	var pending []pendingPublication
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("sql store: scan publication: %w", err)
		}
		attrs, err := decodeAttributes(raw)
		if err != nil {
			return nil, err
		}
		if p, ok := pendingFromAttributes(key, attrs); ok {
			pending = append(pending, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sql store: pending publications: %w", err)
	}
	return orderPending(pending, limit), nil
}

// NodeAttributes returns the stored attributes of a node.
func (g *SQLGateway) NodeAttributes(ctx context.Context, ref domain.NodeRef) (map[string]any, bool, error) {
	return g.nodeAttributes(ctx, g.db, ref.Label, ref.Key)
}

// EdgeAttributes returns the stored attributes of an edge.
func (g *SQLGateway) EdgeAttributes(ctx context.Context, key EdgeKey) (map[string]any, bool, error) {
	query, args, err := g.sb.Select("attributes").From("graph_edges").Where(sq.Eq{
		"edge_type":  key.Type,
		"from_label": key.From.Label,
		"from_key":   key.From.Key,
		"to_label":   key.To.Label,
		"to_key":     key.To.Key,
	}).ToSql()
	if err != nil {
		return nil, false, err
	}
	var raw string
	err = g.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sql store: load edge: %w", err)
	}
	attrs, err := decodeAttributes(raw)
	return attrs, err == nil, err
}

// Count returns the number of rows in table matching where.
func (g *SQLGateway) Count(ctx context.Context, table string, where sq.Eq) (int, error) {
	builder := g.sb.Select("COUNT(*)").From(table)
	if len(where) > 0 {
		builder = builder.Where(where)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := g.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sql store: count %s: %w", table, err)
	}
	return n, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (g *SQLGateway) nodeAttributes(ctx context.Context, q queryRower, label, key string) (map[string]any, bool, error) {
	query, args, err := g.sb.Select("attributes").
		From("graph_nodes").
		Where(sq.Eq{"label": label, "node_key": key}).
		ToSql()
	if err != nil {
		return nil, false, err
	}
	var raw string
	err = q.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load node %s %s: %w", label, key, err)
	}
	attrs, err := decodeAttributes(raw)
	if err != nil {
		return nil, false, err
	}
	return attrs, true, nil
}

func (g *SQLGateway) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sql store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sql store: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sql store: commit: %w", err)
	}
	return nil
}

func encodeAttributes(attrs map[string]any) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(raw), nil
}

// withoutNil drops nil values; a JSON merge patch would read them as deletions.
func withoutNil(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

func decodeAttributes(raw string) (map[string]any, error) {
	attrs := map[string]any{}
	if raw == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return attrs, nil
}
