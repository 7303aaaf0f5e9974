package ports

import (
	"context"
	"time"

	"OboGraphLoader/internal/domain"
)

// BlockSource yields the raw lines of successive term stanzas. ok is false
// once the input is exhausted; lines may be empty for a stanza without body.
type BlockSource interface {
	NextBlock() (lines []string, ok bool)
	Err() error
}

// TermDecoder converts the lines of one stanza into a term.
type TermDecoder interface {
	Decode(lines []string) domain.Term
}

// GraphStore is the gateway to the backing graph database. Every operation
// is keyed and must be safe under repeated identical invocation.
type GraphStore interface {
	// UpsertNode merges the node by label and key and sets the given attributes.
	// Nil or empty attributes leave an existing node untouched.
	UpsertNode(ctx context.Context, label, key string, attrs map[string]any) error
	NodeExists(ctx context.Context, label, key string) (bool, error)
	// UpsertEdge merges the edge keyed by (from, edgeType, to). Attributes are
	// written on creation only unless overwrite is set.
	UpsertEdge(ctx context.Context, edgeType string, from, to domain.NodeRef, attrs map[string]any, overwrite bool) error
	// AddLabel tags an existing node with a secondary label.
	AddLabel(ctx context.Context, node domain.NodeRef, label string) error
}

// GraphPurger removes previously imported ontology nodes ahead of a reload.
type GraphPurger interface {
	PurgeOntology(ctx context.Context) error
}

// ConstraintApplier installs unique-key constraints before the first import.
type ConstraintApplier interface {
	ApplyConstraints(ctx context.Context) error
}

// PublicationIndex lists publication placeholders that still lack metadata.
type PublicationIndex interface {
	PendingPublications(ctx context.Context, limit int) ([]string, error)
}

// PublicationQueue hands linked publication ids to the enrichment pass.
type PublicationQueue interface {
	Enqueue(ctx context.Context, ids ...string) error
	Dequeue(ctx context.Context, count int) ([]string, error)
}

// PublicationFetcher retrieves bibliographic metadata for a publication id.
type PublicationFetcher interface {
	Fetch(ctx context.Context, pubID string) (domain.Publication, error)
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
