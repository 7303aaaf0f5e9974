package storage

import (
	"context"
	"strings"
	"testing"

	"OboGraphLoader/internal/logging"
)

func TestUpsertEdgeCypher(t *testing.T) {
	t.Parallel()

	createOnly := upsertEdgeCypher("PART_OF", "Term", "Term", false)
	if !strings.Contains(createOnly, "ON CREATE SET r += $attrs") {
		t.Fatalf("expected create-only attributes, got %q", createOnly)
	}
	if !strings.Contains(createOnly, "MERGE (a)-[r:`PART_OF`]->(b)") {
		t.Fatalf("unexpected merge clause: %q", createOnly)
	}

	overwrite := upsertEdgeCypher("HAS_SYNONYM", "SynonymCollection", "Synonym", true)
	if strings.Contains(overwrite, "ON CREATE") || !strings.Contains(overwrite, "SET r += $attrs") {
		t.Fatalf("expected unconditional set, got %q", overwrite)
	}
	if !strings.Contains(overwrite, "(a:`SynonymCollection` {id: $from}), (b:`Synonym` {id: $to})") {
		t.Fatalf("unexpected match clause: %q", overwrite)
	}
}

func TestNodeCypher(t *testing.T) {
	t.Parallel()

	if got := upsertNodeCypher("Term"); got != "MERGE (n:`Term` {id: $key}) SET n += $attrs" {
		t.Fatalf("unexpected node cypher: %q", got)
	}
	if got := addLabelCypher("Term", "molecular_function"); got != "MATCH (n:`Term` {id: $key}) SET n:`molecular_function`" {
		t.Fatalf("unexpected label cypher: %q", got)
	}
	if got := nodeExistsCypher("Publication"); !strings.HasPrefix(got, "OPTIONAL MATCH (n:`Publication` {id: $key})") {
		t.Fatalf("unexpected exists cypher: %q", got)
	}
}

func TestNewNeo4jGatewayRequiresURI(t *testing.T) {
	t.Parallel()

	if _, err := NewNeo4jGateway(context.Background(), Neo4jConfig{}, logging.Nop()); err == nil {
		t.Fatal("expected error for empty uri")
	}
}

func TestNonNil(t *testing.T) {
	t.Parallel()

	if nonNil(nil) == nil {
		t.Fatal("expected empty map")
	}
}
