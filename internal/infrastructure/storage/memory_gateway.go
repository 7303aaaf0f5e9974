package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/ports"
)

// EdgeKey identifies an edge by its endpoints and type.
type EdgeKey struct {
	Type string
	From domain.NodeRef
	To   domain.NodeRef
}

// Node is a snapshot of a stored node.
type Node struct {
	Ref        domain.NodeRef
	Labels     []string
	Attributes map[string]any
}

type memoryNode struct {
	labels map[string]struct{}
	attrs  map[string]any
}

// MemoryGateway is an in-process GraphStore used for dry runs and tests.
type MemoryGateway struct {
	mu    sync.RWMutex
	nodes map[domain.NodeRef]*memoryNode
	edges map[EdgeKey]map[string]any
}

var (
	_ ports.GraphStore       = (*MemoryGateway)(nil)
	_ ports.GraphPurger      = (*MemoryGateway)(nil)
	_ ports.PublicationIndex = (*MemoryGateway)(nil)
)

// NewMemoryGateway returns an empty store.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		nodes: map[domain.NodeRef]*memoryNode{},
		edges: map[EdgeKey]map[string]any{},
	}
}

// UpsertNode creates the node or copies attrs over its attributes.
func (m *MemoryGateway) UpsertNode(_ context.Context, label, key string, attrs map[string]any) error {
	ref := domain.NodeRef{Label: label, Key: key}
	if err := checkRef(ref); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[ref]
	if !ok {
		node = &memoryNode{labels: map[string]struct{}{label: {}}, attrs: map[string]any{}}
		m.nodes[ref] = node
	}
	maps.Copy(node.attrs, attrs)
	return nil
}

// NodeExists reports whether a node with the label and key is stored.
func (m *MemoryGateway) NodeExists(_ context.Context, label, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[domain.NodeRef{Label: label, Key: key}]
	return ok, nil
}

// UpsertEdge creates the edge between two stored nodes. Attributes of an
// existing edge change only when overwrite is set.
func (m *MemoryGateway) UpsertEdge(_ context.Context, edgeType string, from, to domain.NodeRef, attrs map[string]any, overwrite bool) error {
	if err := checkIdentifier("edge type", edgeType); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ref := range []domain.NodeRef{from, to} {
		if _, ok := m.nodes[ref]; !ok {
			return fmt.Errorf("%s %s: %w", ref.Label, ref.Key, domain.ErrMissingEndpoint)
		}
	}

	key := EdgeKey{Type: edgeType, From: from, To: to}
	existing, ok := m.edges[key]
	switch {
	case !ok:
		m.edges[key] = mergeAttributes(nil, attrs)
	case overwrite:
		maps.Copy(existing, attrs)
	}
	return nil
}

// AddLabel attaches a secondary label to a stored node.
func (m *MemoryGateway) AddLabel(_ context.Context, ref domain.NodeRef, label string) error {
	if err := checkIdentifier("label", label); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[ref]
	if !ok {
		return fmt.Errorf("%s %s: %w", ref.Label, ref.Key, domain.ErrMissingEndpoint)
	}
	node.labels[label] = struct{}{}
	return nil
}

// PurgeOntology drops ontology nodes and every edge touching them.
func (m *MemoryGateway) PurgeOntology(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ref := range m.nodes {
		if slices.Contains(ontologyLabels, ref.Label) {
			delete(m.nodes, ref)
		}
	}
	for key := range m.edges {
		_, fromOK := m.nodes[key.From]
		_, toOK := m.nodes[key.To]
		if !fromOK || !toOK {
			delete(m.edges, key)
		}
	}
	return nil
}

// PendingPublications lists publication keys without a title. Keys never
// attempted come first, then the least recently attempted.
func (m *MemoryGateway) PendingPublications(_ context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []pendingPublication
	for ref, node := range m.nodes {
		if ref.Label != domain.LabelPublication {
			continue
		}
		if p, ok := pendingFromAttributes(ref.Key, node.attrs); ok {
			pending = append(pending, p)
		}
	}
	return orderPending(pending, limit), nil
}

// Node returns a copy of the stored node.
func (m *MemoryGateway) Node(ref domain.NodeRef) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[ref]
	if !ok {
		return Node{}, false
	}
	labels := slices.Sorted(maps.Keys(node.labels))
	return Node{Ref: ref, Labels: labels, Attributes: maps.Clone(node.attrs)}, true
}

// Edge returns a copy of the stored edge attributes.
func (m *MemoryGateway) Edge(key EdgeKey) (map[string]any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	attrs, ok := m.edges[key]
	return maps.Clone(attrs), ok
}

// CountNodes returns the number of nodes with the given primary label.
func (m *MemoryGateway) CountNodes(label string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for ref := range m.nodes {
		if ref.Label == label {
			n++
		}
	}
	return n
}

// CountEdges returns the number of edges of the given type; "" counts all.
func (m *MemoryGateway) CountEdges(edgeType string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if edgeType == "" {
		return len(m.edges)
	}
	n := 0
	for key := range m.edges {
		if key.Type == edgeType {
			n++
		}
	}
	return n
}
