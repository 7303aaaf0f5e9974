package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/ports"
)

// Stage names reported in logs, metrics and StageError.
const (
	StageNode          = "node"
	StageSynonyms      = "synonyms"
	StagePublications  = "publications"
	StageRelationships = "relationships"
)

// TermPersister writes one term and its sub-entities through the GraphStore.
// Each method is one pipeline stage and is idempotent.
type TermPersister struct {
	store ports.GraphStore
	queue ports.PublicationQueue
	log   *logging.Logger
}

// NewTermPersister wires a persister; queue may be nil.
func NewTermPersister(store ports.GraphStore, queue ports.PublicationQueue, log *logging.Logger) *TermPersister {
	return &TermPersister{store: store, queue: queue, log: log}
}

// PersistNode merges the Term node and tags it with its namespace.
func (p *TermPersister) PersistNode(ctx context.Context, term domain.Term) error {
	if !term.IsValid() {
		return domain.ErrInvalidTerm
	}
	err := p.store.UpsertNode(ctx, domain.LabelTerm, term.ID, map[string]any{
		"name":       term.Name,
		"definition": term.Definition,
	})
	if err != nil {
		return fmt.Errorf("upsert term: %w", err)
	}

	err = p.store.AddLabel(ctx, domain.TermRef(term.ID), term.Namespace)
	if errors.Is(err, domain.ErrInvalidIdentifier) {
		p.log.Warn("namespace is not usable as a label", "term_id", term.ID, "namespace", term.Namespace)
		return nil
	}
	if err != nil {
		return fmt.Errorf("label namespace: %w", err)
	}
	return nil
}

// PersistSynonyms merges the synonym collection and one node per synonym.
func (p *TermPersister) PersistSynonyms(ctx context.Context, term domain.Term) error {
	if len(term.Synonyms) == 0 {
		return nil
	}

	collection := domain.NodeRef{Label: domain.LabelSynonymCollection, Key: term.ID}
	if err := p.store.UpsertNode(ctx, collection.Label, collection.Key, nil); err != nil {
		return fmt.Errorf("upsert synonym collection: %w", err)
	}
	if err := p.store.UpsertEdge(ctx, domain.EdgeHasSynonymCollection, domain.TermRef(term.ID), collection, nil, false); err != nil {
		return fmt.Errorf("link synonym collection: %w", err)
	}

	for i, syn := range term.Synonyms {
		ref := domain.NodeRef{Label: domain.LabelSynonym, Key: domain.SynonymID(term.ID, i+1)}
		if err := p.store.UpsertNode(ctx, ref.Label, ref.Key, map[string]any{
			"text": syn.Text,
			"type": syn.Type,
		}); err != nil {
			return fmt.Errorf("upsert synonym %s: %w", ref.Key, err)
		}
		if err := p.store.UpsertEdge(ctx, domain.EdgeHasSynonym, collection, ref, nil, false); err != nil {
			return fmt.Errorf("link synonym %s: %w", ref.Key, err)
		}
	}
	return nil
}

// LinkPublications merges a placeholder per cited publication and links it to the term.
// Placeholders carry no attributes so enriched metadata survives a re-import.
func (p *TermPersister) LinkPublications(ctx context.Context, term domain.Term) error {
	if len(term.PublicationRefs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(term.PublicationRefs))
	for _, pubID := range term.PublicationRefs {
		ref := domain.PublicationRef(pubID)
		if err := p.store.UpsertNode(ctx, ref.Label, ref.Key, nil); err != nil {
			return fmt.Errorf("upsert publication %d: %w", pubID, err)
		}
		if err := p.store.UpsertEdge(ctx, domain.EdgeHasPublication, domain.TermRef(term.ID), ref, nil, false); err != nil {
			return fmt.Errorf("link publication %d: %w", pubID, err)
		}
		keys = append(keys, strconv.Itoa(pubID))
	}

	if p.queue != nil {
		if err := p.queue.Enqueue(ctx, keys...); err != nil {
			p.log.Warn("enqueue publications failed", "term_id", term.ID, "error", err)
		}
	}
	return nil
}

// PersistRelationships creates placeholder targets where needed, then the typed edges.
func (p *TermPersister) PersistRelationships(ctx context.Context, term domain.Term) error {
	source := domain.TermRef(term.ID)

	for _, rel := range term.Relationships {
		if rel.TargetID == "" {
			p.log.Warn("relationship without target skipped", "term_id", term.ID, "type", rel.Type)
			continue
		}

		exists, err := p.store.NodeExists(ctx, domain.LabelTerm, rel.TargetID)
		if err != nil {
			return fmt.Errorf("check target %s: %w", rel.TargetID, err)
		}
		if !exists {
			if err := p.store.UpsertNode(ctx, domain.LabelTerm, rel.TargetID, nil); err != nil {
				return fmt.Errorf("placeholder %s: %w", rel.TargetID, err)
			}
		}

		attrs := map[string]any{}
		if rel.Qualifier != "" {
			attrs["qualifier"] = rel.Qualifier
		}
		if rel.Description != "" {
			attrs["description"] = rel.Description
		}
		edgeType := strings.ToUpper(rel.Type)
		if err := p.store.UpsertEdge(ctx, edgeType, source, domain.TermRef(rel.TargetID), attrs, false); err != nil {
			return fmt.Errorf("edge %s -> %s: %w", edgeType, rel.TargetID, err)
		}
	}
	return nil
}
