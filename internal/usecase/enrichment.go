package usecase

import (
	"context"
	"fmt"
	"time"

	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/metrics"
	"OboGraphLoader/internal/ports"
)

// DefaultEnrichmentBatch caps how many publications one pass fetches.
const DefaultEnrichmentBatch = 50

// EnricherDeps wires the adapters used by the enrichment pass.
type EnricherDeps struct {
	Index     ports.PublicationIndex
	Queue     ports.PublicationQueue
	Fetcher   ports.PublicationFetcher
	Store     ports.GraphStore
	Logger    *logging.Logger
	Metrics   *metrics.Collector
	BatchSize int
}

// EnrichReport summarizes one enrichment pass.
type EnrichReport struct {
	Attempted int
	Enriched  int
	Failed    int
}

// Enricher fills publication placeholders with bibliographic metadata.
type Enricher struct {
	index   ports.PublicationIndex
	queue   ports.PublicationQueue
	fetcher ports.PublicationFetcher
	store   ports.GraphStore
	log     *logging.Logger
	metrics *metrics.Collector
	batch   int
	now     func() time.Time
}

// NewEnricher builds an enrichment pass; BatchSize defaults to DefaultEnrichmentBatch.
func NewEnricher(deps EnricherDeps) *Enricher {
	batch := deps.BatchSize
	if batch <= 0 {
		batch = DefaultEnrichmentBatch
	}
	return &Enricher{
		index:   deps.Index,
		queue:   deps.Queue,
		fetcher: deps.Fetcher,
		store:   deps.Store,
		log:     deps.Logger.With("component", "enricher"),
		metrics: deps.Metrics,
		batch:   batch,
		now:     time.Now,
	}
}

// RunOnce enriches up to one batch of pending publications. Queued ids are
// preferred; the store index is consulted when the queue is empty or absent.
func (e *Enricher) RunOnce(ctx context.Context) (EnrichReport, error) {
	var report EnrichReport
	if e.fetcher == nil || e.store == nil {
		return report, fmt.Errorf("enricher: fetcher and store are required")
	}

	ids, err := e.pending(ctx)
	if err != nil {
		return report, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++

		pub, err := e.fetcher.Fetch(ctx, id)
		if err != nil {
			report.Failed++
			e.metrics.PublicationFailed()
			e.log.Warn("fetch publication failed", "publication_id", id, "error", err)
			e.markAttempted(ctx, id)
			continue
		}

		attrs := pub.Attributes()
		if len(attrs) == 0 {
			e.log.Debug("publication has no metadata", "publication_id", id)
			e.markAttempted(ctx, id)
			continue
		}
		if err := e.store.UpsertNode(ctx, domain.LabelPublication, id, attrs); err != nil {
			report.Failed++
			e.metrics.PublicationFailed()
			e.log.Warn("store publication failed", "publication_id", id, "error", err)
			continue
		}
		report.Enriched++
		e.metrics.PublicationEnriched()
	}

	e.log.Info("enrichment pass finished",
		"attempted", report.Attempted,
		"enriched", report.Enriched,
		"failed", report.Failed,
	)
	return report, nil
}

func (e *Enricher) pending(ctx context.Context) ([]string, error) {
	if e.queue != nil {
		ids, err := e.queue.Dequeue(ctx, e.batch)
		if err != nil {
			return nil, fmt.Errorf("dequeue publications: %w", err)
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	if e.index == nil {
		return nil, nil
	}
	ids, err := e.index.PendingPublications(ctx, e.batch)
	if err != nil {
		return nil, fmt.Errorf("list pending publications: %w", err)
	}
	return ids, nil
}

// markAttempted stamps the placeholder so the index hands out other ids first
// on the next pass.
func (e *Enricher) markAttempted(ctx context.Context, id string) {
	attrs := map[string]any{domain.AttrEnrichAttemptedAt: e.now().UTC().Format(time.RFC3339)}
	if err := e.store.UpsertNode(ctx, domain.LabelPublication, id, attrs); err != nil {
		e.log.Warn("mark publication attempt failed", "publication_id", id, "error", err)
	}
}
