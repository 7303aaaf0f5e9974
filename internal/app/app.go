package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"OboGraphLoader/internal/config"
	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/infrastructure/parser"
	"OboGraphLoader/internal/infrastructure/pubmed"
	"OboGraphLoader/internal/infrastructure/queue"
	"OboGraphLoader/internal/infrastructure/scheduler"
	"OboGraphLoader/internal/infrastructure/storage"
	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/metrics"
	"OboGraphLoader/internal/ports"
	"OboGraphLoader/internal/usecase"
)

// graphBackend is what every store implementation offers the application.
type graphBackend interface {
	ports.GraphStore
	ports.GraphPurger
	ports.PublicationIndex
}

// ImportOptions mirror the import command flags.
type ImportOptions struct {
	Reload bool
	DryRun bool
}

// GraphCounts summarizes the in-memory graph built by a dry run.
type GraphCounts struct {
	Terms              int
	SynonymCollections int
	Synonyms           int
	Publications       int
	Edges              int
}

// ImportResult is the pipeline report plus, for dry runs, the graph counts.
type ImportResult struct {
	usecase.Report
	DryRun *GraphCounts
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	log     *logging.Logger
	metrics *metrics.Collector
}

// New builds an application instance.
func New(cfg config.Config, baseLogger *logging.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{cfg: cfg, log: baseLogger, metrics: metrics.New()}
}

// Metrics exposes the collector, mainly for tests.
func (a *Application) Metrics() *metrics.Collector {
	return a.metrics
}

// RunImport loads one OBO file into the configured graph store.
func (a *Application) RunImport(ctx context.Context, path string, opts ImportOptions) (ImportResult, error) {
	a.serveMetrics(ctx)

	source, err := parser.OpenOBOFile(path, a.cfg.Input.BlockMarker)
	if err != nil {
		return ImportResult{}, err
	}
	defer source.Close()

	backend := a.cfg.Graph.Backend
	if opts.DryRun {
		backend = config.BackendMemory
	}
	store, closeStore, err := a.openStore(ctx, backend)
	if err != nil {
		return ImportResult{}, err
	}
	defer closeStore()

	if opts.Reload {
		if err := store.PurgeOntology(ctx); err != nil {
			return ImportResult{}, fmt.Errorf("purge before reload: %w", err)
		}
		a.log.Info("ontology purged before reload")
	}

	var pubQueue ports.PublicationQueue
	if !opts.DryRun {
		if q, closeQueue := a.openQueue(ctx); q != nil {
			defer closeQueue()
			pubQueue = q
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:         source,
		Decoder:        parser.NewTermDecoder(a.cfg.Input.IDPrefix),
		Store:          store,
		Queue:          pubQueue,
		Logger:         a.log,
		Metrics:        a.metrics,
		ObsoleteMarker: a.cfg.Input.ObsoleteMarker,
		BufferSize:     a.cfg.Pipeline.BufferSize,
	})
	report, err := pipeline.Run(ctx)
	result := ImportResult{Report: report}

	if mem, ok := store.(*storage.MemoryGateway); ok && opts.DryRun {
		counts := GraphCounts{
			Terms:              mem.CountNodes(domain.LabelTerm),
			SynonymCollections: mem.CountNodes(domain.LabelSynonymCollection),
			Synonyms:           mem.CountNodes(domain.LabelSynonym),
			Publications:       mem.CountNodes(domain.LabelPublication),
			Edges:              mem.CountEdges(""),
		}
		result.DryRun = &counts
		a.log.Info("dry run graph",
			"terms", counts.Terms,
			"synonym_collections", counts.SynonymCollections,
			"synonyms", counts.Synonyms,
			"publications", counts.Publications,
			"edges", counts.Edges,
		)
	}
	return result, err
}

// ApplyConstraints installs the unique-key constraints of the configured backend.
func (a *Application) ApplyConstraints(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx, a.cfg.Graph.Backend)
	if err != nil {
		return err
	}
	defer closeStore()

	applier, ok := store.(ports.ConstraintApplier)
	if !ok {
		a.log.Info("backend has no constraints to apply", "backend", a.cfg.Graph.Backend)
		return nil
	}
	return applier.ApplyConstraints(ctx)
}

// Enrich fills publication placeholders once, or on the configured interval
// until ctx is cancelled.
func (a *Application) Enrich(ctx context.Context, once bool, batch int) (usecase.EnrichReport, error) {
	a.serveMetrics(ctx)

	store, closeStore, err := a.openStore(ctx, a.cfg.Graph.Backend)
	if err != nil {
		return usecase.EnrichReport{}, err
	}
	defer closeStore()

	pubQueue, closeQueue := a.openQueue(ctx)
	defer closeQueue()

	if batch <= 0 {
		batch = a.cfg.Enrichment.BatchSize
	}
	deps := usecase.EnricherDeps{
		Index: store,
		Fetcher: pubmed.NewClient(pubmed.Config{
			BaseURL:           a.cfg.PubMed.BaseURL,
			RequestsPerSecond: a.cfg.PubMed.RequestsPerSecond,
			TimeoutSeconds:    a.cfg.PubMed.TimeoutSeconds,
		}, nil),
		Store:     store,
		Logger:    a.log,
		Metrics:   a.metrics,
		BatchSize: batch,
	}
	if pubQueue != nil {
		deps.Queue = pubQueue
	}
	enricher := usecase.NewEnricher(deps)

	if once {
		return enricher.RunOnce(ctx)
	}

	interval := time.Duration(a.cfg.Enrichment.IntervalMinutes) * time.Minute
	sched := usecase.NewScheduler(scheduler.NewIntervalScheduler(interval), enricher, a.log)
	if err := sched.Start(ctx); err != nil {
		return usecase.EnrichReport{}, fmt.Errorf("start scheduler: %w", err)
	}
	a.log.Info("enrichment scheduled", "interval", interval.String())

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return usecase.EnrichReport{}, fmt.Errorf("stop scheduler: %w", err)
	}
	return usecase.EnrichReport{}, nil
}

func (a *Application) openStore(ctx context.Context, backend string) (graphBackend, func(), error) {
	switch backend {
	case config.BackendMemory:
		return storage.NewMemoryGateway(), func() {}, nil
	case config.BackendSQL:
		g, err := storage.NewSQLGateway(ctx, storage.SQLConfig{
			Driver: a.cfg.Graph.SQL.Driver,
			DSN:    a.cfg.Graph.SQL.DSN,
		}, a.log)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	case config.BackendNeo4j:
		n := a.cfg.Graph.Neo4j
		g, err := storage.NewNeo4jGateway(ctx, storage.Neo4jConfig{
			URI:            n.URI,
			User:           n.User,
			Password:       n.Password,
			Database:       n.Database,
			MaxPoolSize:    n.MaxPoolSize,
			TimeoutSeconds: n.TimeoutSeconds,
		}, a.log)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown graph backend %q", backend)
	}
}

// openQueue returns nil when Redis is not configured or unreachable; the
// queue only speeds up enrichment, the store index is the fallback.
func (a *Application) openQueue(ctx context.Context) (*queue.RedisQueue, func()) {
	if a.cfg.Redis.Addr == "" {
		return nil, func() {}
	}
	q, err := queue.NewRedisQueue(ctx, queue.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Key:      a.cfg.Redis.Key,
	}, a.log)
	if err != nil {
		a.log.Warn("publication queue disabled", "error", err)
		return nil, func() {}
	}
	return q, func() { _ = q.Close() }
}

func (a *Application) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, a.cfg.Metrics.Addr); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("metrics endpoint stopped", "addr", a.cfg.Metrics.Addr, "error", err)
		}
	}()
}
