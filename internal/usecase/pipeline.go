package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/metrics"
	"OboGraphLoader/internal/ports"
)

// DefaultBufferSize bounds every inter-stage channel.
const DefaultBufferSize = 4

// PipelineDeps wires all driven adapters into the import pipeline.
type PipelineDeps struct {
	Source         ports.BlockSource
	Decoder        ports.TermDecoder
	Store          ports.GraphStore
	Queue          ports.PublicationQueue
	Logger         *logging.Logger
	Metrics        *metrics.Collector
	ObsoleteMarker string
	BufferSize     int
}

// Report summarizes one import run.
type Report struct {
	RunID    string
	Scanned  int
	Empty    int
	Invalid  int
	Obsolete int
	Loaded   int
	Failed   int
	Elapsed  time.Duration
}

// Pipeline implements the staged term-import workflow: scan, decode, filter,
// then one goroutine per persistence stage, connected by bounded FIFO channels.
type Pipeline struct {
	source    ports.BlockSource
	decoder   ports.TermDecoder
	filter    *ObsolescenceFilter
	persister *TermPersister
	log       *logging.Logger
	metrics   *metrics.Collector
	buffer    int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Logger.With("component", "pipeline")
	buffer := deps.BufferSize
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Pipeline{
		source:    deps.Source,
		decoder:   deps.Decoder,
		filter:    NewObsolescenceFilter(deps.ObsoleteMarker, log),
		persister: NewTermPersister(deps.Store, deps.Queue, log),
		log:       log,
		metrics:   deps.Metrics,
		buffer:    buffer,
	}
}

type runCounters struct {
	scanned, empty, invalid, obsolete atomic.Int64
	nodes, loaded, failed             atomic.Int64
}

type persistStage struct {
	name string
	run  func(context.Context, domain.Term) error
}

// Run drains the block source through every stage and reports what happened.
// Per-term failures are logged and counted; the returned error is reserved for
// an unreadable source, cancellation, or a store that rejected every term.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	if p.source == nil || p.decoder == nil || p.persister.store == nil {
		return Report{}, fmt.Errorf("pipeline: source, decoder and store are required")
	}

	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	start := time.Now()
	var c runCounters

	g, gctx := errgroup.WithContext(ctx)

	blocks := make(chan []string, p.buffer)
	g.Go(func() error {
		defer close(blocks)
		for {
			lines, ok := p.source.NextBlock()
			if !ok {
				return nil
			}
			c.scanned.Add(1)
			p.metrics.BlockScanned()
			if !send(gctx, blocks, lines) {
				return gctx.Err()
			}
		}
	})

	decoded := make(chan domain.Term, p.buffer)
	g.Go(func() error {
		defer close(decoded)
		for lines := range blocks {
			if len(lines) == 0 {
				c.empty.Add(1)
				p.metrics.TermSkipped(metrics.ReasonEmptyBlock)
				continue
			}
			term := p.decoder.Decode(lines)
			if !term.IsValid() {
				c.invalid.Add(1)
				p.metrics.TermSkipped(metrics.ReasonInvalid)
				log.Warn("skipping invalid term", "term_id", term.ID, "name", term.Name, "namespace", term.Namespace)
				continue
			}
			if !send(gctx, decoded, term) {
				return gctx.Err()
			}
		}
		return nil
	})

	current := make(chan domain.Term, p.buffer)
	g.Go(func() error {
		defer close(current)
		for term := range decoded {
			if !p.filter.Pass(term) {
				c.obsolete.Add(1)
				p.metrics.TermSkipped(metrics.ReasonObsolete)
				continue
			}
			if !send(gctx, current, term) {
				return gctx.Err()
			}
		}
		return nil
	})

	stages := []persistStage{
		{StageNode, p.persister.PersistNode},
		{StageSynonyms, p.persister.PersistSynonyms},
		{StagePublications, p.persister.LinkPublications},
		{StageRelationships, p.persister.PersistRelationships},
	}
	upstream := (<-chan domain.Term)(current)
	for i, stage := range stages {
		var out chan domain.Term
		if i < len(stages)-1 {
			out = make(chan domain.Term, p.buffer)
		}
		g.Go(p.stageLoop(gctx, log, stage, upstream, out, i == 0, &c))
		if out != nil {
			upstream = out
		}
	}

	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	report := Report{
		RunID:    runID,
		Scanned:  int(c.scanned.Load()),
		Empty:    int(c.empty.Load()),
		Invalid:  int(c.invalid.Load()),
		Obsolete: int(c.obsolete.Load()),
		Loaded:   int(c.loaded.Load()),
		Failed:   int(c.failed.Load()),
		Elapsed:  time.Since(start),
	}
	p.metrics.ObserveRun(report.Elapsed)
	log.Info("import finished",
		"scanned", report.Scanned,
		"empty", report.Empty,
		"invalid", report.Invalid,
		"obsolete", report.Obsolete,
		"loaded", report.Loaded,
		"failed", report.Failed,
		"elapsed", report.Elapsed.String(),
	)

	if waitErr != nil {
		return report, fmt.Errorf("pipeline: %w", waitErr)
	}
	if err := p.source.Err(); err != nil {
		return report, fmt.Errorf("read input: %w", err)
	}
	if c.nodes.Load() == 0 && report.Failed > 0 {
		return report, fmt.Errorf("%d terms failed, none stored: %w", report.Failed, domain.ErrStoreUnavailable)
	}
	return report, nil
}

func (p *Pipeline) stageLoop(ctx context.Context, log *logging.Logger, stage persistStage, in <-chan domain.Term, out chan domain.Term, first bool, c *runCounters) func() error {
	return func() error {
		if out != nil {
			defer close(out)
		}
		for term := range in {
			if err := stage.run(ctx, term); err != nil {
				stageErr := &domain.StageError{Stage: stage.name, TermID: term.ID, Err: err}
				c.failed.Add(1)
				p.metrics.StageFailed(stage.name)
				log.Error("term persistence failed", "term_id", term.ID, "stage", stage.name, "error", stageErr)
				if errors.Is(err, context.Canceled) {
					return err
				}
				continue
			}
			if first {
				c.nodes.Add(1)
			}
			if out == nil {
				c.loaded.Add(1)
				p.metrics.TermLoaded()
				continue
			}
			if !send(ctx, out, term) {
				return ctx.Err()
			}
		}
		return nil
	}
}

func send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
