package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons reported by TermSkipped.
const (
	ReasonEmptyBlock = "empty_block"
	ReasonInvalid    = "invalid"
	ReasonObsolete   = "obsolete"
)

// Collector holds the import and enrichment counters on a private registry.
type Collector struct {
	registry      *prometheus.Registry
	blocksScanned prometheus.Counter
	termsSkipped  *prometheus.CounterVec
	termsLoaded   prometheus.Counter
	stageFailures *prometheus.CounterVec
	pubsEnriched  prometheus.Counter
	pubsFailed    prometheus.Counter
	runDuration   prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		blocksScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oboloader",
			Name:      "blocks_scanned_total",
			Help:      "Term stanzas read from the input file.",
		}),
		termsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oboloader",
			Name:      "terms_skipped_total",
			Help:      "Terms dropped before persistence, by reason.",
		}, []string{"reason"}),
		termsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oboloader",
			Name:      "terms_loaded_total",
			Help:      "Terms that completed every persistence stage.",
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oboloader",
			Name:      "stage_failures_total",
			Help:      "Per-term persistence failures, by stage.",
		}, []string{"stage"}),
		pubsEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oboloader",
			Name:      "publications_enriched_total",
			Help:      "Publication placeholders completed with metadata.",
		}),
		pubsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oboloader",
			Name:      "publication_enrichment_failures_total",
			Help:      "Publication ids whose metadata could not be fetched or stored.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oboloader",
			Name:      "import_duration_seconds",
			Help:      "Wall time of complete import runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	c.registry.MustRegister(
		c.blocksScanned, c.termsSkipped, c.termsLoaded, c.stageFailures,
		c.pubsEnriched, c.pubsFailed, c.runDuration,
	)
	return c
}

// Registry exposes the underlying registry for scraping and tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// BlockScanned counts a stanza read from the input.
func (c *Collector) BlockScanned() {
	if c != nil {
		c.blocksScanned.Inc()
	}
}

// TermSkipped counts a term dropped before persistence, by reason.
func (c *Collector) TermSkipped(reason string) {
	if c != nil {
		c.termsSkipped.WithLabelValues(reason).Inc()
	}
}

// TermLoaded counts a term that passed every persistence stage.
func (c *Collector) TermLoaded() {
	if c != nil {
		c.termsLoaded.Inc()
	}
}

// StageFailed counts a term failure in the named stage.
func (c *Collector) StageFailed(stage string) {
	if c != nil {
		c.stageFailures.WithLabelValues(stage).Inc()
	}
}

// PublicationEnriched counts a publication filled with metadata.
func (c *Collector) PublicationEnriched() {
	if c != nil {
		c.pubsEnriched.Inc()
	}
}

// PublicationFailed counts a publication that could not be fetched or stored.
func (c *Collector) PublicationFailed() {
	if c != nil {
		c.pubsFailed.Inc()
	}
}

// ObserveRun records the duration of an import run.
func (c *Collector) ObserveRun(d time.Duration) {
	if c != nil {
		c.runDuration.Observe(d.Seconds())
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
