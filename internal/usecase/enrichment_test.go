package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OboGraphLoader/internal/domain"
	"OboGraphLoader/internal/infrastructure/storage"
	"OboGraphLoader/internal/logging"
	"OboGraphLoader/internal/metrics"
)

type stubFetcher struct {
	pubs  map[string]domain.Publication
	calls atomic.Int32
}

func (f *stubFetcher) Fetch(_ context.Context, pubID string) (domain.Publication, error) {
	f.calls.Add(1)
	pub, ok := f.pubs[pubID]
	if !ok {
		return domain.Publication{}, errors.New("not found")
	}
	return pub, nil
}

func seedPublications(t *testing.T, store *storage.MemoryGateway, ids ...int) {
	t.Helper()
	for _, id := range ids {
		ref := domain.PublicationRef(id)
		require.NoError(t, store.UpsertNode(context.Background(), ref.Label, ref.Key, nil))
	}
}

func TestEnricherFillsPendingPublications(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryGateway()
	seedPublications(t, store, 111, 222)

	fetcher := &stubFetcher{pubs: map[string]domain.Publication{
		"111": {ID: "111", Title: "Mitochondrial fission", Journal: "Cell", Date: "2000/06/01", DOI: "10.1/x"},
	}}
	e := NewEnricher(EnricherDeps{
		Index:   store,
		Fetcher: fetcher,
		Store:   store,
		Logger:  logging.Nop(),
		Metrics: metrics.New(),
	})

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EnrichReport{Attempted: 2, Enriched: 1, Failed: 1}, report)

	node, ok := store.Node(domain.PublicationRef(111))
	require.True(t, ok)
	assert.Equal(t, "Mitochondrial fission", node.Attributes["title"])
	assert.Equal(t, "2000/06/01", node.Attributes["published"])

	pending, err := store.PendingPublications(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"222"}, pending)
}

func TestEnricherPrefersQueue(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryGateway()
	seedPublications(t, store, 1, 2)
	queue := &memQueue{ids: []string{"2"}}

	fetcher := &stubFetcher{pubs: map[string]domain.Publication{"2": {ID: "2", Title: "Queued"}}}
	e := NewEnricher(EnricherDeps{Index: store, Queue: queue, Fetcher: fetcher, Store: store, BatchSize: 10})

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Enriched)
	assert.Empty(t, queue.ids)

	// queue drained, so the next pass falls back to the index
	report, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Failed)
}

func TestEnricherRotatesPastFailingPublications(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryGateway()
	seedPublications(t, store, 1, 2, 3)

	fetcher := &stubFetcher{pubs: map[string]domain.Publication{
		"2": {ID: "2", Title: "Second"},
		"3": {ID: "3"},
	}}
	e := NewEnricher(EnricherDeps{Index: store, Fetcher: fetcher, Store: store, BatchSize: 1})
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for range 5 {
		_, err := e.RunOnce(context.Background())
		require.NoError(t, err)
	}

	node, ok := store.Node(domain.PublicationRef(2))
	require.True(t, ok)
	assert.Equal(t, "Second", node.Attributes["title"])

	failed, _ := store.Node(domain.PublicationRef(1))
	assert.NotEmpty(t, failed.Attributes[domain.AttrEnrichAttemptedAt])
	empty, _ := store.Node(domain.PublicationRef(3))
	assert.NotEmpty(t, empty.Attributes[domain.AttrEnrichAttemptedAt])

	// both unfillable ids keep being retried, oldest attempt first
	pending, err := store.PendingPublications(context.Background(), 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, pending)
}

func TestEnricherRequiresFetcher(t *testing.T) {
	t.Parallel()

	_, err := NewEnricher(EnricherDeps{}).RunOnce(context.Background())
	assert.Error(t, err)
}

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsEnrichment(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryGateway()
	seedPublications(t, store, 5)
	fetcher := &stubFetcher{pubs: map[string]domain.Publication{"5": {ID: "5", Title: "Scheduled"}}}

	driver := &manualDriver{}
	s := NewScheduler(driver, NewEnricher(EnricherDeps{Index: store, Fetcher: fetcher, Store: store}), logging.Nop())
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	assert.Equal(t, int32(1), fetcher.calls.Load())
	node, _ := store.Node(domain.PublicationRef(5))
	assert.Equal(t, "Scheduled", node.Attributes["title"])

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}
