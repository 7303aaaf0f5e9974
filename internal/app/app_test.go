package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OboGraphLoader/internal/config"
	"OboGraphLoader/internal/logging"
)

const ontology = `format-version: 1.2

[Term]
id: GO:0000001
name: mitochondrion inheritance
namespace: biological_process
def: "The distribution of mitochondria." [PMID:10873824]
is_a: GO:0048308 ! organelle inheritance

[Term]
id: GO:0000005
name: obsolete ribosomal chaperone activity
namespace: molecular_function
def: "OBSOLETE. Assists in ribosome assembly." [GOC:jl]
`

func memoryConfig() config.Config {
	return config.Config{
		Input:      config.InputConfig{BlockMarker: "[Term]", IDPrefix: "GO:", ObsoleteMarker: "obsolete"},
		Pipeline:   config.PipelineConfig{BufferSize: 2},
		Graph:      config.GraphConfig{Backend: config.BackendMemory},
		Enrichment: config.EnrichmentConfig{BatchSize: 5},
	}
}

func writeOntology(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "go.obo")
	require.NoError(t, os.WriteFile(path, []byte(ontology), 0o600))
	return path
}

func TestRunImportMemoryBackend(t *testing.T) {
	t.Parallel()

	a := New(memoryConfig(), logging.Nop())
	report, err := a.RunImport(context.Background(), writeOntology(t), ImportOptions{Reload: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Loaded)
	assert.Equal(t, 1, report.Obsolete)

	expected := `
# HELP oboloader_blocks_scanned_total Term stanzas read from the input file.
# TYPE oboloader_blocks_scanned_total counter
oboloader_blocks_scanned_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(a.Metrics().Registry(), strings.NewReader(expected), "oboloader_blocks_scanned_total"))
}

func TestRunImportDryRun(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Graph.Backend = config.BackendNeo4j
	a := New(cfg, logging.Nop())

	report, err := a.RunImport(context.Background(), writeOntology(t), ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Loaded)
	require.NotNil(t, report.DryRun)
	assert.Equal(t, GraphCounts{Terms: 2, Publications: 1, Edges: 2}, *report.DryRun)
}

func TestRunImportMissingFile(t *testing.T) {
	t.Parallel()

	a := New(memoryConfig(), logging.Nop())
	_, err := a.RunImport(context.Background(), filepath.Join(t.TempDir(), "absent.obo"), ImportOptions{})
	assert.Error(t, err)
}

func TestApplyConstraintsOnMemoryIsNoop(t *testing.T) {
	t.Parallel()

	a := New(memoryConfig(), logging.Nop())
	assert.NoError(t, a.ApplyConstraints(context.Background()))
}

func TestEnrichOnceWithEmptyStore(t *testing.T) {
	t.Parallel()

	a := New(memoryConfig(), logging.Nop())
	report, err := a.Enrich(context.Background(), true, 0)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}

func TestUnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Graph.Backend = "dgraph"
	a := New(cfg, logging.Nop())
	assert.Error(t, a.ApplyConstraints(context.Background()))
}
