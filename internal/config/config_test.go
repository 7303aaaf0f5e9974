package config

import (
	"os"
	"path/filepath"
	"testing"
)

var overrideEnvs = []string{
	configPathEnv, logLevelEnv, graphBackendEnv, neo4jURIEnv, neo4jUserEnv, neo4jPasswordEnv,
	neo4jDatabaseEnv, sqlDriverEnv, sqlDSNEnv, redisAddrEnv, redisPasswordEnv, metricsAddrEnv,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range overrideEnvs {
		t.Setenv(env, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Graph.Backend != BackendNeo4j || cfg.Input.BlockMarker != "[Term]" || cfg.Input.IDPrefix != "GO:" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Pipeline.BufferSize != 4 || cfg.Enrichment.BatchSize != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
logging:
  level: warn
graph:
  backend: sql
  sql:
    dsn: /tmp/graph.db
pipeline:
  bufferSize: 16
input:
  obsoleteMarker: deprecated
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "warn" || cfg.Graph.Backend != BackendSQL || cfg.Graph.SQL.DSN != "/tmp/graph.db" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Graph.SQL.Driver != "sqlite3" {
		t.Fatalf("default driver lost: %q", cfg.Graph.SQL.Driver)
	}
	if cfg.Pipeline.BufferSize != 16 || cfg.Input.ObsoleteMarker != "deprecated" || cfg.Input.BlockMarker != "[Term]" {
		t.Fatalf("unexpected merge: %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "graph:\n  backend: neo4j\n")
	t.Setenv(configPathEnv, path)
	t.Setenv(graphBackendEnv, "MEMORY")
	t.Setenv(redisAddrEnv, "localhost:6379")
	t.Setenv(logLevelEnv, "error")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Graph.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Graph.Backend)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Logging.Level != "error" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "graph: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Load(writeConfig(t, "graph:\n  backend: dgraph\n")); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "neo4j without uri", mutate: func(c *Config) { c.Graph.Neo4j.URI = "" }, wantErr: true},
		{name: "sql without dsn", mutate: func(c *Config) { c.Graph.Backend = BackendSQL; c.Graph.SQL.DSN = "" }, wantErr: true},
		{name: "memory", mutate: func(c *Config) { c.Graph.Backend = BackendMemory; c.Graph.Neo4j.URI = "" }},
		{name: "negative buffer", mutate: func(c *Config) { c.Pipeline.BufferSize = -1 }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
