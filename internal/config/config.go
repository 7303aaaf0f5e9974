package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "OBO_LOADER_CONFIG"
	logLevelEnv      = "LOG_LEVEL"
	graphBackendEnv  = "GRAPH_BACKEND"
	neo4jURIEnv      = "NEO4J_URI"
	neo4jUserEnv     = "NEO4J_USER"
	neo4jPasswordEnv = "NEO4J_PASSWORD"
	neo4jDatabaseEnv = "NEO4J_DATABASE"
	sqlDriverEnv     = "SQL_DRIVER"
	sqlDSNEnv        = "SQL_DSN"
	redisAddrEnv     = "REDIS_ADDR"
	redisPasswordEnv = "REDIS_PASSWORD"
	metricsAddrEnv   = "METRICS_ADDR"
)

// Graph backends.
const (
	BackendNeo4j  = "neo4j"
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Input      InputConfig      `yaml:"input"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Graph      GraphConfig      `yaml:"graph"`
	Redis      RedisConfig      `yaml:"redis"`
	PubMed     PubMedConfig     `yaml:"pubmed"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// InputConfig describes the OBO dialect being imported.
type InputConfig struct {
	BlockMarker    string `yaml:"blockMarker"`
	IDPrefix       string `yaml:"idPrefix"`
	ObsoleteMarker string `yaml:"obsoleteMarker"`
}

type PipelineConfig struct {
	BufferSize int `yaml:"bufferSize"`
}

// GraphConfig selects and configures the graph store.
type GraphConfig struct {
	Backend string      `yaml:"backend"`
	Neo4j   Neo4jConfig `yaml:"neo4j"`
	SQL     SQLConfig   `yaml:"sql"`
}

type Neo4jConfig struct {
	URI            string `yaml:"uri"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Database       string `yaml:"database"`
	MaxPoolSize    int    `yaml:"maxPoolSize"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// SQLConfig points the relational backend at sqlite3 or postgres.
type SQLConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the publication queue when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

type PubMedConfig struct {
	BaseURL           string  `yaml:"baseUrl"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`
}

type EnrichmentConfig struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
	BatchSize       int `yaml:"batchSize"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads .env and the YAML file (path, else $OBO_LOADER_CONFIG, else
// defaults only) and applies environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	switch c.Graph.Backend {
	case BackendNeo4j:
		if c.Graph.Neo4j.URI == "" {
			return fmt.Errorf("config: graph.neo4j.uri is required for the neo4j backend")
		}
	case BackendSQL:
		if c.Graph.SQL.DSN == "" {
			return fmt.Errorf("config: graph.sql.dsn is required for the sql backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown graph backend %q", c.Graph.Backend)
	}
	if c.Pipeline.BufferSize < 0 {
		return fmt.Errorf("config: pipeline.bufferSize must not be negative")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	override := func(env string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}

	override(logLevelEnv, &c.Logging.Level)
	override(graphBackendEnv, &c.Graph.Backend)
	override(neo4jURIEnv, &c.Graph.Neo4j.URI)
	override(neo4jUserEnv, &c.Graph.Neo4j.User)
	override(neo4jPasswordEnv, &c.Graph.Neo4j.Password)
	override(neo4jDatabaseEnv, &c.Graph.Neo4j.Database)
	override(sqlDriverEnv, &c.Graph.SQL.Driver)
	override(sqlDSNEnv, &c.Graph.SQL.DSN)
	override(redisAddrEnv, &c.Redis.Addr)
	override(redisPasswordEnv, &c.Redis.Password)
	override(metricsAddrEnv, &c.Metrics.Addr)

	c.Graph.Backend = strings.ToLower(c.Graph.Backend)
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Input.BlockMarker != "" {
		base.Input.BlockMarker = override.Input.BlockMarker
	}
	if override.Input.IDPrefix != "" {
		base.Input.IDPrefix = override.Input.IDPrefix
	}
	if override.Input.ObsoleteMarker != "" {
		base.Input.ObsoleteMarker = override.Input.ObsoleteMarker
	}

	if override.Pipeline.BufferSize != 0 {
		base.Pipeline.BufferSize = override.Pipeline.BufferSize
	}

	if override.Graph.Backend != "" {
		base.Graph.Backend = override.Graph.Backend
	}
	if override.Graph.Neo4j.URI != "" {
		base.Graph.Neo4j.URI = override.Graph.Neo4j.URI
	}
	if override.Graph.Neo4j.User != "" {
		base.Graph.Neo4j.User = override.Graph.Neo4j.User
	}
	if override.Graph.Neo4j.Password != "" {
		base.Graph.Neo4j.Password = override.Graph.Neo4j.Password
	}
	if override.Graph.Neo4j.Database != "" {
		base.Graph.Neo4j.Database = override.Graph.Neo4j.Database
	}
	if override.Graph.Neo4j.MaxPoolSize != 0 {
		base.Graph.Neo4j.MaxPoolSize = override.Graph.Neo4j.MaxPoolSize
	}
	if override.Graph.Neo4j.TimeoutSeconds != 0 {
		base.Graph.Neo4j.TimeoutSeconds = override.Graph.Neo4j.TimeoutSeconds
	}
	if override.Graph.SQL.Driver != "" {
		base.Graph.SQL.Driver = override.Graph.SQL.Driver
	}
	if override.Graph.SQL.DSN != "" {
		base.Graph.SQL.DSN = override.Graph.SQL.DSN
	}

	if override.Redis.Addr != "" {
		base.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.Password != "" {
		base.Redis.Password = override.Redis.Password
	}
	if override.Redis.DB != 0 {
		base.Redis.DB = override.Redis.DB
	}
	if override.Redis.Key != "" {
		base.Redis.Key = override.Redis.Key
	}

	if override.PubMed.BaseURL != "" {
		base.PubMed.BaseURL = override.PubMed.BaseURL
	}
	if override.PubMed.RequestsPerSecond != 0 {
		base.PubMed.RequestsPerSecond = override.PubMed.RequestsPerSecond
	}
	if override.PubMed.TimeoutSeconds != 0 {
		base.PubMed.TimeoutSeconds = override.PubMed.TimeoutSeconds
	}

	if override.Enrichment.IntervalMinutes != 0 {
		base.Enrichment.IntervalMinutes = override.Enrichment.IntervalMinutes
	}
	if override.Enrichment.BatchSize != 0 {
		base.Enrichment.BatchSize = override.Enrichment.BatchSize
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Input: InputConfig{
			BlockMarker:    "[Term]",
			IDPrefix:       "GO:",
			ObsoleteMarker: "obsolete",
		},
		Pipeline: PipelineConfig{BufferSize: 4},
		Graph: GraphConfig{
			Backend: BackendNeo4j,
			Neo4j: Neo4jConfig{
				URI:            "neo4j://localhost:7687",
				User:           "neo4j",
				Database:       "neo4j",
				MaxPoolSize:    50,
				TimeoutSeconds: 10,
			},
			SQL: SQLConfig{Driver: "sqlite3", DSN: "obo-graph.db"},
		},
		Redis: RedisConfig{Key: "obo:publications:pending"},
		PubMed: PubMedConfig{
			BaseURL:           "https://pubmed.ncbi.nlm.nih.gov",
			RequestsPerSecond: 3,
			TimeoutSeconds:    20,
		},
		Enrichment: EnrichmentConfig{IntervalMinutes: 60, BatchSize: 50},
	}
}
