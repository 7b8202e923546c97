// Package config loads trajmatch's runtime configuration from
// environment variables, with an optional YAML file overlay (LoadYAML).
//
// Environment variables are prefixed TRAJMATCH_; every core tuning
// knob named in the matching engine's configuration surface (Matcher,
// Graph Index, Cluster Index) has a corresponding variable. All values
// have defaults, so Load() never requires environment setup.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable recognized by the trajectory-matching
// core, plus the ambient settings (server address, ledger path,
// cache size) the surrounding collaborators need.
type Config struct {
	Matcher    MatcherConfig    `yaml:"matcher"`
	GraphIndex GraphIndexConfig `yaml:"graph_index"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	Server     ServerConfig     `yaml:"server"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Cache      CacheConfig      `yaml:"cache"`
}

// MatcherConfig mirrors the matcher's configuration options.
type MatcherConfig struct {
	MinTopK       int `yaml:"min_top_k"`
	MinScore      float64
	MinConfidence float64 `yaml:"min_confidence"`
	EmbeddingDim  int     `yaml:"embedding_dim"`
	DefaultTopK   int     `yaml:"default_top_k"`
}

// GraphIndexConfig mirrors the graph index's tuning parameters.
type GraphIndexConfig struct {
	M              int
	EfConstruction int `yaml:"ef_construction"`
	EfSearch       int `yaml:"ef_search"`
}

// ClusterConfig mirrors the cluster index's tuning parameters.
type ClusterConfig struct {
	NClusters int `yaml:"n_clusters"`
	NProbe    int `yaml:"n_probe"`
	MaxIter   int `yaml:"max_iter"`
}

// ServerConfig configures the HTTP edge handler (cmd/trajmatchd).
type ServerConfig struct {
	Address string
}

// LedgerConfig configures the append-only prediction ledger.
type LedgerConfig struct {
	Path      string
	SecretKey string `yaml:"secret_key"`
}

// CacheConfig configures the prediction cache.
type CacheConfig struct {
	MaxSize     int           `yaml:"max_size"`
	TTL         time.Duration `yaml:"ttl"`
	DurablePath string        `yaml:"durable_path"`
}

// Load builds a Config from environment variables, applying defaults
// where unset.
func Load() *Config {
	return &Config{
		Matcher: MatcherConfig{
			MinTopK:       getEnvInt("TRAJMATCH_MIN_TOP_K", 3),
			MinScore:      getEnvFloat("TRAJMATCH_MIN_SCORE", 0.3),
			MinConfidence: getEnvFloat("TRAJMATCH_MIN_CONFIDENCE", 20),
			EmbeddingDim:  getEnvInt("TRAJMATCH_EMBEDDING_DIM", 384),
			DefaultTopK:   getEnvInt("TRAJMATCH_DEFAULT_TOP_K", 10),
		},
		GraphIndex: GraphIndexConfig{
			M:              getEnvInt("TRAJMATCH_GRAPH_M", 16),
			EfConstruction: getEnvInt("TRAJMATCH_GRAPH_EF_CONSTRUCTION", 200),
			EfSearch:       getEnvInt("TRAJMATCH_GRAPH_EF_SEARCH", 50),
		},
		Cluster: ClusterConfig{
			NClusters: getEnvInt("TRAJMATCH_CLUSTER_N_CLUSTERS", 10),
			NProbe:    getEnvInt("TRAJMATCH_CLUSTER_N_PROBE", 10),
			MaxIter:   getEnvInt("TRAJMATCH_CLUSTER_MAX_ITER", 20),
		},
		Server: ServerConfig{
			Address: getEnv("TRAJMATCH_SERVER_ADDRESS", "0.0.0.0:8090"),
		},
		Ledger: LedgerConfig{
			Path:      getEnv("TRAJMATCH_LEDGER_PATH", "./trajmatch.ledger.ndjson"),
			SecretKey: getEnv("TRAJMATCH_LEDGER_SECRET", ""),
		},
		Cache: CacheConfig{
			MaxSize:     getEnvInt("TRAJMATCH_CACHE_MAX_SIZE", 1000),
			TTL:         getEnvDuration("TRAJMATCH_CACHE_TTL", 5*time.Minute),
			DurablePath: getEnv("TRAJMATCH_CACHE_DURABLE_PATH", ""),
		},
	}
}

// LoadYAML overlays a YAML config file onto an existing Config. Fields absent from the file are left unchanged.
func LoadYAML(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
