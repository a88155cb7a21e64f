// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Crawl, Index, Authority, Ranking, Snippet, Search, ...).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RPC       RPCConfig       `yaml:"rpc"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	Index     IndexConfig     `yaml:"index"`
	Authority AuthorityConfig `yaml:"authority"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Snippet   SnippetConfig   `yaml:"snippet"`
	Search    SearchConfig    `yaml:"search"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RPCConfig controls the internal JSON-over-TCP RPC listener. Port 0
// disables it.
type RPCConfig struct {
	Port int `yaml:"port"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete   string `yaml:"indexComplete"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// CrawlConfig describes where the crawler left its output and which records
// the loader accepts.
type CrawlConfig struct {
	Dir           string `yaml:"dir"`
	MinBodyLength int    `yaml:"minBodyLength"`
	MaxBodyBytes  int    `yaml:"maxBodyBytes"`
}

// IndexConfig controls where generations are written and how the build
// pipeline batches and parallelises work.
type IndexConfig struct {
	Root            string `yaml:"root"`
	BatchSize       int    `yaml:"batchSize"`
	Workers         int    `yaml:"workers"`
	KeepGenerations int    `yaml:"keepGenerations"`
	Watch           bool   `yaml:"watch"`
}

// AuthorityConfig tunes the per-site PageRank iteration.
type AuthorityConfig struct {
	Damping       float64 `yaml:"damping"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"maxIterations"`
}

// RankingConfig tunes score fusion and the candidate window fetched from the
// index before fusion.
type RankingConfig struct {
	AuthorityWeight float64 `yaml:"authorityWeight"`
	CandidateWindow int     `yaml:"candidateWindow"`
	MaxCandidates   int     `yaml:"maxCandidates"`
	DefaultCount    int     `yaml:"defaultCount"`
	MaxCount        int     `yaml:"maxCount"`
}

// SnippetConfig bounds excerpt extraction.
type SnippetConfig struct {
	MaxLength     int `yaml:"maxLength"`
	ContextBefore int `yaml:"contextBefore"`
}

// SearchConfig controls query execution limits and timeouts.
type SearchConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxQueryLength int           `yaml:"maxQueryLength"`
}

// RateLimitConfig throttles the public search endpoint per client address.
// RequestsPerSecond <= 0 disables throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// AnalyticsConfig controls event buffering and snapshot persistence.
type AnalyticsConfig struct {
	BufferSize        int           `yaml:"bufferSize"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval"`
	SnapshotRetention time.Duration `yaml:"snapshotRetention"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls request tracing (sample rate, endpoint).
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values, or an error if the result fails validation.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings that would make the build or the ranker misbehave.
func (c *Config) Validate() error {
	if c.Authority.Damping <= 0 || c.Authority.Damping >= 1 {
		return fmt.Errorf("authority.damping must be in (0,1), got %v", c.Authority.Damping)
	}
	if c.Authority.Tolerance <= 0 {
		return fmt.Errorf("authority.tolerance must be positive, got %v", c.Authority.Tolerance)
	}
	if c.Authority.MaxIterations < 1 {
		return fmt.Errorf("authority.maxIterations must be at least 1, got %d", c.Authority.MaxIterations)
	}
	if c.Ranking.AuthorityWeight < 0 {
		return fmt.Errorf("ranking.authorityWeight must not be negative, got %v", c.Ranking.AuthorityWeight)
	}
	if c.Ranking.CandidateWindow < 1 || c.Ranking.MaxCandidates < c.Ranking.CandidateWindow {
		return fmt.Errorf("ranking: need 1 <= candidateWindow (%d) <= maxCandidates (%d)",
			c.Ranking.CandidateWindow, c.Ranking.MaxCandidates)
	}
	if c.Ranking.DefaultCount < 1 || c.Ranking.MaxCount < c.Ranking.DefaultCount {
		return fmt.Errorf("ranking: need 1 <= defaultCount (%d) <= maxCount (%d)",
			c.Ranking.DefaultCount, c.Ranking.MaxCount)
	}
	if c.Snippet.MaxLength < 1 || c.Snippet.ContextBefore < 0 {
		return fmt.Errorf("snippet: maxLength must be positive and contextBefore non-negative")
	}
	if c.Index.BatchSize < 1 {
		return fmt.Errorf("index.batchSize must be at least 1, got %d", c.Index.BatchSize)
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch-group",
			Topics: KafkaTopics{
				IndexComplete:   "index.complete",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Crawl: CrawlConfig{
			Dir:           "crawl",
			MinBodyLength: 200,
			MaxBodyBytes:  4 << 20,
		},
		Index: IndexConfig{
			Root:            "index",
			BatchSize:       500,
			Workers:         4,
			KeepGenerations: 2,
			Watch:           true,
		},
		Authority: AuthorityConfig{
			Damping:       0.85,
			Tolerance:     1e-9,
			MaxIterations: 100,
		},
		Ranking: RankingConfig{
			AuthorityWeight: 0.5,
			CandidateWindow: 100,
			MaxCandidates:   1600,
			DefaultCount:    10,
			MaxCount:        50,
		},
		Snippet: SnippetConfig{
			MaxLength:     320,
			ContextBefore: 32,
		},
		Search: SearchConfig{
			Timeout:        500 * time.Millisecond,
			MaxQueryLength: 16384,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Analytics: AnalyticsConfig{
			BufferSize:        10000,
			SnapshotInterval:  time.Minute,
			SnapshotRetention: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_RPC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.RPC.Port = port
		}
	}
	if v := os.Getenv("DS_CRAWL_DIR"); v != "" {
		cfg.Crawl.Dir = v
	}
	if v := os.Getenv("DS_INDEX_ROOT"); v != "" {
		cfg.Index.Root = v
	}
	if v := os.Getenv("DS_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Workers = n
		}
	}
	if v := os.Getenv("DS_RANKING_AUTHORITY_WEIGHT"); v != "" {
		if k, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranking.AuthorityWeight = k
		}
	}
	if v := os.Getenv("DS_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v)
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("DS_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v)
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
