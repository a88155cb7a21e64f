package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.85, cfg.Authority.Damping)
	assert.Equal(t, 0.5, cfg.Ranking.AuthorityWeight)
	assert.Equal(t, 10, cfg.Ranking.DefaultCount)
	assert.Equal(t, 50, cfg.Ranking.MaxCount)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.Timeout)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9000
ranking:
  authorityWeight: 1.25
  candidateWindow: 50
search:
  timeout: 2s
redis:
  enabled: true
  cacheTTL: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 1.25, cfg.Ranking.AuthorityWeight)
	assert.Equal(t, 50, cfg.Ranking.CandidateWindow)
	assert.Equal(t, 1600, cfg.Ranking.MaxCandidates, "unset fields keep their defaults")
	assert.Equal(t, 2*time.Second, cfg.Search.Timeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DS_SERVER_PORT", "7070")
	t.Setenv("DS_INDEX_ROOT", "/var/lib/docsearch")
	t.Setenv("DS_KAFKA_ENABLED", "true")
	t.Setenv("DS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DS_RANKING_AUTHORITY_WEIGHT", "0")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/var/lib/docsearch", cfg.Index.Root)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0.0, cfg.Ranking.AuthorityWeight)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"damping zero", func(c *Config) { c.Authority.Damping = 0 }},
		{"damping one", func(c *Config) { c.Authority.Damping = 1 }},
		{"negative tolerance", func(c *Config) { c.Authority.Tolerance = -1 }},
		{"no iterations", func(c *Config) { c.Authority.MaxIterations = 0 }},
		{"negative weight", func(c *Config) { c.Ranking.AuthorityWeight = -0.1 }},
		{"window above max", func(c *Config) { c.Ranking.CandidateWindow = 5000 }},
		{"default above max count", func(c *Config) { c.Ranking.DefaultCount = 100 }},
		{"zero snippet length", func(c *Config) { c.Snippet.MaxLength = 0 }},
		{"zero batch", func(c *Config) { c.Index.BatchSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
