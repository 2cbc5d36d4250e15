package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 10000000, cfg.Server.MaxRequestCandidates)
	assert.Equal(t, 6, cfg.Screening.MaxNameTokens)
	assert.Equal(t, 4, cfg.Screening.ParallelWorkers)
	assert.Equal(t, 24*time.Hour, cfg.Redis.WatchlistCacheTTL)
	assert.Equal(t, "un_data", cfg.Watchlist.DataDir)
	assert.Equal(t, "clients_data", cfg.Roster.ClientsDir)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
screening:
  max_name_tokens: 5
  parallel_workers: 2
watchlist:
  data_dir: /var/lib/un
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Screening.MaxNameTokens)
	assert.Equal(t, 2, cfg.Screening.ParallelWorkers)
	assert.Equal(t, "/var/lib/un", cfg.Watchlist.DataDir)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	// Untouched sections keep their defaults
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 10000000, cfg.Server.MaxRequestCandidates)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("SCREENING_SCREENING_MAX_NAME_TOKENS", "7")
	t.Setenv("SCREENING_ROSTER_CLIENTS_DIR", "/srv/clients")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Screening.MaxNameTokens)
	assert.Equal(t, "/srv/clients", cfg.Roster.ClientsDir)
}
