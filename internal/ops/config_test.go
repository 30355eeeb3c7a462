package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

const sample = `
hub:
  endpoint: wss://hub.example.com
  locator: /dashboard?gate=gate_out
reconnect:
  base: 1s
  ceiling: 20s
  max_attempts: 5
requests:
  ping_interval: 15s
  initial_delay: 250ms
  status_throttle: 3s
  status_request_type: request_system_status
metrics:
  addr: 127.0.0.1:9200
journal:
  dsn: postgres://gatewatch@localhost/gatewatch
chaos:
  seed: 9
  drop_rate: 0.1
features:
  enable_metrics: false
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gatewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://hub.example.com", cfg.Client.Endpoint)
	assert.Equal(t, "/dashboard?gate=gate_out", cfg.Client.Locator)
	assert.Equal(t, time.Second, cfg.Client.Backoff.Base)
	assert.Equal(t, 20*time.Second, cfg.Client.Backoff.Ceiling)
	assert.Equal(t, 5, cfg.Client.Backoff.MaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.Client.PingInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.InitialRequestDelay)
	assert.Equal(t, 3*time.Second, cfg.Client.StatusThrottle)
	assert.Equal(t, "request_system_status", cfg.Client.StatusRequestType)
	assert.Equal(t, "127.0.0.1:9200", cfg.Metrics.Addr)
	assert.Equal(t, DefaultAppName, cfg.Profiling.AppName)
	assert.Equal(t, DefaultJournalBuffer, cfg.Journal.Buffer)
	assert.Equal(t, int64(9), cfg.Chaos.Seed)
	assert.InDelta(t, 0.1, cfg.Chaos.DropRate, 1e-9)

	assert.False(t, cfg.Features.EnableMetrics)
	assert.True(t, cfg.Features.EnableJournal)
	assert.False(t, cfg.Features.EnableChaos)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
	assert.True(t, cfg.Features.EnableMetrics)
	assert.False(t, cfg.Features.EnableJournal)
	assert.True(t, cfg.Client.Backoff.IsZero())
}

func TestParseInvalid(t *testing.T) {
	testCases := []struct {
		desc string
		yaml string
	}{
		{"not yaml", "hub: [unterminated"},
		{"negative base", "reconnect:\n  base: -1s\n"},
		{"ceiling below base", "reconnect:\n  base: 10s\n  ceiling: 1s\n"},
		{"unknown status type", "requests:\n  status_request_type: refresh\n"},
		{"chaos rate", "chaos:\n  drop_rate: 2\n"},
		{"journal without dsn", "features:\n  enable_journal: true\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "unexpected error: %v", err)
			assert.NotContains(t, err.Error(), "\n")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
