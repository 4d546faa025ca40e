package netsweep

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, DefaultProbeConfig().Validate())
}

func TestProbeConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ProbeConfig)
		want   error
	}{
		{"zero concurrency", func(c *ProbeConfig) { c.ConcurrencyLimit = 0 }, ErrInvalidConcurrency},
		{"zero pings", func(c *ProbeConfig) { c.PingsPerAttempt = 0 }, ErrInvalidPingCount},
		{"zero packet size", func(c *ProbeConfig) { c.PacketSizeBytes = 0 }, ErrInvalidPacketSize},
		{"oversized packet", func(c *ProbeConfig) { c.PacketSizeBytes = 65501 }, ErrInvalidPacketSize},
		{"zero ttl", func(c *ProbeConfig) { c.TimeToLive = 0 }, ErrInvalidTTL},
		{"ttl overflow", func(c *ProbeConfig) { c.TimeToLive = 256 }, ErrInvalidTTL},
		{"negative timeout", func(c *ProbeConfig) { c.PerPingTimeoutSeconds = -1 }, ErrInvalidTimeout},
		{"negative retries", func(c *ProbeConfig) { c.MaxRetries = -1 }, ErrInvalidRetries},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultProbeConfig()
			tc.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}

func TestProbeConfigBoundaryValues(t *testing.T) {
	cfg := ProbeConfig{
		ConcurrencyLimit:      1,
		PingsPerAttempt:       1,
		PacketSizeBytes:       65500,
		TimeToLive:            255,
		PerPingTimeoutSeconds: 0,
		MaxRetries:            0,
	}
	require.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = -1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidRateLimit)

	cfg = DefaultConfig()
	cfg.LogDir = ""
	require.ErrorIs(t, cfg.Validate(), ErrInvalidPath)

	cfg = DefaultConfig()
	cfg.MetricsAuth = true
	require.ErrorIs(t, cfg.Validate(), ErrMissingCredentials)

	cfg = DefaultConfig()
	cfg.LogLevel = "verbose"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel, "unknown log levels fall back to info")
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsweep.json")

	cfg := DefaultConfig()
	cfg.Networks = []string{"10.0.0.0/24", "192.168.1.1-192.168.1.20"}
	cfg.Probe.ConcurrencyLimit = 32
	cfg.RateLimit = 100
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Networks, loaded.Networks)
	assert.Equal(t, cfg.Probe, loaded.Probe)
	assert.Equal(t, cfg.RateLimit, loaded.RateLimit)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
