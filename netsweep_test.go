package netsweep

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSweeper(t *testing.T, prober Prober) *Sweeper {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Probe.ConcurrencyLimit = 4
	cfg.Probe.PingsPerAttempt = 1
	cfg.Probe.MaxRetries = 0

	engine := newTestEngine(t, cfg.Probe, prober)
	return &Sweeper{
		config: cfg,
		logger: zap.NewNop(),
		engine: engine,
	}
}

func TestSweepMergesNetworks(t *testing.T) {
	s := newTestSweeper(t, newFakeProber())

	report, err := s.Sweep(context.Background(), []string{
		"10.0.0.1-10.0.0.3",
		"10.0.1.0/30",
	}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ScanID)
	assert.Empty(t, report.SpecErrors)
	// Three range addresses plus the /30's two usable hosts.
	assert.Equal(t, 5, report.Summary.Total)
	assert.Equal(t, 5, report.Summary.Reachable)
	assert.Equal(t, 100.0, report.Summary.ReachablePercent)
}

func TestSweepSkipsRejectedSpecs(t *testing.T) {
	s := newTestSweeper(t, newFakeProber())

	report, err := s.Sweep(context.Background(), []string{
		"garbage",
		"10.0.0.5-10.0.0.1",
		"10.0.0.1-10.0.0.2",
	}, nil)
	require.NoError(t, err, "a rejected specification never aborts the sweep")

	require.Len(t, report.SpecErrors, 2)
	assert.True(t, IsInvalidFormatError(report.SpecErrors["garbage"]))
	assert.True(t, IsRangeOrderError(report.SpecErrors["10.0.0.5-10.0.0.1"]))
	assert.Equal(t, 2, report.Summary.Total, "the valid specification still runs")
}

func TestSweepSkipsEmptyNetworks(t *testing.T) {
	s := newTestSweeper(t, newFakeProber())

	report, err := s.Sweep(context.Background(), []string{"10.0.0.0/31"}, nil)
	require.NoError(t, err)
	assert.Empty(t, report.SpecErrors)
	assert.Equal(t, 0, report.Summary.Total)
}

func TestNewSweeperBuildsDefaultLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogDir = t.TempDir()

	s, err := NewSweeper(cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.logger)
	entries, err := os.ReadDir(cfg.LogDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "a nil logger builds the default file logger")
}

func TestNewSweeperStartsMetricsServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogDir = t.TempDir()
	cfg.MetricsEnabled = true
	cfg.MetricsPort = "0" // any free port

	s, err := NewSweeper(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, s.metrics)
	require.NotNil(t, s.metricsServer)

	// Close shuts the server down without waiting out the timeout.
	s.Close()
}

func TestLocalNetworks(t *testing.T) {
	networks, err := LocalNetworks()
	require.NoError(t, err)
	for _, network := range networks {
		spec, err := Parse(network)
		require.NoError(t, err, network)
		assert.Equal(t, SpecCIDR, spec.Kind, network)
	}
}
