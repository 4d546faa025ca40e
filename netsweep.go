// Package netsweep enumerates IPv4 address ranges from flexible
// specifications and probes each address for reachability with bounded
// concurrency, collecting latency, loss, and hostname data per host.
//
// The core pipeline is Parse -> Expand -> Engine.Run -> Aggregator;
// Sweeper drives that pipeline across multiple network specifications and
// merges the result collections. Persistence and report rendering are
// external collaborators consuming the HostProbeResult fields.
package netsweep

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Version is the module version
const Version = "1.0.0"

// Sweeper drives the probe pipeline across multiple network
// specifications under one scan identifier. A parse failure on one
// specification is recorded and skipped; the sweep continues with the
// remaining specifications.
type Sweeper struct {
	config        *Config
	logger        *zap.Logger
	metrics       *Metrics
	metricsServer *http.Server
	engine        *Engine
	resolver      *Resolver
}

// SweepReport is the merged outcome of a sweep across all specifications
type SweepReport struct {
	ScanID   string            `json:"scan_id"`
	Results  []HostProbeResult `json:"results"`
	Summary  ScanSummary       `json:"summary"`
	Duration time.Duration     `json:"duration"`
	// SpecErrors maps each rejected specification to its parse error.
	SpecErrors map[string]error `json:"-"`
}

// NewSweeper creates a sweeper from a validated configuration. A nil
// logger builds the default file+stdout logger from the config.
func NewSweeper(config *Config, logger *zap.Logger) (*Sweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		var err error
		logger, err = SetupLogger(config)
		if err != nil {
			return nil, err
		}
	}

	resolver, err := NewResolver(time.Duration(config.CacheTTLMinutes)*time.Minute, logger)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(config.Probe, nil, logger)
	if err != nil {
		resolver.Close()
		return nil, err
	}
	engine.WithResolver(resolver)
	if config.RateLimit > 0 {
		engine.WithRateLimit(rate.NewLimiter(rate.Limit(config.RateLimit), config.Probe.ConcurrencyLimit))
	}

	s := &Sweeper{
		config:   config,
		logger:   logger.With(zap.String("component", "sweeper")),
		engine:   engine,
		resolver: resolver,
	}
	if config.MetricsEnabled {
		s.metrics = NewMetrics()
		s.metrics.Register()
		engine.WithMetrics(s.metrics)
		s.metricsServer = StartMetricsServer(config, logger)
	}
	return s, nil
}

// Sweep parses, enumerates, and probes every given network specification,
// merging all per-host results into one report. Progress callbacks restart
// per network. On cancellation the report holds whatever completed.
func (s *Sweeper) Sweep(ctx context.Context, networks []string, progress ProgressFunc) (*SweepReport, error) {
	scanID := uuid.New().String()
	start := time.Now()
	agg := NewAggregator()
	specErrors := make(map[string]error)

	s.logger.Info("Starting sweep",
		zap.String("scan_id", scanID),
		zap.Int("networks", len(networks)),
	)

	for _, network := range networks {
		if ctx.Err() != nil {
			s.logger.Warn("Sweep cancelled", zap.String("scan_id", scanID))
			break
		}

		spec, err := Parse(network)
		if err != nil {
			s.logger.Warn("Rejected network specification",
				zap.String("network", network),
				zap.Error(err),
			)
			specErrors[network] = err
			continue
		}

		addresses, err := Expand(spec)
		if err != nil {
			specErrors[network] = err
			continue
		}
		if len(addresses) == 0 {
			s.logger.Info("Network has no usable hosts", zap.String("network", network))
			continue
		}

		if s.metrics != nil {
			s.metrics.EnumeratedHosts.WithLabelValues(network, scanID).Set(float64(len(addresses)))
		}

		results, err := s.engine.Run(ctx, addresses, progress)
		if err != nil {
			// Defensive: the enumerator only emits valid addresses.
			specErrors[network] = err
			continue
		}
		for _, res := range results {
			agg.Add(res)
		}
	}

	report := &SweepReport{
		ScanID:     scanID,
		Results:    agg.Results(),
		Summary:    agg.Summary(),
		Duration:   time.Since(start),
		SpecErrors: specErrors,
	}

	if s.metrics != nil {
		s.metrics.ScanDuration.WithLabelValues(scanID).Observe(report.Duration.Seconds())
	}
	s.logger.Info("Sweep completed",
		zap.String("scan_id", scanID),
		zap.Duration("duration", report.Duration),
		zap.Int("hosts", report.Summary.Total),
		zap.Int("reachable", report.Summary.Reachable),
		zap.Int("rejected_specs", len(specErrors)),
	)

	return report, nil
}

// Close shuts down the metrics server and releases the sweeper's resources
func (s *Sweeper) Close() {
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}
	if s.resolver != nil {
		s.resolver.Close()
	}
}

// LocalNetworks returns the IPv4 CIDRs of the machine's own interfaces,
// skipping loopback and downed interfaces. Useful as candidate sweep
// targets when no networks are configured.
func LocalNetworks() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var networks []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if ipNet.IP.To4() != nil {
				networks = append(networks, ipNet.String())
			}
		}
	}

	return networks, nil
}
