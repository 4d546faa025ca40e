package netsweep

import (
	"context"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// HostnameUnknown is reported when reverse lookup fails or is disabled.
const HostnameUnknown = "unknown"

// HostProbeResult is the outcome of probing a single host. The engine
// creates exactly one per input address and never mutates it after handing
// it off. RTT aggregates and packet counts cover only the final attempt,
// not earlier retries.
type HostProbeResult struct {
	Address           string        `json:"address"`
	Reachable         bool          `json:"reachable"`
	Hostname          string        `json:"hostname"`
	MinRTT            time.Duration `json:"min_rtt"`
	MaxRTT            time.Duration `json:"max_rtt"`
	AvgRTT            time.Duration `json:"avg_rtt"`
	PacketLossPercent float64       `json:"packet_loss_percent"`
	PingsSent         int           `json:"pings_sent"`
	PingsReceived     int           `json:"pings_received"`
}

// Engine runs bounded-parallel reachability probes over an address
// sequence, applying retry with exponential backoff and aggregating
// per-host statistics.
type Engine struct {
	cfg      ProbeConfig
	prober   Prober
	resolver HostnameResolver
	logger   *zap.Logger
	metrics  *Metrics
	limiter  *rate.Limiter
	sem      *semaphore.Weighted

	// Backoff unit after a fully lost attempt; the delay before retry n
	// (1-based) is backoffUnit << (n-1). One second in production.
	backoffUnit time.Duration

	seq uint32
}

// NewEngine creates a probe engine. A nil prober selects the default ICMP
// prober built from the config.
func NewEngine(cfg ProbeConfig, prober Prober, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prober == nil {
		prober = NewICMPProber(cfg.PacketSizeBytes, cfg.TimeToLive, cfg.PingTimeout())
	}
	return &Engine{
		cfg:         cfg,
		prober:      prober,
		logger:      logger.With(zap.String("component", "engine")),
		sem:         semaphore.NewWeighted(int64(cfg.ConcurrencyLimit)),
		backoffUnit: time.Second,
	}, nil
}

// WithResolver attaches a reverse-DNS resolver for reachable hosts
func (e *Engine) WithResolver(r HostnameResolver) *Engine {
	e.resolver = r
	return e
}

// WithMetrics attaches scan metrics
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// WithRateLimit paces probe sends across all workers
func (e *Engine) WithRateLimit(l *rate.Limiter) *Engine {
	e.limiter = l
	return e
}

// Run probes every address with at most ConcurrencyLimit probes in flight
// and returns one result per completed host, in completion order. On
// cancellation no new probes are dispatched, in-flight probes finish on
// their own timeouts, and the partial result collection is returned.
//
// The only error Run can return is a defensive InvalidAddressError for a
// malformed input address; every per-host probe failure is folded into its
// result instead.
func (e *Engine) Run(ctx context.Context, addresses []string, progress ProgressFunc) ([]HostProbeResult, error) {
	for _, addr := range addresses {
		if ip := net.ParseIP(addr); ip == nil || ip.To4() == nil {
			return nil, &InvalidAddressError{Address: addr}
		}
	}

	total := len(addresses)
	start := time.Now()
	e.logger.Info("Starting scan",
		zap.Int("hosts", total),
		zap.Int("concurrency", e.cfg.ConcurrencyLimit),
		zap.Int("pings_per_attempt", e.cfg.PingsPerAttempt),
		zap.Int("max_retries", e.cfg.MaxRetries),
	)

	results := make([]HostProbeResult, 0, total)
	completions := make(chan HostProbeResult)
	collectorDone := make(chan struct{})

	// Single-writer collector: the only goroutine touching the result
	// slice and the progress counter.
	go func() {
		defer close(collectorDone)
		for res := range completions {
			results = append(results, res)
			if e.metrics != nil {
				e.metrics.observeHost(res)
			}
			if progress != nil {
				progress(progressSnapshot(len(results), total, time.Since(start)))
			}
		}
	}()

	var wg sync.WaitGroup
	for _, addr := range addresses {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			// Cancelled while waiting for a slot: stop dispatching and let
			// the in-flight probes drain.
			e.logger.Warn("Scan cancelled, returning partial results", zap.Error(err))
			break
		}
		wg.Add(1)
		go func(address string) {
			defer wg.Done()
			defer e.sem.Release(1)
			if e.metrics != nil {
				e.metrics.InFlightProbes.Inc()
				defer e.metrics.InFlightProbes.Dec()
			}
			completions <- e.probeHost(ctx, address)
		}(addr)
	}

	wg.Wait()
	close(completions)
	<-collectorDone

	e.logger.Info("Scan completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("hosts_completed", len(results)),
		zap.Int("hosts_requested", total),
	)
	return results, nil
}

// probeHost drives the per-host state machine: attempts separated by
// exponential backoff until one attempt receives a reply or retries are
// exhausted. Every failure mode lands in the result, never in an error.
func (e *Engine) probeHost(ctx context.Context, address string) (res HostProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Probe worker panic",
				zap.String("host", address),
				zap.Any("panic", r),
			)
			res = HostProbeResult{
				Address:           address,
				Hostname:          HostnameUnknown,
				PacketLossPercent: 100,
			}
		}
	}()

	res = HostProbeResult{Address: address, Hostname: HostnameUnknown}

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if !e.backoff(ctx, attempt) {
				break
			}
		}

		sent, received, rtts := e.runAttempt(ctx, address)
		res.PingsSent = sent
		res.PingsReceived = received

		if received > 0 {
			res.Reachable = true
			res.MinRTT, res.MaxRTT, res.AvgRTT = summarizeRTT(rtts)
			break
		}
		if ctx.Err() != nil {
			break
		}
		e.logger.Debug("Attempt lost all pings",
			zap.String("host", address),
			zap.Int("attempt", attempt),
			zap.Int("pings_sent", sent),
		)
	}

	res.PacketLossPercent = packetLossPercent(res.PingsSent, res.PingsReceived)

	if res.Reachable && e.resolver != nil {
		if name := e.resolver.Reverse(ctx, address); name != "" {
			res.Hostname = name
		}
	}

	return res
}

// runAttempt sends one round of pings and records the RTT of each reply
func (e *Engine) runAttempt(ctx context.Context, address string) (sent, received int, rtts []time.Duration) {
	for i := 0; i < e.cfg.PingsPerAttempt; i++ {
		if ctx.Err() != nil {
			return
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return
			}
		}

		sent++
		rtt, err := e.prober.Probe(ctx, address, e.nextSeq())
		if err != nil {
			if e.metrics != nil {
				e.metrics.ProbesTotal.WithLabelValues("lost").Inc()
			}
			continue
		}

		received++
		rtts = append(rtts, rtt)
		if e.metrics != nil {
			e.metrics.ProbesTotal.WithLabelValues("reply").Inc()
			e.metrics.ProbeLatency.Observe(float64(rtt.Milliseconds()))
		}
	}
	return
}

// backoff waits 2^(attempt-1) backoff units before retry number attempt.
// Returns false if the wait was cancelled.
func (e *Engine) backoff(ctx context.Context, attempt int) bool {
	delay := e.backoffUnit << uint(attempt-1)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) nextSeq() int {
	return int(atomic.AddUint32(&e.seq, 1) & 0xffff)
}

func summarizeRTT(rtts []time.Duration) (min, max, avg time.Duration) {
	if len(rtts) == 0 {
		return 0, 0, 0
	}
	min, max = rtts[0], rtts[0]
	var sum time.Duration
	for _, rtt := range rtts {
		if rtt < min {
			min = rtt
		}
		if rtt > max {
			max = rtt
		}
		sum += rtt
	}
	return min, max, sum / time.Duration(len(rtts))
}

// packetLossPercent computes loss as a percentage rounded to two decimals.
// Zero pings sent counts as total loss.
func packetLossPercent(sent, received int) float64 {
	if sent <= 0 {
		return 100
	}
	loss := float64(sent-received) / float64(sent) * 100
	return math.Round(loss*100) / 100
}
