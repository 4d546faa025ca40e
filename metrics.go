package netsweep

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/time/rate"
)

// Metrics holds all Prometheus metrics used by the sweeper
type Metrics struct {
	ProbesTotal     *prometheus.CounterVec
	ProbeLatency    prometheus.Histogram
	HostsCompleted  *prometheus.CounterVec
	InFlightProbes  prometheus.Gauge
	EnumeratedHosts *prometheus.GaugeVec
	ScanDuration    *prometheus.HistogramVec
}

// NewMetrics initializes and returns a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netsweep_probes_total",
				Help: "Total probes sent, by outcome (reply or lost).",
			},
			[]string{"outcome"},
		),
		ProbeLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "netsweep_probe_latency_ms",
				Help:    "Round-trip time of successful probes in milliseconds.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		HostsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netsweep_hosts_completed_total",
				Help: "Hosts that reached a terminal state, by result.",
			},
			[]string{"result"},
		),
		InFlightProbes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "netsweep_in_flight_probes",
				Help: "Probe workers currently holding an execution slot.",
			},
		),
		EnumeratedHosts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netsweep_enumerated_hosts",
				Help: "Number of addresses enumerated for a network specification.",
			},
			[]string{"network", "scan_id"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netsweep_scan_duration_seconds",
				Help:    "Duration of sweep operations in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"scan_id"},
		),
	}
}

// Register registers all metrics with the default Prometheus registry
func (m *Metrics) Register() {
	prometheus.MustRegister(
		m.ProbesTotal,
		m.ProbeLatency,
		m.HostsCompleted,
		m.InFlightProbes,
		m.EnumeratedHosts,
		m.ScanDuration,
	)
}

func (m *Metrics) observeHost(res HostProbeResult) {
	result := "unreachable"
	if res.Reachable {
		result = "reachable"
	}
	m.HostsCompleted.WithLabelValues(result).Inc()
}

// newMetricsMux builds the metrics endpoint routes with the middleware
// chain applied: request logging, rate limiting, and basic auth when
// configured.
func newMetricsMux(config *Config, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	var handler http.Handler = promhttp.Handler()
	if config.MetricsAuth {
		handler = basicAuthMiddleware(handler, config.MetricsUsername, config.MetricsPassword)
	}
	handler = rateLimitMiddleware(handler, rate.NewLimiter(5, 10))
	handler = loggerMiddleware(handler, logger)

	mux.Handle("/metrics", handler)
	mux.HandleFunc("/health", healthCheckHandler)

	return mux
}

// StartMetricsServer starts the /metrics HTTP server described by the
// config and returns it for shutdown. With MetricsTLS set, certificates
// come from autocert for the configured hostname.
func StartMetricsServer(config *Config, logger *zap.Logger) *http.Server {
	mux := newMetricsMux(config, logger)

	var srv *http.Server
	if config.MetricsTLS {
		certManager := autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache("certs"),
			HostPolicy: autocert.HostWhitelist(config.MetricsHostname),
		}

		srv = &http.Server{
			Addr:    ":" + config.MetricsPort,
			Handler: mux,
			TLSConfig: &tls.Config{
				GetCertificate: certManager.GetCertificate,
				MinVersion:     tls.VersionTLS12,
			},
		}

		go func() {
			logger.Info("Starting TLS metrics server", zap.String("port", config.MetricsPort))
			if err := srv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server listen failed", zap.Error(err))
			}
		}()
	} else {
		srv = &http.Server{
			Addr:    ":" + config.MetricsPort,
			Handler: mux,
		}

		go func() {
			logger.Info("Starting metrics server", zap.String("port", config.MetricsPort))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server listen failed", zap.Error(err))
			}
		}()
	}

	return srv
}

// basicAuthMiddleware adds basic authentication to an HTTP handler
func basicAuthMiddleware(next http.Handler, username, password string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != username || pass != password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware adds rate limiting to an HTTP handler
func rateLimitMiddleware(next http.Handler, limiter *rate.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggerMiddleware adds request logging to an HTTP handler
func loggerMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{w, http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// responseWriter is a custom response writer that captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// healthCheckHandler responds to health check requests
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
