// Package metrics exposes raspbot's Prometheus instrumentation and the
// /metrics + /health HTTP server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "raspbot/pkg/logx"
)

// Metrics holds the bot's collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	updates     *prometheus.CounterVec
	commands    *prometheus.CounterVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	fetchErrors prometheus.Counter
	compares    prometheus.Counter
	compareDur  prometheus.Histogram
	sends       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raspbot_updates_total",
			Help: "Incoming Telegram updates by kind",
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raspbot_commands_total",
			Help: "Handled commands by name and outcome",
		}, []string{"command", "outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raspbot_schedule_cache_hits_total",
			Help: "Schedule cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raspbot_schedule_cache_misses_total",
			Help: "Schedule cache misses",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raspbot_fetch_errors_total",
			Help: "Upstream schedule fetch failures",
		}),
		compares: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raspbot_compares_total",
			Help: "Free-window comparison runs",
		}),
		compareDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "raspbot_compare_duration_seconds",
			Help:    "Duration of comparison runs (fetch included)",
			Buckets: prometheus.DefBuckets,
		}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raspbot_sends_total",
			Help: "Outbound messages by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.updates, m.commands, m.cacheHits, m.cacheMisses,
		m.fetchErrors, m.compares, m.compareDur, m.sends)
	return m
}

func (m *Metrics) Update(kind string) {
	if m != nil {
		m.updates.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Command(name, outcome string) {
	if m != nil {
		m.commands.WithLabelValues(name, outcome).Inc()
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) FetchError() {
	if m != nil {
		m.fetchErrors.Inc()
	}
}

func (m *Metrics) CompareRun(d time.Duration) {
	if m != nil {
		m.compares.Inc()
		m.compareDur.Observe(d.Seconds())
	}
}

func (m *Metrics) Send(outcome string) {
	if m != nil {
		m.sends.WithLabelValues(outcome).Inc()
	}
}

// Server is the metrics/health HTTP endpoint.
type Server struct {
	srv *http.Server
	log logx.Logger
}

func NewServer(addr string, m *Metrics, log logx.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start runs the server in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics server listening", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server failed", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
