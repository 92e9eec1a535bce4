// Package health implements the runtime's minimal HTTP surface:
// liveness/readiness endpoints and lock-free usage counters, exported
// as Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadHeaderTimeout resists slowloris-style partial-header attacks.
const ReadHeaderTimeout = 5 * time.Second

// UsageSummaryInterval is how often a usage_summary event is emitted
// while the server is running.
const UsageSummaryInterval = 60 * time.Second

// Counters are the runtime's lock-free usage counters, incremented
// from the agent loop, tool registry, and providers.
type Counters struct {
	Requests     atomic.Int64
	ToolCalls    atomic.Int64
	InputTokens  atomic.Int64
	OutputTokens atomic.Int64
	Errors       atomic.Int64
}

// snapshot is an immutable read of Counters for logging.
type snapshot struct {
	Requests     int64
	ToolCalls    int64
	InputTokens  int64
	OutputTokens int64
	Errors       int64
}

func (c *Counters) snapshot() snapshot {
	return snapshot{
		Requests:     c.Requests.Load(),
		ToolCalls:    c.ToolCalls.Load(),
		InputTokens:  c.InputTokens.Load(),
		OutputTokens: c.OutputTokens.Load(),
		Errors:       c.Errors.Load(),
	}
}

// promCounters mirrors Counters as Prometheus gauges, synced on every
// /metrics scrape via a Collector so the two never drift.
type promCounters struct {
	counters *Counters

	requests     *prometheus.Desc
	toolCalls    *prometheus.Desc
	inputTokens  *prometheus.Desc
	outputTokens *prometheus.Desc
	errors       *prometheus.Desc
}

func newPromCounters(counters *Counters) *promCounters {
	return &promCounters{
		counters:     counters,
		requests:     prometheus.NewDesc("agentrt_requests_total", "Total inbound messages processed.", nil, nil),
		toolCalls:    prometheus.NewDesc("agentrt_tool_calls_total", "Total tool invocations.", nil, nil),
		inputTokens:  prometheus.NewDesc("agentrt_input_tokens_total", "Total input tokens consumed.", nil, nil),
		outputTokens: prometheus.NewDesc("agentrt_output_tokens_total", "Total output tokens produced.", nil, nil),
		errors:       prometheus.NewDesc("agentrt_errors_total", "Total errors encountered.", nil, nil),
	}
}

func (p *promCounters) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.requests
	ch <- p.toolCalls
	ch <- p.inputTokens
	ch <- p.outputTokens
	ch <- p.errors
}

func (p *promCounters) Collect(ch chan<- prometheus.Metric) {
	s := p.counters.snapshot()
	ch <- prometheus.MustNewConstMetric(p.requests, prometheus.CounterValue, float64(s.Requests))
	ch <- prometheus.MustNewConstMetric(p.toolCalls, prometheus.CounterValue, float64(s.ToolCalls))
	ch <- prometheus.MustNewConstMetric(p.inputTokens, prometheus.CounterValue, float64(s.InputTokens))
	ch <- prometheus.MustNewConstMetric(p.outputTokens, prometheus.CounterValue, float64(s.OutputTokens))
	ch <- prometheus.MustNewConstMetric(p.errors, prometheus.CounterValue, float64(s.Errors))
}

// Server serves /healthz, /readyz, and /metrics, and periodically logs
// a usage_summary event.
type Server struct {
	Counters *Counters

	ready    atomic.Bool
	logger   *slog.Logger
	registry *prometheus.Registry

	httpServer *http.Server
	listener   net.Listener
	stopTicker chan struct{}
}

// NewServer creates a Server. logger defaults to slog.Default() if nil.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	counters := &Counters{}
	registry := prometheus.NewRegistry()
	registry.MustRegister(newPromCounters(counters))

	return &Server{
		Counters: counters,
		logger:   logger,
		registry: registry,
	}
}

// SetReady toggles the /readyz response.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func stripQuery(path string) string {
	if u, err := url.Parse(path); err == nil {
		return u.Path
	}
	return path
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch stripQuery(r.URL.Path) {
	case "/healthz":
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	case "/readyz":
		if s.ready.Load() {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
	default:
		http.NotFound(w, r)
	}
}

// Start begins serving on addr and begins the periodic usage_summary
// logger. It returns once the listener is bound; serving happens on a
// background goroutine.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handle)
	mux.HandleFunc("/readyz", s.handle)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health: listen: %w", err)
	}

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
	s.listener = listener
	s.stopTicker = make(chan struct{})

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server error", "error", err)
		}
	}()

	go s.runUsageSummaryLoop()

	s.logger.Info("health server listening", "addr", addr)
	return nil
}

func (s *Server) runUsageSummaryLoop() {
	ticker := time.NewTicker(UsageSummaryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.logUsageSummary()
		case <-s.stopTicker:
			s.logUsageSummary()
			return
		}
	}
}

func (s *Server) logUsageSummary() {
	snap := s.Counters.snapshot()
	s.logger.Info("usage_summary",
		"requests", snap.Requests,
		"tool_calls", snap.ToolCalls,
		"input_tokens", snap.InputTokens,
		"output_tokens", snap.OutputTokens,
		"errors", snap.Errors,
	)
}

// Stop gracefully shuts the HTTP server down and stops the
// usage_summary loop, logging a final summary first.
func (s *Server) Stop(ctx context.Context) error {
	if s.stopTicker != nil {
		close(s.stopTicker)
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
