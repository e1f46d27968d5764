package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/lsp"
)

const metricsNamespace = "weft"

// Read sources counted by Metrics.Read.
const (
	sourceKeyboard = "keyboard"
	sourceTerminal = "terminal"
	sourceServer   = "lsp"
)

// Metrics counts reactor activity on a private registry. Every method is
// called from the reactor goroutine; the registry itself may be scraped
// from anywhere.
type Metrics struct {
	registry *prometheus.Registry

	iterations     prometheus.Counter
	pollErrors     prometheus.Counter
	reads          *prometheus.CounterVec
	keys           prometheus.Counter
	terminalDeaths prometheus.Counter
	autosaves      *prometheus.CounterVec
	frameSeconds   prometheus.Histogram
	workspaces     prometheus.Gauge
	windows        *prometheus.GaugeVec

	lspBytes        *prometheus.CounterVec
	lspMessages     *prometheus.CounterVec
	startupTimeouts *prometheus.CounterVec
}

var _ lsp.Metrics = (*Metrics)(nil)

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reactor",
			Name:      "iterations_total",
			Help:      "Reactor loop iterations, including timeouts.",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reactor",
			Name:      "poll_errors_total",
			Help:      "Readiness waits that failed with something other than EINTR.",
		}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reactor",
			Name:      "reads_total",
			Help:      "Ready descriptors serviced, by source.",
		}, []string{"source"}),
		keys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "input",
			Name:      "keys_total",
			Help:      "Key events handled.",
		}),
		terminalDeaths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "terminal",
			Name:      "deaths_total",
			Help:      "Terminal windows converted after their child exited.",
		}),
		autosaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "editor",
			Name:      "autosaves_total",
			Help:      "Autosave attempts, by result.",
		}, []string{"result"}),
		frameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "renderer",
			Name:      "frame_seconds",
			Help:      "Time spent drawing one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		workspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "workspaces",
			Help:      "Open workspaces.",
		}),
		windows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "windows",
			Help:      "Open windows, by kind.",
		}, []string{"kind"}),
		lspBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "lsp",
			Name:      "read_bytes_total",
			Help:      "Bytes read from language server output.",
		}, []string{"server"}),
		lspMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "lsp",
			Name:      "messages_total",
			Help:      "Messages decoded from language servers, by kind.",
		}, []string{"server", "kind"}),
		startupTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "lsp",
			Name:      "startup_timeouts_total",
			Help:      "Initialize requests that went unanswered.",
		}, []string{"server"}),
	}
	reg.MustRegister(
		m.iterations, m.pollErrors, m.reads, m.keys, m.terminalDeaths,
		m.autosaves, m.frameSeconds, m.workspaces, m.windows,
		m.lspBytes, m.lspMessages, m.startupTimeouts,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Iteration()                   { m.iterations.Inc() }
func (m *Metrics) PollError()                   { m.pollErrors.Inc() }
func (m *Metrics) Read(source string)           { m.reads.WithLabelValues(source).Inc() }
func (m *Metrics) Key()                         { m.keys.Inc() }
func (m *Metrics) TerminalDeath()               { m.terminalDeaths.Inc() }
func (m *Metrics) ObserveFrame(d time.Duration) { m.frameSeconds.Observe(d.Seconds()) }

// Autosave counts one autosave attempt.
func (m *Metrics) Autosave(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.autosaves.WithLabelValues(result).Inc()
}

// SetTree records the size of the session tree.
func (m *Metrics) SetTree(workspaces int, windows map[string]int) {
	m.workspaces.Set(float64(workspaces))
	for kind, n := range windows {
		m.windows.WithLabelValues(kind).Set(float64(n))
	}
}

// BytesRead implements lsp.Metrics.
func (m *Metrics) BytesRead(server string, n int) {
	m.lspBytes.WithLabelValues(server).Add(float64(n))
}

// Message implements lsp.Metrics.
func (m *Metrics) Message(server, kind string) {
	m.lspMessages.WithLabelValues(server, kind).Inc()
}

// StartupTimeout implements lsp.Metrics.
func (m *Metrics) StartupTimeout(server string) {
	m.startupTimeouts.WithLabelValues(server).Inc()
}

// metricsServer exposes Metrics over HTTP. It runs on its own goroutine
// and reads nothing but the registry.
type metricsServer struct {
	srv  *http.Server
	addr net.Addr
	done chan struct{}
}

// serveMetrics starts listening on addr.
func serveMetrics(addr string, m *Metrics, log *Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	s := &metricsServer{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr: ln.Addr(),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.Stringer("addr", s.addr))
	return s, nil
}

// Close stops the server and waits for its goroutine.
func (s *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
