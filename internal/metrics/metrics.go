package metrics

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error kinds used as the "kind" label on CycleErrors.
const (
	KindDataUnavailable  = "data_unavailable"
	KindInsufficientData = "insufficient_data"
	KindInvalidInput     = "invalid_input"
	KindOther            = "other"
)

// Metrics holds the watcher's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles        prometheus.Counter
	CyclesSkipped prometheus.Counter
	CycleErrors   *prometheus.CounterVec // labels: kind
	Trades        *prometheus.CounterVec // labels: side
	Balance       prometheus.Gauge
	LastPrice     prometheus.Gauge
	LastRSI       prometheus.Gauge
	PositionOpen  prometheus.Gauge
}

// New registers and returns all collectors. bot is attached as a constant label.
func New(bot string) *Metrics {
	labels := prometheus.Labels{"bot": bot}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "paper_watcher_cycles_total",
			Help:        "Trading cycles that reached a decision",
			ConstLabels: labels,
		}),
		CyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "paper_watcher_cycles_skipped_total",
			Help:        "Cycles skipped because the market was closed",
			ConstLabels: labels,
		}),
		CycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "paper_watcher_cycle_errors_total",
			Help:        "Cycles aborted before a decision, by error kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "paper_watcher_trades_total",
			Help:        "Paper trades by side",
			ConstLabels: labels,
		}, []string{"side"}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "paper_watcher_balance",
			Help:        "Paper balance after realized PnL",
			ConstLabels: labels,
		}),
		LastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "paper_watcher_last_price",
			Help:        "Most recent close seen",
			ConstLabels: labels,
		}),
		LastRSI: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "paper_watcher_last_rsi",
			Help:        "Most recent RSI reading",
			ConstLabels: labels,
		}),
		PositionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "paper_watcher_position_open",
			Help:        "1 while long, 0 while flat",
			ConstLabels: labels,
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Cycles,
		m.CyclesSkipped,
		m.CycleErrors,
		m.Trades,
		m.Balance,
		m.LastPrice,
		m.LastRSI,
		m.PositionOpen,
	)
	return m
}

// Handler serves the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics server for m on addr.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("ERROR: [metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("ERROR: [metrics] shutdown: %v", err)
		return err
	}
	return nil
}
