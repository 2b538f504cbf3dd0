package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"paper_trading/internal/config"
	"paper_trading/internal/indicator"
	"paper_trading/internal/logger"
	"paper_trading/internal/market"
	"paper_trading/internal/metrics"
	"paper_trading/internal/models"
	"paper_trading/internal/position"
)

// Recorder stores trade events somewhere durable. Failures are logged, not fatal.
type Recorder interface {
	Record(ctx context.Context, ev models.TradeEvent) error
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option { return func(w *Watcher) { w.clock = c } }

// WithRecorder attaches a trade journal.
func WithRecorder(r Recorder) Option { return func(w *Watcher) { w.recorder = r } }

// WithMetrics replaces the default collectors.
func WithMetrics(m *metrics.Metrics) Option { return func(w *Watcher) { w.metrics = m } }

// Watcher runs the fetch, compute, decide, log, sleep cycle for one bot.
// It owns the position machine; nothing else touches it.
type Watcher struct {
	symbol   string
	tf       market.Timeframe
	lookback int
	params   indicator.Params
	interval time.Duration

	provider market.CloseFetcher
	session  market.SessionChecker
	machine  *position.Machine
	sink     logger.Sink
	recorder Recorder
	metrics  *metrics.Metrics
	clock    Clock
}

// New builds a Watcher from a validated config. sink receives one line per
// trade event.
func New(cfg *config.Config, provider market.CloseFetcher, sink logger.Sink, opts ...Option) *Watcher {
	s := cfg.Bot.Strategy
	w := &Watcher{
		symbol:   cfg.Bot.Symbol,
		tf:       cfg.TF,
		lookback: cfg.Bot.Lookback,
		params:   s.Indicators(),
		interval: s.Interval(),
		provider: provider,
		machine:  position.NewMachine(s.Rules(), cfg.Bot.PaperBalance),
		sink:     sink,
		clock:    SystemClock(),
	}
	if w.lookback < w.params.Lookback() {
		w.lookback = w.params.Lookback()
	}
	if cfg.Bot.MarketHoursOnly {
		if sc, ok := provider.(market.SessionChecker); ok {
			w.session = sc
		} else {
			log.Printf("WARN: market_hours_only set but provider %q has no session clock; ignoring", cfg.Bot.Provider)
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = metrics.New(cfg.BotID)
	}
	if w.sink == nil {
		w.sink = logger.StdSink{}
	}
	w.metrics.Balance.Set(cfg.Bot.PaperBalance)
	return w
}

// State returns a copy of the current paper position.
func (w *Watcher) State() position.State { return w.machine.State() }

// Metrics returns the collectors the watcher updates.
func (w *Watcher) Metrics() *metrics.Metrics { return w.metrics }

// Run polls immediately and then once per trade interval until ctx is
// cancelled. A failed cycle is logged and the loop carries on.
func (w *Watcher) Run(ctx context.Context) error {
	log.Printf("[%s] Watching %s bars, lookback %d, interval %s", w.symbol, w.tf, w.lookback, w.interval)
	for {
		// errors are logged and counted inside Poll
		_ = w.Poll(ctx)

		next := w.clock.Now().Add(w.interval)
		logger.Debugf("Next check scheduled for: %s", next.Format("2006-01-02 15:04:05 MST"))
		if err := w.clock.Sleep(ctx, w.interval); err != nil {
			log.Printf("🛑 [%s] Watcher stopping: %v", w.symbol, err)
			return err
		}
	}
}

// Poll runs one cycle. Position state changes only if prices were fetched
// and both indicators computed; any earlier failure leaves it untouched and
// is returned.
func (w *Watcher) Poll(ctx context.Context) error {
	if w.session != nil {
		open, err := w.session.IsMarketOpen(ctx)
		if err != nil {
			return w.abort(fmt.Errorf("%w: market clock: %v", market.ErrDataUnavailable, err))
		}
		if !open {
			w.metrics.CyclesSkipped.Inc()
			log.Printf("[%s] Market closed, skipping cycle", w.symbol)
			return nil
		}
	}

	closes, err := w.provider.FetchRecentCloses(ctx, w.symbol, w.tf, w.lookback)
	if err != nil {
		return w.abort(err)
	}
	if len(closes) == 0 {
		return w.abort(fmt.Errorf("%w: provider returned no closes", market.ErrDataUnavailable))
	}
	snap, err := indicator.Compute(closes, w.params)
	if err != nil {
		return w.abort(err)
	}

	price := closes[len(closes)-1]
	ev, traded := w.machine.Step(price, snap)
	st := w.machine.State()

	w.metrics.Cycles.Inc()
	w.metrics.LastPrice.Set(price)
	if rsi, ok := snap.RSI.Get(); ok {
		w.metrics.LastRSI.Set(rsi)
	}
	w.metrics.Balance.Set(st.Balance)
	if st.Open {
		w.metrics.PositionOpen.Set(1)
	} else {
		w.metrics.PositionOpen.Set(0)
	}

	log.Printf("[%s] Price: $%.2f | %s | State: %s | Balance: $%.2f", w.symbol, price, snap, st.Label(), st.Balance)

	if traded {
		ev.Symbol = w.symbol
		ev.Time = w.clock.Now()
		w.emit(ctx, ev)
	}
	return nil
}

func (w *Watcher) emit(ctx context.Context, ev models.TradeEvent) {
	w.metrics.Trades.WithLabelValues(string(ev.Kind)).Inc()
	w.sink.Emit(ev.String())
	if w.recorder == nil {
		return
	}
	if err := w.recorder.Record(ctx, ev); err != nil {
		log.Printf("WARN: [%s] journal write failed: %v", w.symbol, err)
	}
}

func (w *Watcher) abort(err error) error {
	kind := errorKind(err)
	w.metrics.CycleErrors.WithLabelValues(kind).Inc()
	log.Printf("ERROR: [%s] cycle aborted (%s): %v", w.symbol, kind, err)
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, market.ErrDataUnavailable):
		return metrics.KindDataUnavailable
	case errors.Is(err, indicator.ErrInsufficientData):
		return metrics.KindInsufficientData
	case errors.Is(err, indicator.ErrInvalidInput):
		return metrics.KindInvalidInput
	default:
		return metrics.KindOther
	}
}
