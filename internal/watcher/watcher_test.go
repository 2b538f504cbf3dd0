package watcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"paper_trading/internal/config"
	"paper_trading/internal/indicator"
	"paper_trading/internal/logger"
	"paper_trading/internal/market"
	"paper_trading/internal/metrics"
	"paper_trading/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher hands out one response per call, repeating the last one.
type fakeFetcher struct {
	responses [][]float64
	errs      []error
	calls     int
	lastCount int
}

func (f *fakeFetcher) FetchRecentCloses(_ context.Context, _ string, _ market.Timeframe, count int) ([]float64, error) {
	i := f.calls
	f.calls++
	f.lastCount = count
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

type sessionFetcher struct {
	fakeFetcher
	open bool
	err  error
}

func (s *sessionFetcher) IsMarketOpen(context.Context) (bool, error) {
	return s.open, s.err
}

type fakeClock struct {
	now       time.Time
	sleeps    []time.Duration
	maxSleeps int
	cancel    context.CancelFunc
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.cancel != nil && len(c.sleeps) >= c.maxSleeps {
		c.cancel()
	}
	return ctx.Err()
}

type memRecorder struct {
	events []models.TradeEvent
	err    error
}

func (r *memRecorder) Record(_ context.Context, ev models.TradeEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

type lines []string

func (l *lines) sink() logger.Sink {
	return logger.SinkFunc(func(line string) { *l = append(*l, line) })
}

var start = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func testConfig(crossover bool) *config.Config {
	return &config.Config{
		BotID: "test_bot",
		TF:    market.Timeframe{N: 15, Unit: market.Minute},
		Bot: config.Bot{
			Symbol:       "AAPL",
			Timeframe:    "15m",
			Provider:     config.ProviderAlpaca,
			PaperBalance: 1000,
			Lookback:     40,
			Strategy: config.StrategyParams{
				RSIPeriod:                   indicator.DefaultRSIPeriod,
				MACDFast:                    indicator.DefaultMACDFast,
				MACDSlow:                    indicator.DefaultMACDSlow,
				MACDSignal:                  indicator.DefaultMACDSignal,
				RSIThresholdBuy:             30,
				RSIThresholdSell:            70,
				MACDSignalCrossoverRequired: crossover,
				StopLossFraction:            0.05,
				TakeProfitFraction:          0.10,
				PositionSize:                2,
				TradeIntervalSeconds:        900,
			},
		},
	}
}

// falling returns n closes dropping by one from first.
func falling(n int, first float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = first - float64(i)
	}
	return out
}

func withLast(prices []float64, last float64) []float64 {
	out := append([]float64(nil), prices...)
	out[len(out)-1] = last
	return out
}

func newTestWatcher(cfg *config.Config, f market.CloseFetcher, out *lines, rec *memRecorder) (*Watcher, *fakeClock) {
	clk := &fakeClock{now: start}
	opts := []Option{WithClock(clk), WithMetrics(metrics.New(cfg.BotID))}
	if rec != nil {
		opts = append(opts, WithRecorder(rec))
	}
	return New(cfg, f, out.sink(), opts...), clk
}

func TestPoll_BuyThenStopLoss(t *testing.T) {
	series := falling(40, 100) // last close 61
	f := &fakeFetcher{responses: [][]float64{series, withLast(series, 50)}}
	var out lines
	rec := &memRecorder{}
	w, _ := newTestWatcher(testConfig(false), f, &out, rec)

	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, 40, f.lastCount)
	st := w.State()
	require.True(t, st.Open)
	assert.Equal(t, 61.0, st.EntryPrice)
	assert.Equal(t, 1000.0, st.Balance)
	require.Len(t, out, 1)
	assert.Equal(t, "BUY AAPL @ $61.00", out[0])

	require.NoError(t, w.Poll(context.Background()))
	st = w.State()
	assert.False(t, st.Open)
	assert.Equal(t, 978.0, st.Balance)
	require.Len(t, out, 2)
	assert.Contains(t, out[1], "SELL AAPL @ $50.00")
	assert.Contains(t, out[1], "Reason: stop_loss")

	require.Len(t, rec.events, 2)
	assert.Equal(t, models.Buy, rec.events[0].Kind)
	assert.Equal(t, "AAPL", rec.events[0].Symbol)
	assert.Equal(t, start, rec.events[0].Time)
	assert.Equal(t, models.ExitStopLoss, rec.events[1].Reason)
	assert.InDelta(t, -22.0, rec.events[1].Profit, 1e-9)

	m := w.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trades.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trades.WithLabelValues("SELL")))
	assert.Equal(t, 978.0, testutil.ToFloat64(m.Balance))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PositionOpen))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.LastPrice))
}

func TestPoll_CrossoverRequiredHoldsOnDowntrend(t *testing.T) {
	// Oversold, but MACD stays under its signal on a steady decline.
	f := &fakeFetcher{responses: [][]float64{falling(40, 100)}}
	var out lines
	w, _ := newTestWatcher(testConfig(true), f, &out, nil)

	require.NoError(t, w.Poll(context.Background()))
	assert.False(t, w.State().Open)
	assert.Empty(t, out)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.Metrics().Cycles))
}

func TestPoll_FailuresLeaveStateUntouched(t *testing.T) {
	nan := withLast(falling(40, 100), math.NaN())

	tests := []struct {
		name    string
		fetcher *fakeFetcher
		target  error
		kind    string
	}{
		{
			name:    "provider error",
			fetcher: &fakeFetcher{errs: []error{fmt.Errorf("%w: timeout", market.ErrDataUnavailable)}},
			target:  market.ErrDataUnavailable,
			kind:    metrics.KindDataUnavailable,
		},
		{
			name:    "empty response",
			fetcher: &fakeFetcher{responses: [][]float64{{}}},
			target:  market.ErrDataUnavailable,
			kind:    metrics.KindDataUnavailable,
		},
		{
			name:    "too few closes",
			fetcher: &fakeFetcher{responses: [][]float64{falling(5, 100)}},
			target:  indicator.ErrInsufficientData,
			kind:    metrics.KindInsufficientData,
		},
		{
			name:    "non-finite close",
			fetcher: &fakeFetcher{responses: [][]float64{nan}},
			target:  indicator.ErrInvalidInput,
			kind:    metrics.KindInvalidInput,
		},
		{
			name:    "unclassified",
			fetcher: &fakeFetcher{errs: []error{errors.New("boom")}},
			kind:    metrics.KindOther,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out lines
			w, _ := newTestWatcher(testConfig(false), tt.fetcher, &out, nil)
			before := w.State()

			err := w.Poll(context.Background())
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, before, w.State())
			assert.Empty(t, out)

			m := w.Metrics()
			assert.Equal(t, 0.0, testutil.ToFloat64(m.Cycles))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.CycleErrors.WithLabelValues(tt.kind)))
		})
	}
}

func TestPoll_MarketClosedSkips(t *testing.T) {
	cfg := testConfig(false)
	cfg.Bot.MarketHoursOnly = true
	f := &sessionFetcher{fakeFetcher: fakeFetcher{responses: [][]float64{falling(40, 100)}}}
	var out lines
	w, _ := newTestWatcher(cfg, f, &out, nil)

	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.Metrics().CyclesSkipped))

	f.open = true
	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, 1, f.calls)
	assert.True(t, w.State().Open)

	f.err = errors.New("clock down")
	err := w.Poll(context.Background())
	assert.ErrorIs(t, err, market.ErrDataUnavailable)
	assert.Equal(t, 1, f.calls)
}

func TestNew_IgnoresMarketHoursWithoutSessionClock(t *testing.T) {
	cfg := testConfig(false)
	cfg.Bot.MarketHoursOnly = true
	f := &fakeFetcher{responses: [][]float64{falling(40, 100)}}
	var out lines
	w, _ := newTestWatcher(cfg, f, &out, nil)

	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, 1, f.calls)
}

func TestNew_RaisesLookbackToIndicatorMinimum(t *testing.T) {
	cfg := testConfig(false)
	cfg.Bot.Lookback = 10
	f := &fakeFetcher{responses: [][]float64{falling(40, 100)}}
	var out lines
	w, _ := newTestWatcher(cfg, f, &out, nil)

	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, 35, f.lastCount)
}

func TestPoll_JournalFailureIsNotFatal(t *testing.T) {
	f := &fakeFetcher{responses: [][]float64{falling(40, 100)}}
	var out lines
	rec := &memRecorder{err: errors.New("disk full")}
	w, _ := newTestWatcher(testConfig(false), f, &out, rec)

	require.NoError(t, w.Poll(context.Background()))
	assert.True(t, w.State().Open)
	assert.Len(t, out, 1)
	assert.Len(t, rec.events, 1)
}

func TestRun_SleepsBetweenCyclesUntilCancelled(t *testing.T) {
	series := falling(40, 100)
	f := &fakeFetcher{
		responses: [][]float64{series, series, withLast(series, 50)},
		errs:      []error{nil, errors.New("transient")},
	}
	var out lines
	w, clk := newTestWatcher(testConfig(false), f, &out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.cancel = cancel
	clk.maxSleeps = 3

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 3, f.calls)
	assert.Equal(t, []time.Duration{15 * time.Minute, 15 * time.Minute, 15 * time.Minute}, clk.sleeps)
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "BUY AAPL")
	assert.Contains(t, out[1], "SELL AAPL")
	assert.False(t, w.State().Open)
}

func TestSystemClock_SleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	begin := time.Now()
	err := SystemClock().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(begin), time.Second)

	assert.NoError(t, SystemClock().Sleep(context.Background(), time.Millisecond))
}
