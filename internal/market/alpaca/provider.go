package alpaca

import (
	"context"
	"fmt"
	"time"

	"paper_trading/internal/market"
	"paper_trading/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// barsSource is the slice of marketdata.Client the provider needs.
type barsSource interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// clockSource is the slice of alpaca.Client the provider needs.
type clockSource interface {
	GetClock() (*alpaca.Clock, error)
}

// Provider serves closes from Alpaca's stock bars endpoint.
type Provider struct {
	mdClient    barsSource
	tradeClient clockSource
	feed        marketdata.Feed
	now         func() time.Time
}

// Ensure Provider implements the interfaces
var (
	_ market.CloseFetcher   = (*Provider)(nil)
	_ market.SessionChecker = (*Provider)(nil)
)

// NewProvider returns a new Alpaca provider.
// Credentials come from APCA_API_KEY_ID / APCA_API_SECRET_KEY / APCA_API_BASE_URL,
// which the SDK reads itself.
func NewProvider() *Provider {
	return &Provider{
		mdClient:    marketdata.NewClient(marketdata.ClientOpts{}),
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{}),
		feed:        marketdata.IEX, // free plan feed
		now:         time.Now,
	}
}

// --- Market Data ---

// GetBars returns up to limit of the most recent bars for ticker.
func (p *Provider) GetBars(ticker string, tf market.Timeframe, limit int) ([]models.Bar, error) {
	end := p.now()
	bars, err := p.mdClient.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame: toTimeFrame(tf),
		Start:     windowStart(end, tf, limit),
		End:       end,
		Feed:      p.feed,
	})
	if err != nil {
		return nil, err
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	result := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		result = append(result, models.Bar{
			Time:   b.Timestamp,
			Open:   decimal.NewFromFloat(b.Open),
			High:   decimal.NewFromFloat(b.High),
			Low:    decimal.NewFromFloat(b.Low),
			Close:  decimal.NewFromFloat(b.Close),
			Volume: int64(b.Volume),
		})
	}
	return result, nil
}

// FetchRecentCloses implements market.CloseFetcher.
func (p *Provider) FetchRecentCloses(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrDataUnavailable, err)
	}
	bars, err := p.GetBars(symbol, tf, count)
	if err != nil {
		return nil, fmt.Errorf("%w: alpaca bars for %s: %v", market.ErrDataUnavailable, symbol, err)
	}
	return market.Closes(bars, count)
}

// IsMarketOpen implements market.SessionChecker using the trading clock.
func (p *Provider) IsMarketOpen(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c, err := p.tradeClient.GetClock()
	if err != nil {
		return false, err
	}
	return c.IsOpen, nil
}

// --- Helpers ---

func toTimeFrame(tf market.Timeframe) marketdata.TimeFrame {
	switch tf.Unit {
	case market.Hour:
		return marketdata.NewTimeFrame(tf.N, marketdata.Hour)
	case market.Day:
		return marketdata.NewTimeFrame(tf.N, marketdata.Day)
	default:
		return marketdata.NewTimeFrame(tf.N, marketdata.Min)
	}
}

// windowStart reaches back far enough that limit bars exist even across
// nights, weekends and holidays. Stock bars only print during sessions.
func windowStart(end time.Time, tf market.Timeframe, limit int) time.Time {
	span := time.Duration(limit) * tf.Duration()
	if tf.Unit == market.Day {
		span *= 2
	} else {
		span *= 5
	}
	return end.Add(-span).AddDate(0, 0, -5)
}
