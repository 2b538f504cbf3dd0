// Package binance serves closes from Binance spot klines.
package binance

import (
	"context"
	"fmt"
	"time"

	"paper_trading/internal/market"
	"paper_trading/internal/models"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// maxLimit is the largest page the klines endpoint serves.
const maxLimit = 1000

// Provider implements market.CloseFetcher. Crypto trades around the clock,
// so it does not implement market.SessionChecker.
type Provider struct {
	client *gobinance.Client
}

var _ market.CloseFetcher = (*Provider)(nil)

// NewProvider builds a provider. Klines are public; key and secret may be empty.
func NewProvider(apiKey, secretKey string) *Provider {
	return &Provider{client: gobinance.NewClient(apiKey, secretKey)}
}

// NewProviderWithBaseURL points the client at another host (testnet, tests).
func NewProviderWithBaseURL(baseURL string) *Provider {
	c := gobinance.NewClient("", "")
	c.BaseURL = baseURL
	return &Provider{client: c}
}

// GetBars returns the most recent limit klines, oldest first.
func (p *Provider) GetBars(ctx context.Context, symbol string, tf market.Timeframe, limit int) ([]models.Bar, error) {
	if limit <= 0 || limit > maxLimit {
		return nil, fmt.Errorf("kline limit %d out of range 1..%d", limit, maxLimit)
	}
	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(tf.String()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := toBar(k)
		if err != nil {
			return nil, err
		}
		out = append(out, bar)
	}
	return out, nil
}

// FetchRecentCloses implements market.CloseFetcher.
func (p *Provider) FetchRecentCloses(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]float64, error) {
	bars, err := p.GetBars(ctx, symbol, tf, count)
	if err != nil {
		return nil, fmt.Errorf("%w: binance klines for %s: %v", market.ErrDataUnavailable, symbol, err)
	}
	return market.Closes(bars, count)
}

func toBar(k *gobinance.Kline) (models.Bar, error) {
	fields := [...]string{k.Open, k.High, k.Low, k.Close}
	var vals [4]decimal.Decimal
	for i, s := range fields {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return models.Bar{}, fmt.Errorf("kline %d: bad price %q: %w", k.OpenTime, s, err)
		}
		vals[i] = d
	}
	vol, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return models.Bar{}, fmt.Errorf("kline %d: bad volume %q: %w", k.OpenTime, k.Volume, err)
	}
	return models.Bar{
		Time:   time.UnixMilli(k.OpenTime),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vol.IntPart(),
	}, nil
}
