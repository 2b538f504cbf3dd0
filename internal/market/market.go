package market

import (
	"context"
	"errors"
	"fmt"

	"paper_trading/internal/models"
)

// ErrDataUnavailable means the provider could not supply the requested closes.
var ErrDataUnavailable = errors.New("data unavailable")

// CloseFetcher is the data source the watcher polls.
// Implementations return exactly count closes, oldest first, or an error
// wrapping ErrDataUnavailable.
type CloseFetcher interface {
	FetchRecentCloses(ctx context.Context, symbol string, tf Timeframe, count int) ([]float64, error)
}

// SessionChecker is implemented by providers whose market keeps hours.
type SessionChecker interface {
	IsMarketOpen(ctx context.Context) (bool, error)
}

// Closes reduces bars to the last count closing prices.
// It fails with ErrDataUnavailable when fewer than count bars are present.
func Closes(bars []models.Bar, count int) ([]float64, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: invalid count %d", ErrDataUnavailable, count)
	}
	if len(bars) < count {
		return nil, fmt.Errorf("%w: got %d bars, need %d", ErrDataUnavailable, len(bars), count)
	}
	bars = bars[len(bars)-count:]
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out, nil
}
