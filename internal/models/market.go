package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents a candlestick for a timeframe.
// Providers map their native candles into this shape.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}
