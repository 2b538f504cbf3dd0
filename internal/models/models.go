package models

import (
	"fmt"
	"time"
)

// TradeKind is the side of a paper trade.
type TradeKind string

const (
	Buy  TradeKind = "BUY"
	Sell TradeKind = "SELL"
)

// ExitReason names the check that closed a position.
type ExitReason string

const (
	ExitNone       ExitReason = ""
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitRSI        ExitReason = "rsi_overbought"
)

// TradeEvent is emitted on every position transition.
// Profit and BalanceAfter are only meaningful for SELL.
type TradeEvent struct {
	Kind         TradeKind  `json:"kind"`
	Symbol       string     `json:"symbol"`
	Price        float64    `json:"price"`
	Time         time.Time  `json:"time"`
	Profit       float64    `json:"profit,omitempty"`
	BalanceAfter float64    `json:"balance_after,omitempty"`
	Reason       ExitReason `json:"reason,omitempty"`
}

// String renders the human-readable line sent to log sinks.
func (e TradeEvent) String() string {
	if e.Kind == Sell {
		return fmt.Sprintf("SELL %s @ $%.2f | PnL: $%.2f | Balance: $%.2f | Reason: %s",
			e.Symbol, e.Price, e.Profit, e.BalanceAfter, e.Reason)
	}
	return fmt.Sprintf("BUY %s @ $%.2f", e.Symbol, e.Price)
}
