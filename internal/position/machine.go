// Package position holds the FLAT/LONG paper position and decides when to
// enter and leave it.
package position

import (
	"math"

	"paper_trading/internal/indicator"
	"paper_trading/internal/models"
)

// Rules are the entry and exit thresholds. Fractions are plain ratios
// (0.05 means 5%).
type Rules struct {
	RSIBuy           float64
	RSISell          float64
	RequireCrossover bool
	StopLoss         float64
	TakeProfit       float64
	PositionSize     float64
}

// State is the paper position. EntryPrice is zero while flat.
type State struct {
	Open       bool
	EntryPrice float64
	Balance    float64
}

// Label returns "LONG" or "FLAT".
func (s State) Label() string {
	if s.Open {
		return "LONG"
	}
	return "FLAT"
}

// Machine owns a State and applies Rules to it. It is not safe for
// concurrent use; one Machine serves one instrument.
type Machine struct {
	rules Rules
	state State
}

// NewMachine starts flat with the given paper balance.
func NewMachine(rules Rules, balance float64) *Machine {
	return &Machine{rules: rules, state: State{Balance: balance}}
}

// State returns a copy of the current position.
func (m *Machine) State() State { return m.state }

// Step evaluates one price and indicator snapshot. It returns the trade
// event and true on a transition, or false for a hold, in which case
// nothing is mutated. Symbol and Time on the event are left for the
// caller to fill in.
func (m *Machine) Step(price float64, snap indicator.Snapshot) (models.TradeEvent, bool) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return models.TradeEvent{}, false
	}
	if m.state.Open {
		return m.exit(price, snap)
	}
	return m.enter(price, snap)
}

func (m *Machine) enter(price float64, snap indicator.Snapshot) (models.TradeEvent, bool) {
	if !snap.RSI.Less(m.rules.RSIBuy) {
		return models.TradeEvent{}, false
	}
	if m.rules.RequireCrossover {
		sig, ok := snap.Signal.Get()
		if !ok || !snap.MACD.Greater(sig) {
			return models.TradeEvent{}, false
		}
	}

	m.state.Open = true
	m.state.EntryPrice = price
	return models.TradeEvent{Kind: models.Buy, Price: price}, true
}

func (m *Machine) exit(price float64, snap indicator.Snapshot) (models.TradeEvent, bool) {
	reason := m.exitReason(price, snap)
	if reason == models.ExitNone {
		return models.TradeEvent{}, false
	}

	profit := (price - m.state.EntryPrice) * m.rules.PositionSize
	m.state.Balance += profit
	m.state.Open = false
	m.state.EntryPrice = 0
	return models.TradeEvent{
		Kind:         models.Sell,
		Price:        price,
		Profit:       profit,
		BalanceAfter: m.state.Balance,
		Reason:       reason,
	}, true
}

// exitReason returns the first exit check that holds. The checks are OR'd;
// the order only decides which reason is reported.
func (m *Machine) exitReason(price float64, snap indicator.Snapshot) models.ExitReason {
	entry := m.state.EntryPrice
	switch {
	case price <= entry*(1-m.rules.StopLoss):
		return models.ExitStopLoss
	case price >= entry*(1+m.rules.TakeProfit):
		return models.ExitTakeProfit
	case snap.RSI.Greater(m.rules.RSISell):
		return models.ExitRSI
	}
	return models.ExitNone
}
