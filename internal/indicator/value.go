// Package indicator computes RSI and MACD series from closing prices.
//
// Every function here is pure: no state survives a call and input slices are
// never modified.
package indicator

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput is returned for non-finite prices or nonsensical periods.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientData is returned when the series is shorter than the lookback.
	ErrInsufficientData = errors.New("insufficient data")
)

// Value is an indicator reading that may be absent during warm-up.
// The zero Value is absent.
type Value struct {
	v  float64
	ok bool
}

// Some returns a present Value.
func Some(v float64) Value { return Value{v: v, ok: true} }

// None returns an absent Value.
func None() Value { return Value{} }

// Get returns the reading and whether it is present.
func (v Value) Get() (float64, bool) { return v.v, v.ok }

// Valid reports whether the reading is present.
func (v Value) Valid() bool { return v.ok }

// Less reports v < x. An absent Value is never less than anything.
func (v Value) Less(x float64) bool { return v.ok && v.v < x }

// Greater reports v > x. An absent Value is never greater than anything.
func (v Value) Greater(x float64) bool { return v.ok && v.v > x }

func (v Value) String() string {
	if !v.ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.v)
}

// Last returns the final element of a series, or None for an empty one.
func Last(series []Value) Value {
	if len(series) == 0 {
		return None()
	}
	return series[len(series)-1]
}

func checkFinite(values []float64) error {
	for i, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite value %v at index %d", ErrInvalidInput, x, i)
		}
	}
	return nil
}
