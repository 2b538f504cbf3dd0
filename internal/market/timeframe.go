package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is the base unit of a Timeframe.
type Unit string

const (
	Minute Unit = "m"
	Hour   Unit = "h"
	Day    Unit = "d"
)

// Timeframe is a candle width such as 15m or 1d.
type Timeframe struct {
	N    int
	Unit Unit
}

var supported = map[string]bool{
	"1m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "4h": true, "1d": true,
}

// ParseTimeframe accepts 1m, 5m, 15m, 30m, 1h, 4h and 1d.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !supported[s] {
		return Timeframe{}, fmt.Errorf("unsupported timeframe %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return Timeframe{}, fmt.Errorf("timeframe %q: %w", s, err)
	}
	return Timeframe{N: n, Unit: Unit(s[len(s)-1:])}, nil
}

// Duration is the wall-clock width of one candle.
func (tf Timeframe) Duration() time.Duration {
	switch tf.Unit {
	case Hour:
		return time.Duration(tf.N) * time.Hour
	case Day:
		return time.Duration(tf.N) * 24 * time.Hour
	default:
		return time.Duration(tf.N) * time.Minute
	}
}

func (tf Timeframe) String() string {
	return fmt.Sprintf("%d%s", tf.N, tf.Unit)
}
