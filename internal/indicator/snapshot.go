package indicator

import "fmt"

// Default periods.
const (
	DefaultRSIPeriod  = 14
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// Params selects the indicator periods.
type Params struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams returns RSI(14) and MACD(12, 26, 9).
func DefaultParams() Params {
	return Params{
		RSIPeriod:  DefaultRSIPeriod,
		MACDFast:   DefaultMACDFast,
		MACDSlow:   DefaultMACDSlow,
		MACDSignal: DefaultMACDSignal,
	}
}

// Lookback is the minimum number of closes Compute should be given:
// period+1 for RSI and slow+signal for MACD, whichever is larger.
func (p Params) Lookback() int {
	n := p.RSIPeriod + 1
	if m := p.MACDSlow + p.MACDSignal; m > n {
		n = m
	}
	return n
}

// Snapshot holds the latest reading of each indicator.
type Snapshot struct {
	RSI    Value
	MACD   Value
	Signal Value
}

func (s Snapshot) String() string {
	return fmt.Sprintf("rsi=%s macd=%s signal=%s", s.RSI, s.MACD, s.Signal)
}

// Compute runs RSI and MACD over prices and returns the readings at the most
// recent close.
func Compute(prices []float64, p Params) (Snapshot, error) {
	rsi, err := RSI(prices, p.RSIPeriod)
	if err != nil {
		return Snapshot{}, err
	}
	macd, sig, err := MACD(prices, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return Snapshot{}, err
	}
	last := len(prices) - 1
	return Snapshot{
		RSI:    Last(rsi),
		MACD:   Some(macd[last]),
		Signal: Some(sig[last]),
	}, nil
}
