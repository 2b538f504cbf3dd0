package indicator

import "fmt"

// EMA returns the exponential moving average of values with
// alpha = 2/(period+1). The first output equals the first input; there is
// no SMA seed window.
func EMA(values []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: ema period %d", ErrInvalidInput, period)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: ema needs at least one value", ErrInsufficientData)
	}
	if err := checkFinite(values); err != nil {
		return nil, err
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*alpha + out[i-1]
	}
	return out, nil
}

// MACD returns the MACD line (fast EMA minus slow EMA, both taken over the
// whole series) and its signal line. Early points rest on barely seeded
// EMAs and are noisy, but they are not rejected.
func MACD(prices []float64, fast, slow, signal int) (macd, sig []float64, err error) {
	fastEMA, err := EMA(prices, fast)
	if err != nil {
		return nil, nil, fmt.Errorf("macd fast: %w", err)
	}
	slowEMA, err := EMA(prices, slow)
	if err != nil {
		return nil, nil, fmt.Errorf("macd slow: %w", err)
	}

	macd = make([]float64, len(prices))
	for i := range prices {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig, err = EMA(macd, signal)
	if err != nil {
		return nil, nil, fmt.Errorf("macd signal: %w", err)
	}
	return macd, sig, nil
}
