package indicator

import "fmt"

// lossFloor replaces an exactly zero average loss so RS stays finite.
const lossFloor = 1e-10

// RSI computes the Relative Strength Index of prices.
//
// The result has the same length as prices. The first period entries are
// absent; entry period is seeded from the simple mean of the first period
// gains and losses, and later entries use exponential smoothing with
// alpha = 2/(period+1) rather than Wilder's 1/period.
func RSI(prices []float64, period int) ([]Value, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: rsi period %d", ErrInvalidInput, period)
	}
	if err := checkFinite(prices); err != nil {
		return nil, err
	}
	if len(prices) < period+1 {
		return nil, fmt.Errorf("%w: rsi(%d) needs %d prices, got %d", ErrInsufficientData, period, period+1, len(prices))
	}

	n := len(prices) - 1
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 0; i < n; i++ {
		d := prices[i+1] - prices[i]
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]Value, len(prices))
	out[period] = Some(rsiFrom(avgGain, avgLoss))

	alpha := 2.0 / float64(period+1)
	for i := period; i < n; i++ {
		avgGain = gains[i]*alpha + avgGain*(1-alpha)
		avgLoss = losses[i]*alpha + avgLoss*(1-alpha)
		out[i+1] = Some(rsiFrom(avgGain, avgLoss))
	}
	return out, nil
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		avgLoss = lossFloor
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
