package market

import (
	"testing"
	"time"

	"paper_trading/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(closes ...float64) []models.Bar {
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		out[i] = models.Bar{Close: decimal.NewFromFloat(c)}
	}
	return out
}

func TestCloses_TrimsToMostRecent(t *testing.T) {
	got, err := Closes(bars(1, 2, 3, 4.5), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4.5}, got)
}

func TestCloses_NotEnoughBars(t *testing.T) {
	_, err := Closes(bars(1, 2), 3)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = Closes(nil, 0)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in   string
		want Timeframe
		dur  time.Duration
	}{
		{"1m", Timeframe{1, Minute}, time.Minute},
		{"15m", Timeframe{15, Minute}, 15 * time.Minute},
		{" 4H ", Timeframe{4, Hour}, 4 * time.Hour},
		{"1d", Timeframe{1, Day}, 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeframe(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.dur, got.Duration())
		})
	}

	for _, bad := range []string{"", "2m", "1w", "m", "15"} {
		_, err := ParseTimeframe(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "15m", Timeframe{15, Minute}.String())
}
