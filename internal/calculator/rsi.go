package calculator

import (
	"errors"
	"math"

	"RiskSentinel/internal/model"
)

// RSISeries computes RSI with simple rolling means of gains and losses over
// window deltas. The first window bars are NaN. A window with losses of zero
// yields 100, and a completely flat window stays NaN.
func RSISeries(closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	if window <= 0 {
		return out
	}
	for i := window; i < len(closes); i++ {
		var gain, loss float64
		for j := i - window + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gain += change
			} else {
				loss -= change
			}
		}
		gain /= float64(window)
		loss /= float64(window)

		switch {
		case loss == 0 && gain == 0:
			out[i] = math.NaN()
		case loss == 0:
			out[i] = 100.0
		default:
			rs := gain / loss
			out[i] = 100.0 - 100.0/(1.0+rs)
		}
	}
	return out
}

// CalculateRSI returns the RSI of the most recent bar.
func CalculateRSI(bars []model.OHLCV, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(bars) < window+1 {
		return 0, ErrInsufficientData
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	rsi, ok := lastDefined(RSISeries(closes, window))
	if !ok {
		return 0, ErrInsufficientData
	}
	return rsi, nil
}
