package calculator

import (
	"fmt"
	"math"
)

// Levels describes the recent trading range around the last close.
type Levels struct {
	Resistance     float64
	Support        float64
	NearResistance bool
	NearSupport    bool
}

// DetectBreakout reports an upward crossing of threshold x the highest close
// of the last lookback bars: the current close is above the line while the
// previous close was at or below it.
func DetectBreakout(closes []float64, lookback int, threshold float64) (bool, error) {
	if lookback <= 0 {
		return false, fmt.Errorf("lookback must be positive")
	}
	n := len(closes)
	if n < 2 || n < lookback {
		return false, ErrInsufficientData
	}
	recentHigh := math.Inf(-1)
	for i := n - lookback; i < n; i++ {
		recentHigh = math.Max(recentHigh, closes[i])
	}
	line := recentHigh * threshold
	current, previous := closes[n-1], closes[n-2]
	return current > line && previous <= line, nil
}

// SupportResistance scans the last lookback closes for the range extremes and
// flags whether the last close sits within band (a fraction) of either.
func SupportResistance(closes []float64, lookback int, band float64) (Levels, error) {
	if lookback <= 0 {
		return Levels{}, fmt.Errorf("lookback must be positive")
	}
	n := len(closes)
	if n < lookback {
		return Levels{}, ErrInsufficientData
	}
	lv := Levels{Resistance: math.Inf(-1), Support: math.Inf(1)}
	for i := n - lookback; i < n; i++ {
		lv.Resistance = math.Max(lv.Resistance, closes[i])
		lv.Support = math.Min(lv.Support, closes[i])
	}
	current := closes[n-1]
	if lv.Resistance > 0 {
		lv.NearResistance = math.Abs(current-lv.Resistance)/lv.Resistance < band
	}
	if lv.Support > 0 {
		lv.NearSupport = math.Abs(current-lv.Support)/lv.Support < band
	}
	return lv, nil
}
