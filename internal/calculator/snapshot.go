package calculator

import (
	"math"

	"RiskSentinel/internal/model"
)

// Params are the indicator windows and thresholds.
type Params struct {
	RSIWindow         int
	MACDFast          int
	MACDSlow          int
	MACDSignal        int
	BreakoutLookback  int
	BreakoutThreshold float64
	LevelsLookback    int
	LevelsBand        float64
	VolumeWindow      int
}

// DefaultParams returns the standard indicator settings.
func DefaultParams() Params {
	return Params{
		RSIWindow:         14,
		MACDFast:          12,
		MACDSlow:          26,
		MACDSignal:        9,
		BreakoutLookback:  20,
		BreakoutThreshold: 0.995,
		LevelsLookback:    30,
		LevelsBand:        0.02,
		VolumeWindow:      10,
	}
}

// Compute derives the indicator snapshot for the last bar of series.
// Breakout and support/resistance are skipped on series shorter than
// LevelsLookback; the others are flagged invalid when undefined.
func Compute(series *model.PriceSeries, p Params) model.IndicatorSnapshot {
	var snap model.IndicatorSnapshot
	if series.Len() == 0 {
		return snap
	}
	closes := series.Closes()

	if rsi, ok := lastDefined(RSISeries(closes, p.RSIWindow)); ok {
		snap.RSI, snap.RSIValid = rsi, true
	}

	m := MACDSeries(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	last := len(closes) - 1
	if !math.IsNaN(m.MACD[last]) && !math.IsNaN(m.Signal[last]) {
		snap.MACD = m.MACD[last]
		snap.Signal = m.Signal[last]
		snap.Histogram = m.Histogram[last]
		snap.MACDValid = true
	}

	if len(closes) >= p.LevelsLookback {
		breakout, errB := DetectBreakout(closes, p.BreakoutLookback, p.BreakoutThreshold)
		lv, errL := SupportResistance(closes, p.LevelsLookback, p.LevelsBand)
		if errB == nil && errL == nil {
			snap.Breakout = breakout
			snap.Resistance = lv.Resistance
			snap.Support = lv.Support
			snap.NearResistance = lv.NearResistance
			snap.NearSupport = lv.NearSupport
			snap.LevelsValid = true
		}
	}

	if ratio, err := VolumeRatio(series.Volumes(), p.VolumeWindow); err == nil {
		snap.VolumeRatio, snap.VolumeRatioValid = ratio, true
	}
	return snap
}
