package strategy

import (
	"time"

	"RiskSentinel/internal/model"
)

// Rules holds the alert thresholds.
type Rules struct {
	Overbought               float64
	Oversold                 float64
	PriceAlertPercent        float64
	PriceHighSeverityPercent float64
	PriceAverageWindow       int
	VolumeRatioTrigger       float64
}

// DefaultRules returns the standard alert thresholds.
func DefaultRules() Rules {
	return Rules{
		Overbought:               70,
		Oversold:                 30,
		PriceAlertPercent:        2.0,
		PriceHighSeverityPercent: 5.0,
		PriceAverageWindow:       10,
		VolumeRatioTrigger:       2.0,
	}
}

// Evaluator turns one symbol's series and indicator snapshot into alerts.
type Evaluator struct {
	Rules Rules
}

// NewEvaluator creates an Evaluator with the given thresholds.
func NewEvaluator(rules Rules) *Evaluator {
	return &Evaluator{Rules: rules}
}

// Evaluate runs every rule independently, in a fixed order, and returns the
// alerts raised. Rules whose inputs are undefined are skipped; an empty
// series yields no alerts.
func (e *Evaluator) Evaluate(series *model.PriceSeries, snap model.IndicatorSnapshot, now time.Time) []model.Alert {
	if series.Len() == 0 {
		return nil
	}
	r := ruleContext{symbol: series.Symbol, now: now}

	var alerts []model.Alert
	alerts = append(alerts, e.rsiAlerts(r, snap)...)
	alerts = append(alerts, e.levelAlerts(r, series, snap)...)
	alerts = append(alerts, e.priceAlerts(r, series)...)
	alerts = append(alerts, e.volumeAlerts(r, snap)...)
	return alerts
}
