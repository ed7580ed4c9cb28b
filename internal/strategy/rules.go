package strategy

import (
	"fmt"
	"time"

	"RiskSentinel/internal/model"

	"github.com/shopspring/decimal"
)

type ruleContext struct {
	symbol string
	now    time.Time
}

func (r ruleContext) alert(t model.AlertType, sev model.Severity, msg string) model.Alert {
	return model.Alert{Type: t, Symbol: r.symbol, Message: msg, Severity: sev, Timestamp: r.now}
}

// rsiAlerts flags overbought and oversold momentum.
func (e *Evaluator) rsiAlerts(r ruleContext, snap model.IndicatorSnapshot) []model.Alert {
	if !snap.RSIValid {
		return nil
	}
	var out []model.Alert
	if snap.RSI > e.Rules.Overbought {
		out = append(out, r.alert(model.AlertOverbought, model.SeverityMedium,
			fmt.Sprintf("RSI overbought: %.2f", snap.RSI)))
	}
	if snap.RSI < e.Rules.Oversold {
		out = append(out, r.alert(model.AlertOversold, model.SeverityMedium,
			fmt.Sprintf("RSI oversold: %.2f", snap.RSI)))
	}
	return out
}

// levelAlerts covers breakouts and proximity to the recent range extremes.
// Resistance is checked first; near-support only fires when the close is
// not also near resistance.
func (e *Evaluator) levelAlerts(r ruleContext, series *model.PriceSeries, snap model.IndicatorSnapshot) []model.Alert {
	if !snap.LevelsValid {
		return nil
	}
	last, _ := series.Last()

	var out []model.Alert
	if snap.Breakout {
		out = append(out, r.alert(model.AlertBreakout, model.SeverityHigh,
			fmt.Sprintf("price breakout: %.2f", last.Close)))
	}
	switch {
	case snap.NearResistance:
		out = append(out, r.alert(model.AlertNearResistance, model.SeverityLow,
			fmt.Sprintf("price near resistance: %.2f", snap.Resistance)))
	case snap.NearSupport:
		out = append(out, r.alert(model.AlertNearSupport, model.SeverityLow,
			fmt.Sprintf("price near support: %.2f", snap.Support)))
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// priceAlerts compares the last close with the average close of the last
// PriceAverageWindow bars. Decimal arithmetic keeps the percentage
// thresholds exact at their boundaries.
func (e *Evaluator) priceAlerts(r ruleContext, series *model.PriceSeries) []model.Alert {
	window := e.Rules.PriceAverageWindow
	closes := series.Closes()
	if window <= 0 || len(closes) < window {
		return nil
	}

	sum := decimal.Zero
	for _, c := range closes[len(closes)-window:] {
		sum = sum.Add(decimal.NewFromFloat(c))
	}
	avg := sum.Div(decimal.NewFromInt(int64(window)))
	if avg.IsZero() {
		return nil
	}
	current := decimal.NewFromFloat(closes[len(closes)-1])
	change := current.Sub(avg).Div(avg).Mul(hundred)

	magnitude := change.Abs()
	if magnitude.LessThan(decimal.NewFromFloat(e.Rules.PriceAlertPercent)) {
		return nil
	}

	typ := model.AlertSharpDecrease
	pct := change.StringFixed(2)
	if change.IsPositive() {
		typ = model.AlertSharpIncrease
		pct = "+" + pct
	}
	sev := model.SeverityMedium
	if magnitude.GreaterThanOrEqual(decimal.NewFromFloat(e.Rules.PriceHighSeverityPercent)) {
		sev = model.SeverityHigh
	}
	msg := fmt.Sprintf("price move %s%% vs %d-bar average (current %s)", pct, window, current.StringFixed(2))
	return []model.Alert{r.alert(typ, sev, msg)}
}

// volumeAlerts flags trading volume well above its recent average.
func (e *Evaluator) volumeAlerts(r ruleContext, snap model.IndicatorSnapshot) []model.Alert {
	if !snap.VolumeRatioValid || snap.VolumeRatio < e.Rules.VolumeRatioTrigger {
		return nil
	}
	return []model.Alert{r.alert(model.AlertHighVolume, model.SeverityMedium,
		fmt.Sprintf("volume spike: %.2fx average", snap.VolumeRatio))}
}
