package model

import "time"

// AlertType identifies the rule that raised an alert.
type AlertType string

const (
	AlertOverbought     AlertType = "OVERBOUGHT"
	AlertOversold       AlertType = "OVERSOLD"
	AlertBreakout       AlertType = "BREAKOUT"
	AlertNearResistance AlertType = "NEAR_RESISTANCE"
	AlertNearSupport    AlertType = "NEAR_SUPPORT"
	AlertSharpIncrease  AlertType = "SHARP_INCREASE"
	AlertSharpDecrease  AlertType = "SHARP_DECREASE"
	AlertHighVolume     AlertType = "HIGH_VOLUME"
)

// Severity grades how urgent an alert is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is a single rule hit for one symbol. Alerts are never mutated after
// the evaluator creates them.
type Alert struct {
	Type      AlertType
	Symbol    string
	Message   string
	Severity  Severity
	Timestamp time.Time
}
