package model

import "time"

// IndexQuote is one line of the market overview.
type IndexQuote struct {
	Symbol    string
	Close     float64
	ChangePct float64
}

// SymbolSummary is the technical digest of a watched symbol.
type SymbolSummary struct {
	Symbol     string
	Close      float64
	Indicators IndicatorSnapshot
	Err        string
}

// DailyReport is the post-market report content.
type DailyReport struct {
	Date     time.Time
	Overview []IndexQuote
	Symbols  []SymbolSummary
	Alerts   []Alert
}

// Mood is the overall breadth reading of the watchlist.
type Mood string

const (
	MoodBullish Mood = "bullish"
	MoodBearish Mood = "bearish"
	MoodNeutral Mood = "neutral"
)

// SentimentReport is the weekly breadth summary over the watchlist.
type SentimentReport struct {
	Date         time.Time
	Evaluated    int
	Unavailable  int
	Overbought   int
	Oversold     int
	MACDPositive int
	MACDNegative int
	Mood         Mood
}
