package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Period is the bar interval of a series.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// PriceSeries holds the chronological bars of one symbol.
// Bar times are strictly increasing; non-trading days are simply absent.
type PriceSeries struct {
	Symbol    string
	Period    Period
	Bars      []OHLCV
	FetchedAt time.Time
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar. ok is false for an empty series.
func (s *PriceSeries) Last() (bar OHLCV, ok bool) {
	if s.Len() == 0 {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes extracts the close prices in order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		closes[i] = s.Bars[i].Close
	}
	return closes
}

// Volumes extracts the traded volumes in order.
func (s *PriceSeries) Volumes() []float64 {
	vols := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		vols[i] = s.Bars[i].Volume
	}
	return vols
}

// FetchResult is what a data source hands back for one symbol: either a
// series or the reason none is available.
type FetchResult struct {
	Series *PriceSeries
	Reason string
}

// Ok wraps a fetched series.
func Ok(series *PriceSeries) FetchResult {
	return FetchResult{Series: series}
}

// Unavailable reports that no usable data exists for this cycle.
func Unavailable(reason string) FetchResult {
	return FetchResult{Reason: reason}
}

// Available reports whether the result carries a non-empty series.
func (r FetchResult) Available() bool {
	return r.Series.Len() > 0
}
