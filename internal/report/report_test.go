package report

import (
	"context"
	"math"
	"testing"
	"time"

	"RiskSentinel/internal/collector"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/watchlist"

	"github.com/rs/zerolog"
)

var day = time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC)

func trend(n int, start, step float64) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = model.OHLCV{Time: day.AddDate(0, 0, i-n), Open: c - step/2, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

type staticHistory []model.Alert

func (h staticHistory) RecentAlerts(n int) []model.Alert {
	if n < len(h) {
		return h[len(h)-n:]
	}
	return h
}

func newBuilder(bars map[string][]model.OHLCV, symbols []string, opts Options) *Builder {
	src := collector.NewSource(&collector.MockFetcher{Bars: bars, Err: nil}, zerolog.Nop())
	hist := staticHistory{{Type: model.AlertBreakout, Symbol: "UP", Timestamp: day}}
	return NewBuilder(src, watchlist.NewMemoryStore(symbols), hist, opts, zerolog.Nop())
}

func TestDaily(t *testing.T) {
	bars := map[string][]model.OHLCV{
		"IDX":  {{Time: day, Open: 100, Close: 102}},
		"UP":   trend(60, 100, 1),
		"DOWN": trend(60, 200, -1),
		"NONE": {},
	}
	b := newBuilder(bars, []string{"UP", "NONE", "DOWN", "EXTRA"}, Options{
		IndexSymbols: []string{"IDX", "NONE"},
		TopSymbols:   3,
		RecentAlerts: 10,
	})

	r := b.Daily(context.Background(), day)
	if len(r.Overview) != 1 || math.Abs(r.Overview[0].ChangePct-2) > 1e-9 {
		t.Fatalf("overview = %+v", r.Overview)
	}
	if len(r.Symbols) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(r.Symbols))
	}
	if r.Symbols[0].Close != 159 || !r.Symbols[0].Indicators.RSIValid {
		t.Errorf("UP summary = %+v", r.Symbols[0])
	}
	if r.Symbols[1].Err == "" {
		t.Error("NONE should be reported unavailable")
	}
	if len(r.Alerts) != 1 {
		t.Errorf("expected recent alerts in report, got %d", len(r.Alerts))
	}
}

func TestDaily_ZeroSectionsStayEmpty(t *testing.T) {
	bars := map[string][]model.OHLCV{"IDX": {{Time: day, Open: 100, Close: 101}}, "UP": trend(60, 100, 1)}
	b := newBuilder(bars, []string{"UP"}, Options{IndexSymbols: []string{"IDX"}})

	r := b.Daily(context.Background(), day)
	if len(r.Overview) != 1 {
		t.Fatalf("overview = %+v", r.Overview)
	}
	if len(r.Symbols) != 0 || len(r.Alerts) != 0 {
		t.Errorf("zero top_symbols/recent_alerts should leave sections empty, got %d symbols %d alerts",
			len(r.Symbols), len(r.Alerts))
	}
}

func TestSentiment(t *testing.T) {
	bars := map[string][]model.OHLCV{
		"UP1":  trend(60, 100, 1),
		"UP2":  trend(60, 50, 0.5),
		"DOWN": trend(60, 200, -1),
		"NONE": {},
	}
	b := newBuilder(bars, []string{"UP1", "UP2", "DOWN", "NONE"}, Options{})

	r := b.Sentiment(context.Background(), day)
	if r.Evaluated != 3 || r.Unavailable != 1 {
		t.Fatalf("evaluated=%d unavailable=%d", r.Evaluated, r.Unavailable)
	}
	if r.Overbought != 2 || r.Oversold != 1 {
		t.Errorf("overbought=%d oversold=%d", r.Overbought, r.Oversold)
	}
	if r.MACDPositive != 2 || r.MACDNegative != 1 {
		t.Errorf("macd +%d -%d", r.MACDPositive, r.MACDNegative)
	}
	if r.Mood != model.MoodBullish {
		t.Errorf("mood = %s, want bullish", r.Mood)
	}
}

func TestMood(t *testing.T) {
	tests := []struct {
		r    model.SentimentReport
		want model.Mood
	}{
		{model.SentimentReport{}, model.MoodNeutral},
		{model.SentimentReport{Evaluated: 5, MACDPositive: 3, MACDNegative: 2}, model.MoodBullish},
		{model.SentimentReport{Evaluated: 5, MACDPositive: 2, MACDNegative: 3}, model.MoodBearish},
		{model.SentimentReport{Evaluated: 4, MACDPositive: 2, MACDNegative: 2}, model.MoodNeutral},
	}
	for _, tt := range tests {
		if got := Mood(tt.r); got != tt.want {
			t.Errorf("Mood(%+v) = %s, want %s", tt.r, got, tt.want)
		}
	}
}
