package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"RiskSentinel/internal/model"
)

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	http    *httpClient
}

// NewVsTraderFetcher creates a new fetcher against baseURL.
func NewVsTraderFetcher(baseURL, apiKey string, opts ClientOptions) *VsTraderFetcher {
	return &VsTraderFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		http:    newHTTPClient(opts),
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FetchBars returns up to count bars. When the weekly endpoint is missing,
// weekly bars are aggregated from daily ones.
func (f *VsTraderFetcher) FetchBars(ctx context.Context, symbol string, period model.Period, count int) ([]model.OHLCV, error) {
	if period != model.PeriodWeekly {
		return f.fetchBars(ctx, "daily", symbol, count)
	}

	bars, err := f.fetchBars(ctx, "weekly", symbol, count)
	if err == nil {
		return bars, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	daily, dailyErr := f.fetchBars(ctx, "daily", symbol, count*7)
	if dailyErr != nil {
		return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
	}
	weekly := aggregateDailyToWeekly(daily)
	if len(weekly) > count {
		weekly = weekly[len(weekly)-count:]
	}
	return weekly, nil
}

func (f *VsTraderFetcher) fetchBars(ctx context.Context, interval, symbol string, limit int) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/%s?symbol=%s&limit=%d",
		f.BaseURL, interval, url.QueryEscape(symbol), limit)
	header := http.Header{}
	if f.APIKey != "" {
		header.Set("Authorization", "Bearer "+f.APIKey)
	}

	body, err := f.http.get(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars: %w", interval, err)
	}
	var vsBars []vsBar
	if err := json.Unmarshal(body, &vsBars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(vsBars) == 0 {
		return nil, fmt.Errorf("vstrader %s: %w", symbol, ErrNoData)
	}

	bars := make([]model.OHLCV, len(vsBars))
	for i, vb := range vsBars {
		bars[i] = model.OHLCV{
			Time:   time.Unix(vb.Timestamp, 0),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: vb.Volume,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// aggregateDailyToWeekly converts daily bars into ISO-week bars.
func aggregateDailyToWeekly(daily []model.OHLCV) []model.OHLCV {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.OHLCV
	week := daily[0]
	wy, ww := week.Time.ISOWeek()

	for _, d := range daily[1:] {
		y, w := d.Time.ISOWeek()
		if y != wy || w != ww {
			weekly = append(weekly, week)
			week = d
			wy, ww = y, w
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}
