package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"RiskSentinel/internal/model"

	"github.com/rs/zerolog"
)

var fastRetry = ClientOptions{RequestsPerSec: 100, RetryInterval: 5 * time.Millisecond, MaxRetryTime: time.Second}

func TestYahooFetcher_ParsesChartAndSkipsNullBars(t *testing.T) {
	var gotPath, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1700000000,1700086400,1700172800],
			"indicators":{"quote":[{"open":[10,null,12],"high":[11,null,13],"low":[9,null,11],
			"close":[10.5,null,12.5],"volume":[1000,null,3000]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher(fastRetry)
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "600519.XSHG", model.PeriodDaily, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v8/finance/chart/600519.SS" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotRange != "6mo" {
		t.Errorf("60 daily bars requested with range %q", gotRange)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[1].Close != 12.5 || bars[1].Volume != 3000 {
		t.Errorf("unexpected last bar %+v", bars[1])
	}
}

func TestDailyRange_CoversHolidays(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{10, "1mo"},
		{20, "3mo"},
		{50, "3mo"},
		{60, "6mo"},
		{120, "1y"},
		{250, "2y"},
		{500, "5y"},
	}
	for _, tt := range tests {
		if got := dailyRange(tt.count); got != tt.want {
			t.Errorf("dailyRange(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

func TestYahooFetcher_TrimsToCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1700000000,1700086400,1700172800],
			"indicators":{"quote":[{"open":[10,11,12],"high":[10,11,12],"low":[10,11,12],
			"close":[10,11,12],"volume":[1,2,3]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher(fastRetry)
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "AAPL", model.PeriodDaily, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 11 || bars[1].Close != 12 {
		t.Errorf("expected the newest 2 bars, got %+v", bars)
	}
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher(fastRetry)
	f.BaseURL = srv.URL
	if _, err := f.FetchBars(context.Background(), "NOPE", model.PeriodDaily, 60); err == nil {
		t.Fatal("expected error")
	}
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	body, err := newHTTPClient(fastRetry).get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "ok" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("body=%q calls=%d", body, calls)
	}
}

func TestHTTPClient_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newHTTPClient(fastRetry).get(context.Background(), srv.URL, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("4xx must not be retried, got %d calls", calls)
	}
}

func TestVsTraderFetcher_WeeklyFallsBackToDaily(t *testing.T) {
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	var daily []string
	for i := 0; i < 10; i++ {
		d := monday.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := 100 + i
		daily = append(daily, fmt.Sprintf(`{"timestamp":%d,"open":%d,"high":%d,"low":%d,"close":%d,"volume":10}`,
			d.Unix(), p, p+1, p-1, p))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/weekly") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "["+strings.Join(daily, ",")+"]")
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "key", fastRetry)
	weekly, err := f.FetchBars(context.Background(), "AAPL", model.PeriodWeekly, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(weekly) != 2 {
		t.Fatalf("expected 2 weekly bars, got %d", len(weekly))
	}
	first := weekly[0]
	if first.Open != 100 || first.Close != 104 || first.High != 105 || first.Low != 99 || first.Volume != 50 {
		t.Errorf("unexpected first week %+v", first)
	}
}

func TestSource_SanitizesAndTrims(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []model.OHLCV{
		{Time: base, Close: 10},
		{Time: base.AddDate(0, 0, 1), Close: 11},
		{Time: base.AddDate(0, 0, 1), Close: 12}, // repeated date
		{Time: base.AddDate(0, 0, 2), Close: 0},  // null close
		{Time: base.AddDate(0, 0, 3), Close: 13},
		{Time: base.AddDate(0, 0, 4), Close: 14},
	}
	src := NewSource(&MockFetcher{Bars: map[string][]model.OHLCV{"AAA": bars}}, zerolog.Nop())

	res := src.Fetch(context.Background(), "AAA", model.PeriodDaily, 3)
	if !res.Available() {
		t.Fatalf("expected data, got reason %q", res.Reason)
	}
	got := res.Series.Closes()
	want := []float64{11, 13, 14}
	if len(got) != len(want) {
		t.Fatalf("closes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("closes = %v, want %v", got, want)
			break
		}
	}
}

type panickingFetcher struct{}

func (panickingFetcher) Name() string { return "panic" }
func (panickingFetcher) FetchBars(context.Context, string, model.Period, int) ([]model.OHLCV, error) {
	panic("boom")
}

func TestSource_FailuresBecomeUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		fetcher Fetcher
	}{
		{"error", &MockFetcher{Err: errors.New("upstream down")}},
		{"empty", &MockFetcher{Bars: map[string][]model.OHLCV{"AAA": {}}}},
		{"panic", panickingFetcher{}},
	}
	for _, tt := range tests {
		res := NewSource(tt.fetcher, zerolog.Nop()).Fetch(context.Background(), "AAA", model.PeriodDaily, 60)
		if res.Available() || res.Reason == "" {
			t.Errorf("%s: expected Unavailable with reason, got %+v", tt.name, res)
		}
	}
}

func TestMockFetcher_GeneratesRequestedCount(t *testing.T) {
	bars, err := (&MockFetcher{Price: 50}).FetchBars(context.Background(), "X", model.PeriodDaily, 60)
	if err != nil || len(bars) != 60 {
		t.Fatalf("expected 60 bars, got %d (%v)", len(bars), err)
	}
}
