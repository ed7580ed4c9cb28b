package scheduler

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"RiskSentinel/internal/model"
	"RiskSentinel/internal/monitor"
	"RiskSentinel/internal/watchlist"

	"github.com/rs/zerolog"
)

func at(day, hour, minute, sec int) time.Time {
	// 2025-03-03 is a Monday.
	return time.Date(2025, 3, day, hour, minute, sec, 0, time.UTC)
}

func utcHours() TradingHours {
	h, err := NewTradingHours("09:30", "15:00", time.UTC, "")
	if err != nil {
		panic(err)
	}
	return h
}

func TestTradingHours_Contains(t *testing.T) {
	h := utcHours()
	tests := []struct {
		t    time.Time
		want bool
	}{
		{at(3, 9, 29, 59), false},
		{at(3, 9, 30, 0), true},
		{at(3, 9, 45, 0), true},
		{at(3, 15, 0, 0), true},
		{at(3, 15, 1, 0), false},
		{at(3, 16, 0, 0), false},
	}
	for _, tt := range tests {
		if got := h.Contains(tt.t); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.t.Format("15:04:05"), got, tt.want)
		}
	}
}

func TestTradingHours_UsesLocation(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	h, err := NewTradingHours("09:30", "15:00", shanghai, "")
	if err != nil {
		t.Fatal(err)
	}
	// 01:45 UTC is 09:45 in Shanghai.
	if !h.Contains(at(3, 1, 45, 0)) {
		t.Error("expected 01:45 UTC to be inside Shanghai trading hours")
	}
}

func TestTradingHours_WithMarketCalendar(t *testing.T) {
	h, err := NewTradingHours("09:30", "16:00", time.UTC, "XNYS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Second Wednesday of March of the current year; no NYSE holiday falls there.
	d := time.Date(time.Now().Year(), 3, 8, 15, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Wednesday {
		d = d.AddDate(0, 0, 1)
	}
	if !h.Contains(d) {
		t.Errorf("expected %s to be a trading time", d)
	}
	sat := d.AddDate(0, 0, 3)
	if h.Contains(sat) {
		t.Errorf("expected Saturday %s to be off-hours", sat)
	}
}

func TestNewTradingHours_RejectsBadClock(t *testing.T) {
	if _, err := NewTradingHours("9h30", "15:00", time.UTC, ""); err == nil {
		t.Error("expected error")
	}
}

func TestMonitorInterval(t *testing.T) {
	c := Cadence{Hours: utcHours(), Trading: 5 * time.Minute, OffHours: 10 * time.Minute}
	if got := c.MonitorInterval(at(3, 9, 45, 0)); got != 5*time.Minute {
		t.Errorf("09:45 interval = %v, want 5m", got)
	}
	if got := c.MonitorInterval(at(3, 16, 0, 0)); got != 10*time.Minute {
		t.Errorf("16:00 interval = %v, want 10m", got)
	}
}

// --- fakes ---

type fakeMonitor struct {
	passes int32
	alerts []model.Alert
}

func (f *fakeMonitor) RunOnce(context.Context) monitor.PassResult {
	atomic.AddInt32(&f.passes, 1)
	return monitor.PassResult{Symbols: 2, Skipped: 1, Forwarded: f.alerts}
}

func (f *fakeMonitor) RecentAlerts(n int) []model.Alert {
	if n < len(f.alerts) {
		return f.alerts[len(f.alerts)-n:]
	}
	return f.alerts
}

type fakeReporter struct{}

func (fakeReporter) Daily(_ context.Context, now time.Time) model.DailyReport {
	return model.DailyReport{Date: now}
}

func (fakeReporter) Sentiment(_ context.Context, now time.Time) model.SentimentReport {
	return model.SentimentReport{Date: now, Mood: model.MoodNeutral}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, title, _ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return true
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

func newTestScheduler(mon *fakeMonitor, b *recordingBroadcaster, clock func() time.Time) *Scheduler {
	opts := DefaultOptions()
	opts.Cadence.Hours = utcHours()
	opts.Clock = clock
	return New(mon, watchlist.NewMemoryStore([]string{"AAA"}), fakeReporter{}, b, opts, zerolog.Nop())
}

func TestCheckCalendar_FiresOncePerSlot(t *testing.T) {
	b := &recordingBroadcaster{}
	s := newTestScheduler(&fakeMonitor{}, b, nil)
	ctx := context.Background()

	s.checkCalendar(ctx, at(3, 16, 59, 30))
	if b.count() != 0 {
		t.Fatal("fired before the slot")
	}
	s.checkCalendar(ctx, at(3, 17, 0, 20))
	if b.count() != 1 || !strings.Contains(b.titles[0], "盘后分析报告") {
		t.Fatalf("expected the daily report, got %v", b.titles)
	}
	s.checkCalendar(ctx, at(3, 17, 1, 20))
	if b.count() != 1 {
		t.Fatal("daily report fired twice in one slot")
	}
	// Next weekday fires again.
	s.checkCalendar(ctx, at(4, 17, 0, 50))
	if b.count() != 2 {
		t.Fatalf("expected a second report on Tuesday, got %d", b.count())
	}
}

func TestCheckCalendar_NoBackfill(t *testing.T) {
	b := &recordingBroadcaster{}
	s := newTestScheduler(&fakeMonitor{}, b, nil)

	// Process comes up well after the slot.
	s.checkCalendar(context.Background(), at(3, 18, 0, 0))
	s.checkCalendar(context.Background(), at(3, 17, 2, 0))
	if b.count() != 0 {
		t.Errorf("missed slot was replayed: %v", b.titles)
	}
}

func TestCheckCalendar_WeekdaysOnlyAndSentiment(t *testing.T) {
	b := &recordingBroadcaster{}
	s := newTestScheduler(&fakeMonitor{}, b, nil)
	ctx := context.Background()

	s.checkCalendar(ctx, at(8, 17, 0, 10)) // Saturday
	if b.count() != 0 {
		t.Fatal("daily report fired on Saturday")
	}
	s.checkCalendar(ctx, at(3, 9, 0, 30)) // Monday
	s.checkCalendar(ctx, at(4, 9, 0, 30)) // Tuesday
	if b.count() != 1 || b.titles[0] != "📉 市场情绪分析" {
		t.Errorf("expected one sentiment report, got %v", b.titles)
	}
}

func TestHandleCommand(t *testing.T) {
	alerts := []model.Alert{
		{Type: model.AlertOversold, Symbol: "AAA", Message: "RSI oversold: 20.00", Severity: model.SeverityMedium, Timestamp: at(3, 10, 0, 0)},
		{Type: model.AlertHighVolume, Symbol: "BBB", Message: "volume spike: 3.00x average", Severity: model.SeverityMedium, Timestamp: at(3, 10, 5, 0)},
	}
	mon := &fakeMonitor{alerts: alerts}
	s := newTestScheduler(mon, &recordingBroadcaster{}, func() time.Time { return at(3, 17, 0, 0) })
	ctx := context.Background()

	tests := []struct {
		cmd  string
		want string
	}{
		{"/alerts 1", "volume spike"},
		{"/alerts@RiskBot", "最近预警 (2)"},
		{"/add msft", "已添加 MSFT"},
		{"/add MSFT", "MSFT 已在监控列表中"},
		{"/watchlist", "AAA\nMSFT"},
		{"/remove aaa", "已移除 AAA"},
		{"/remove aaa", "AAA 不在监控列表中"},
		{"/add", "用法"},
		{"/report", "盘后分析报告"},
		{"/sentiment", "中性"},
		{"/analyze", "分析完成: 2 只, 跳过 1, 新预警 2"},
		{"hello", "可用命令"},
	}
	for _, tt := range tests {
		if got := s.HandleCommand(ctx, tt.cmd); !strings.Contains(got, tt.want) {
			t.Errorf("HandleCommand(%q) = %q, want it to contain %q", tt.cmd, got, tt.want)
		}
	}
	if got := s.HandleCommand(ctx, "/alerts 1"); strings.Contains(got, "oversold") {
		t.Errorf("/alerts 1 should list only the newest alert, got %q", got)
	}
	if atomic.LoadInt32(&mon.passes) != 1 {
		t.Errorf("expected /analyze to run one pass, got %d", mon.passes)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	mon := &fakeMonitor{}
	s := newTestScheduler(mon, &recordingBroadcaster{}, func() time.Time { return at(3, 10, 0, 0) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&mon.passes) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&mon.passes) != 1 {
		t.Fatalf("expected one immediate pass during trading hours, got %d", mon.passes)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_OffHoursSkipsPass(t *testing.T) {
	mon := &fakeMonitor{}
	s := newTestScheduler(mon, &recordingBroadcaster{}, func() time.Time { return at(3, 20, 0, 0) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx)
	if atomic.LoadInt32(&mon.passes) != 0 {
		t.Errorf("no pass expected off-hours, got %d", mon.passes)
	}
}
