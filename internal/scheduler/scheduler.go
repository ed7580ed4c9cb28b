package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"RiskSentinel/internal/model"
	"RiskSentinel/internal/monitor"
	"RiskSentinel/internal/notifier"
	"RiskSentinel/internal/watchlist"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Monitor is the engine driven by the monitor cadence.
type Monitor interface {
	RunOnce(ctx context.Context) monitor.PassResult
	RecentAlerts(n int) []model.Alert
}

// Reporter builds the calendar job reports.
type Reporter interface {
	Daily(ctx context.Context, now time.Time) model.DailyReport
	Sentiment(ctx context.Context, now time.Time) model.SentimentReport
}

// Broadcaster sends a report to every notification sink.
type Broadcaster interface {
	Broadcast(ctx context.Context, title, text string) bool
}

// JobMetrics counts calendar job executions.
type JobMetrics interface {
	JobRun(job string)
}

// Options configures both cadences. Zero values fall back to the defaults.
type Options struct {
	Cadence       Cadence
	CalendarCheck time.Duration
	DailyReportAt int // minutes after midnight
	SentimentDay  time.Weekday
	SentimentAt   int
	Metrics       JobMetrics
	Clock         func() time.Time
}

// DefaultOptions: 5m/10m monitor cadence, a 60s calendar check, the daily
// report at 17:00 on weekdays and the sentiment summary on Monday 09:00.
func DefaultOptions() Options {
	return Options{
		Cadence: Cadence{
			Hours:    DefaultTradingHours(),
			Trading:  5 * time.Minute,
			OffHours: 10 * time.Minute,
		},
		CalendarCheck: 60 * time.Second,
		DailyReportAt: 17 * 60,
		SentimentDay:  time.Monday,
		SentimentAt:   9 * 60,
	}
}

// calendarJob fires at most once per day, in the grace window after its slot.
type calendarJob struct {
	name    string
	days    map[time.Weekday]bool
	at      int
	run     func(ctx context.Context, now time.Time)
	lastRun string
}

// Scheduler drives the monitor on a trading-hours aware cadence and runs the
// calendar jobs on an independent one.
type Scheduler struct {
	monitor Monitor
	store   watchlist.Store
	reports Reporter
	notify  Broadcaster
	opts    Options
	now     func() time.Time

	cron   *cron.Cron
	mu     sync.Mutex // guards jobs
	jobs   []*calendarJob
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// New creates a Scheduler.
func New(mon Monitor, store watchlist.Store, reports Reporter, notify Broadcaster, opts Options, logger zerolog.Logger) *Scheduler {
	def := DefaultOptions()
	if opts.Cadence.Hours.Start == 0 && opts.Cadence.Hours.End == 0 {
		opts.Cadence.Hours = def.Cadence.Hours
	}
	if opts.Cadence.Hours.Location == nil {
		opts.Cadence.Hours.Location = time.Local
	}
	if opts.Cadence.Trading <= 0 {
		opts.Cadence.Trading = def.Cadence.Trading
	}
	if opts.Cadence.OffHours <= 0 {
		opts.Cadence.OffHours = def.Cadence.OffHours
	}
	if opts.CalendarCheck <= 0 {
		opts.CalendarCheck = def.CalendarCheck
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger}
	s := &Scheduler{
		monitor: mon,
		store:   store,
		reports: reports,
		notify:  notify,
		opts:    opts,
		now:     opts.Clock,
		cron: cron.New(
			cron.WithLocation(opts.Cadence.Hours.Location),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}

	weekdays := map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true, time.Thursday: true, time.Friday: true,
	}
	s.jobs = []*calendarJob{
		{name: "daily_report", days: weekdays, at: opts.DailyReportAt, run: s.dailyReport},
		{name: "weekly_sentiment", days: map[time.Weekday]bool{opts.SentimentDay: true}, at: opts.SentimentAt, run: s.weeklySentiment},
	}
	return s
}

// Run starts both cadences and blocks until ctx is cancelled. It returns
// after the cron scheduler and the monitor loop have stopped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Schedule(cron.Every(s.opts.CalendarCheck), cron.FuncJob(func() {
		s.checkCalendar(ctx, s.now())
	}))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.monitorLoop(ctx)
	}()
	s.cron.Start()
	s.logger.Info().Dur("trading", s.opts.Cadence.Trading).Dur("off_hours", s.opts.Cadence.OffHours).
		Dur("calendar_check", s.opts.CalendarCheck).Msg("scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
	return nil
}

// RunOnce triggers an immediate monitoring pass.
func (s *Scheduler) RunOnce(ctx context.Context) monitor.PassResult {
	return s.monitor.RunOnce(ctx)
}

func (s *Scheduler) monitorLoop(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		now := s.now()
		if s.opts.Cadence.Hours.Contains(now) {
			s.monitor.RunOnce(ctx)
		} else {
			s.logger.Debug().Time("now", now).Msg("outside trading hours")
		}
		timer.Reset(s.opts.Cadence.MonitorInterval(now))
	}
}

// checkCalendar runs every job whose slot started within the last two check
// intervals and has not fired today. Slots missed while the process was down
// are not replayed.
func (s *Scheduler) checkCalendar(ctx context.Context, now time.Time) {
	loc := s.opts.Cadence.Hours.Location
	local := now.In(loc)
	grace := 2 * s.opts.CalendarCheck
	day := local.Format("2006-01-02")

	s.mu.Lock()
	var due []*calendarJob
	for _, j := range s.jobs {
		if !j.days[local.Weekday()] || j.lastRun == day {
			continue
		}
		slot := time.Date(local.Year(), local.Month(), local.Day(), j.at/60, j.at%60, 0, 0, loc)
		if local.Before(slot) || !local.Before(slot.Add(grace)) {
			continue
		}
		j.lastRun = day
		due = append(due, j)
	}
	s.mu.Unlock()

	for _, j := range due {
		s.logger.Info().Str("job", j.name).Msg("running calendar job")
		if s.opts.Metrics != nil {
			s.opts.Metrics.JobRun(j.name)
		}
		j.run(ctx, now)
	}
}

func (s *Scheduler) dailyReport(ctx context.Context, now time.Time) {
	title, text := notifier.FormatDailyReport(s.reports.Daily(ctx, now))
	if !s.notify.Broadcast(ctx, title, text) {
		s.logger.Error().Msg("daily report not delivered")
	}
}

func (s *Scheduler) weeklySentiment(ctx context.Context, now time.Time) {
	title, text := notifier.FormatSentiment(s.reports.Sentiment(ctx, now))
	if !s.notify.Broadcast(ctx, title, text) {
		s.logger.Error().Msg("sentiment report not delivered")
	}
}

const helpText = "可用命令:\n" +
	"• /alerts [n] 最近预警\n" +
	"• /watchlist 监控列表\n" +
	"• /add 代码 添加监控\n" +
	"• /remove 代码 移除监控\n" +
	"• /analyze 立即分析\n" +
	"• /report 盘后报告\n" +
	"• /sentiment 市场情绪"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i] // /alerts@MyBot
	}
	args := fields[1:]

	switch cmd {
	case "/alerts", "查看预警":
		n := 10
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
				n = v
			}
		}
		if n > 50 {
			n = 50
		}
		return notifier.FormatAlertList(s.monitor.RecentAlerts(n))

	case "/watchlist", "监控列表":
		symbols, err := s.store.Snapshot(ctx)
		if err != nil {
			return fmt.Sprintf("❌ 读取监控列表失败: %v", err)
		}
		return notifier.FormatWatchlist(symbols)

	case "/add", "/remove":
		if len(args) == 0 {
			return fmt.Sprintf("用法: %s 代码", cmd)
		}
		return s.editWatchlist(ctx, cmd == "/add", args[0])

	case "/analyze", "立即分析":
		res := s.RunOnce(ctx)
		return notifier.FormatPassSummary(res.Symbols, res.Skipped, res.Suppressed, res.Forwarded, res.Duration)

	case "/report", "盘后报告":
		title, body := notifier.FormatDailyReport(s.reports.Daily(ctx, s.now()))
		return title + "\n\n" + body

	case "/sentiment", "市场情绪":
		title, body := notifier.FormatSentiment(s.reports.Sentiment(ctx, s.now()))
		return title + "\n\n" + body
	}
	return helpText
}

func (s *Scheduler) editWatchlist(ctx context.Context, add bool, symbol string) string {
	var changed bool
	var err error
	if add {
		changed, err = s.store.Add(ctx, symbol)
	} else {
		changed, err = s.store.Remove(ctx, symbol)
	}
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	sym, _ := watchlist.Normalize(symbol)
	switch {
	case add && changed:
		return "✅ 已添加 " + sym
	case add:
		return sym + " 已在监控列表中"
	case changed:
		return "✅ 已移除 " + sym
	}
	return sym + " 不在监控列表中"
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
