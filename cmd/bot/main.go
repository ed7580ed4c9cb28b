package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/collector"
	"RiskSentinel/internal/config"
	"RiskSentinel/internal/logging"
	"RiskSentinel/internal/metrics"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/monitor"
	"RiskSentinel/internal/notifier"
	"RiskSentinel/internal/report"
	"RiskSentinel/internal/scheduler"
	"RiskSentinel/internal/strategy"
	"RiskSentinel/internal/watchlist"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("load .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	logger.Info().Str("config", cfgPath).Msg("RiskSentinel starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)
	if cfg.Metrics.ListenAddr != "" {
		go serveMetrics(ctx, cfg.Metrics.ListenAddr, reg, logger)
	}

	// Watchlist store
	var store watchlist.Store
	if cfg.Watchlist.SQLitePath != "" {
		ss, err := watchlist.NewSQLiteStore(ctx, cfg.Watchlist.SQLitePath, cfg.Watchlist.Symbols, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open sqlite watchlist")
		}
		defer ss.Close()
		store = ss
	} else {
		store = watchlist.NewMemoryStore(cfg.Watchlist.Symbols)
	}

	// Data source
	clientOpts := collector.ClientOptions{RequestsPerSec: cfg.DataSource.RequestsPerSec, ProxyURL: cfg.Proxy}
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "vstrader":
		fetcher = collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, clientOpts)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(clientOpts)
	}
	source := collector.NewSource(fetcher, logger)
	logger.Info().Str("fetcher", fetcher.Name()).Msg("data source ready")

	// Notification sinks
	sinks, err := notifier.Build(cfg.Notifiers, cfg.Proxy, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build notifiers")
	}
	dispatcher := notifier.NewDispatcher(sinks, rec, logger)

	// Engine
	params := calculator.Params{
		RSIWindow:         cfg.Indicators.RSIWindow,
		MACDFast:          cfg.Indicators.MACDFast,
		MACDSlow:          cfg.Indicators.MACDSlow,
		MACDSignal:        cfg.Indicators.MACDSignal,
		BreakoutLookback:  cfg.Indicators.BreakoutLookback,
		BreakoutThreshold: cfg.Indicators.BreakoutThreshold,
		LevelsLookback:    cfg.Indicators.LevelsLookback,
		LevelsBand:        cfg.Indicators.LevelsBand,
		VolumeWindow:      cfg.Indicators.VolumeWindow,
	}
	rules := strategy.Rules{
		Overbought:               cfg.Rules.Overbought,
		Oversold:                 cfg.Rules.Oversold,
		PriceAlertPercent:        cfg.Rules.PriceAlertPercent,
		PriceHighSeverityPercent: cfg.Rules.PriceHighSeverityPercent,
		PriceAverageWindow:       cfg.Rules.PriceAverageWindow,
		VolumeRatioTrigger:       cfg.Rules.VolumeRatioTrigger,
	}
	period := model.Period(cfg.DataSource.Period)
	mon := monitor.New(source, store, dispatcher, monitor.Options{
		Period:         period,
		LookbackDays:   cfg.DataSource.LookbackDays,
		FetchTimeout:   cfg.DataSource.FetchTimeout,
		DeliverTimeout: cfg.NotifyTimeout,
		Indicators:     params,
		Rules:          rules,
		Dedup:          monitor.DedupWindow{Size: cfg.Dedup.Size, Cooldown: cfg.Dedup.Cooldown},
		HistorySize:    cfg.Dedup.HistorySize,
		Metrics:        rec,
	}, logger)

	reports := report.NewBuilder(source, store, mon, report.Options{
		IndexSymbols: cfg.Report.IndexSymbols,
		TopSymbols:   cfg.Report.TopSymbols,
		RecentAlerts: cfg.Report.RecentAlerts,
		Period:       period,
		LookbackDays: cfg.DataSource.LookbackDays,
		FetchTimeout: cfg.DataSource.FetchTimeout,
		Indicators:   params,
		Rules:        rules,
	}, logger)

	// Scheduler
	hours, err := scheduler.NewTradingHours(cfg.Schedule.TradingStart, cfg.Schedule.TradingEnd,
		cfg.Location(), cfg.Schedule.MarketMIC)
	if err != nil {
		logger.Fatal().Err(err).Msg("trading hours")
	}
	dailyAt, _ := config.ParseClock(cfg.Schedule.DailyReportTime)
	sentimentAt, _ := config.ParseClock(cfg.Schedule.SentimentTime)
	sentimentDay, _ := config.ParseWeekday(cfg.Schedule.SentimentDay)

	sched := scheduler.New(mon, store, reports, dispatcher, scheduler.Options{
		Cadence: scheduler.Cadence{
			Hours:    hours,
			Trading:  cfg.Schedule.TradingInterval,
			OffHours: cfg.Schedule.OffHoursInterval,
		},
		CalendarCheck: cfg.Schedule.CalendarCheck,
		DailyReportAt: dailyAt,
		SentimentDay:  sentimentDay,
		SentimentAt:   sentimentAt,
		Metrics:       rec,
	}, logger)

	// Start Telegram polling
	for i, s := range sinks {
		tn, ok := s.(*notifier.TelegramNotifier)
		if !ok || !cfg.Notifiers[i].Polling {
			continue
		}
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info().Msg("RUN_ON_START enabled, running a pass now")
		go sched.RunOnce(ctx)
	}

	logger.Info().Msg("RiskSentinel is running. Press Ctrl+C to stop.")
	if err := sched.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("scheduler")
	}
	logger.Info().Msg("RiskSentinel stopped")
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server")
	}
}
