package report

import (
	"context"
	"time"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/monitor"
	"RiskSentinel/internal/strategy"

	"github.com/rs/zerolog"
)

// AlertHistory exposes the retained alerts.
type AlertHistory interface {
	RecentAlerts(n int) []model.Alert
}

// Options tunes report contents. A zero TopSymbols or RecentAlerts leaves
// that section empty; negative values and the other zero fields fall back to
// the defaults.
type Options struct {
	IndexSymbols []string
	TopSymbols   int
	RecentAlerts int
	Period       model.Period
	LookbackDays int
	FetchTimeout time.Duration
	Indicators   calculator.Params
	Rules        strategy.Rules
}

// Builder assembles the daily report and the weekly sentiment summary.
type Builder struct {
	source    monitor.DataSource
	watchlist monitor.Watchlist
	history   AlertHistory
	opts      Options
	logger    zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(source monitor.DataSource, watchlist monitor.Watchlist, history AlertHistory, opts Options, logger zerolog.Logger) *Builder {
	if opts.TopSymbols < 0 {
		opts.TopSymbols = 5
	}
	if opts.RecentAlerts < 0 {
		opts.RecentAlerts = 10
	}
	if opts.Period == "" {
		opts.Period = model.PeriodDaily
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 60
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 8 * time.Second
	}
	if opts.Indicators == (calculator.Params{}) {
		opts.Indicators = calculator.DefaultParams()
	}
	if opts.Rules == (strategy.Rules{}) {
		opts.Rules = strategy.DefaultRules()
	}
	return &Builder{
		source:    source,
		watchlist: watchlist,
		history:   history,
		opts:      opts,
		logger:    logger.With().Str("component", "report").Logger(),
	}
}

// Daily builds the post-market report: index overview, a technical digest of
// the first watched symbols and the latest alerts.
func (b *Builder) Daily(ctx context.Context, now time.Time) model.DailyReport {
	r := model.DailyReport{Date: now}

	for _, sym := range b.opts.IndexSymbols {
		res := b.fetch(ctx, sym, 5)
		bar, ok := res.Series.Last()
		if !ok {
			b.logger.Warn().Str("symbol", sym).Str("reason", res.Reason).Msg("index unavailable")
			continue
		}
		q := model.IndexQuote{Symbol: sym, Close: bar.Close}
		if bar.Open != 0 {
			q.ChangePct = (bar.Close - bar.Open) / bar.Open * 100
		}
		r.Overview = append(r.Overview, q)
	}

	symbols, err := b.watchlist.Snapshot(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("watchlist snapshot failed")
	}
	if len(symbols) > b.opts.TopSymbols {
		symbols = symbols[:b.opts.TopSymbols]
	}
	for _, sym := range symbols {
		r.Symbols = append(r.Symbols, b.summarise(ctx, sym))
	}

	r.Alerts = b.history.RecentAlerts(b.opts.RecentAlerts)
	return r
}

func (b *Builder) summarise(ctx context.Context, symbol string) model.SymbolSummary {
	res := b.fetch(ctx, symbol, b.opts.LookbackDays)
	if !res.Available() {
		return model.SymbolSummary{Symbol: symbol, Err: res.Reason}
	}
	bar, _ := res.Series.Last()
	return model.SymbolSummary{
		Symbol:     symbol,
		Close:      bar.Close,
		Indicators: calculator.Compute(res.Series, b.opts.Indicators),
	}
}

// Sentiment counts how many watched symbols sit in each RSI and MACD regime
// and labels the overall mood.
func (b *Builder) Sentiment(ctx context.Context, now time.Time) model.SentimentReport {
	r := model.SentimentReport{Date: now, Mood: model.MoodNeutral}

	symbols, err := b.watchlist.Snapshot(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("watchlist snapshot failed")
		return r
	}
	for _, sym := range symbols {
		s := b.summarise(ctx, sym)
		if s.Err != "" {
			r.Unavailable++
			continue
		}
		r.Evaluated++
		ind := s.Indicators
		if ind.RSIValid {
			switch {
			case ind.RSI > b.opts.Rules.Overbought:
				r.Overbought++
			case ind.RSI < b.opts.Rules.Oversold:
				r.Oversold++
			}
		}
		if ind.MACDValid {
			switch {
			case ind.Histogram > 0:
				r.MACDPositive++
			case ind.Histogram < 0:
				r.MACDNegative++
			}
		}
	}
	r.Mood = Mood(r)
	return r
}

// Mood is bullish when at least 60% of the evaluated symbols have a positive
// MACD histogram, bearish when 60% have a negative one, neutral otherwise.
func Mood(r model.SentimentReport) model.Mood {
	if r.Evaluated == 0 {
		return model.MoodNeutral
	}
	n := float64(r.Evaluated)
	switch {
	case float64(r.MACDPositive)/n >= 0.6:
		return model.MoodBullish
	case float64(r.MACDNegative)/n >= 0.6:
		return model.MoodBearish
	}
	return model.MoodNeutral
}

func (b *Builder) fetch(ctx context.Context, symbol string, count int) model.FetchResult {
	fctx, cancel := context.WithTimeout(ctx, b.opts.FetchTimeout)
	defer cancel()
	return b.source.Fetch(fctx, symbol, b.opts.Period, count)
}
