package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/strategy"

	"github.com/rs/zerolog"
)

// ErrDataUnavailable marks a symbol skipped because its data source returned
// no usable series this cycle.
var ErrDataUnavailable = errors.New("data unavailable")

// DataSource provides price series. Implementations report failures through
// the result rather than by returning an error.
type DataSource interface {
	Fetch(ctx context.Context, symbol string, period model.Period, lookbackDays int) model.FetchResult
}

// AlertSink delivers an alert on a best-effort basis and reports whether any
// delivery succeeded.
type AlertSink interface {
	Deliver(ctx context.Context, alert model.Alert) bool
}

// Watchlist yields the symbols to evaluate.
type Watchlist interface {
	Snapshot(ctx context.Context) ([]string, error)
}

// Metrics receives pass-level observations.
type Metrics interface {
	ObservePass(d time.Duration)
	SymbolSkipped(reason string)
	AlertForwarded(t model.AlertType)
	AlertSuppressed(t model.AlertType)
}

// Options configures a Monitor. Zero values fall back to the defaults.
type Options struct {
	Period       model.Period
	LookbackDays int
	FetchTimeout   time.Duration
	DeliverTimeout time.Duration
	Indicators     calculator.Params
	Rules          strategy.Rules
	Dedup          DedupWindow
	HistorySize    int
	Metrics        Metrics
	Clock          func() time.Time
}

// PassResult summarises one monitoring pass.
type PassResult struct {
	Started    time.Time
	Duration   time.Duration
	Symbols    int
	Skipped    int
	Suppressed int
	Forwarded  []model.Alert
}

// Monitor runs monitoring passes over the watchlist.
type Monitor struct {
	source    DataSource
	watchlist Watchlist
	sink      AlertSink
	metrics   Metrics

	params    calculator.Params
	evaluator *strategy.Evaluator
	dedup     DedupWindow
	history   *History

	period         model.Period
	lookbackDays   int
	fetchTimeout   time.Duration
	deliverTimeout time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

// New creates a Monitor.
func New(source DataSource, watchlist Watchlist, sink AlertSink, opts Options, logger zerolog.Logger) *Monitor {
	if opts.Period == "" {
		opts.Period = model.PeriodDaily
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 60
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 8 * time.Second
	}
	if opts.DeliverTimeout <= 0 {
		opts.DeliverTimeout = 20 * time.Second
	}
	if opts.Indicators == (calculator.Params{}) {
		opts.Indicators = calculator.DefaultParams()
	}
	if opts.Rules == (strategy.Rules{}) {
		opts.Rules = strategy.DefaultRules()
	}
	if opts.Dedup == (DedupWindow{}) {
		opts.Dedup = DefaultDedupWindow()
	}
	if opts.HistorySize < opts.Dedup.Size {
		opts.HistorySize = 200
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Monitor{
		source:         source,
		watchlist:      watchlist,
		sink:           sink,
		metrics:        opts.Metrics,
		params:         opts.Indicators,
		evaluator:      strategy.NewEvaluator(opts.Rules),
		dedup:          opts.Dedup,
		history:        NewHistory(opts.HistorySize),
		period:         opts.Period,
		lookbackDays:   opts.LookbackDays,
		fetchTimeout:   opts.FetchTimeout,
		deliverTimeout: opts.DeliverTimeout,
		now:            opts.Clock,
		logger:         logger.With().Str("component", "monitor").Logger(),
	}
}

// RunOnce evaluates every symbol of one watchlist snapshot. A failing symbol
// is logged and skipped; the pass always continues with the next one.
func (m *Monitor) RunOnce(ctx context.Context) PassResult {
	res := PassResult{Started: m.now()}
	defer func() {
		res.Duration = m.now().Sub(res.Started)
		m.metrics.ObservePass(res.Duration)
	}()

	symbols, err := m.watchlist.Snapshot(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("watchlist snapshot failed, skipping pass")
		return res
	}
	res.Symbols = len(symbols)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			m.logger.Warn().Msg("pass cancelled")
			break
		}
		alerts, err := m.checkSymbol(ctx, symbol)
		if err != nil {
			res.Skipped++
			m.metrics.SymbolSkipped(skipReason(err))
			m.logger.Warn().Err(err).Str("symbol", symbol).Msg("symbol skipped")
			continue
		}

		admitted, suppressed := m.history.Admit(alerts, m.dedup)
		res.Suppressed += len(suppressed)
		for _, a := range suppressed {
			m.metrics.AlertSuppressed(a.Type)
		}
		for _, a := range admitted {
			m.logger.Info().Str("symbol", a.Symbol).Str("type", string(a.Type)).
				Str("severity", string(a.Severity)).Msg(a.Message)
			m.metrics.AlertForwarded(a.Type)
			m.deliver(ctx, a)
			res.Forwarded = append(res.Forwarded, a)
		}
	}

	m.logger.Info().Int("symbols", res.Symbols).Int("skipped", res.Skipped).
		Int("alerts", len(res.Forwarded)).Int("suppressed", res.Suppressed).Msg("pass complete")
	return res
}

// RecentAlerts returns the last n retained alerts, oldest first.
func (m *Monitor) RecentAlerts(n int) []model.Alert {
	return m.history.Recent(n)
}

// Watchlist returns the store the monitor snapshots each pass.
func (m *Monitor) Watchlist() Watchlist {
	return m.watchlist
}

// Params returns the indicator settings used by the monitor.
func (m *Monitor) Params() calculator.Params {
	return m.params
}

func (m *Monitor) checkSymbol(ctx context.Context, symbol string) (alerts []model.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate %s: panic: %v", symbol, r)
		}
	}()

	result, err := m.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !result.Available() {
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, result.Reason)
	}
	snap := calculator.Compute(result.Series, m.params)
	return m.evaluator.Evaluate(result.Series, snap, m.now()), nil
}

// fetch bounds the data source call by the per-symbol timeout even when the
// source ignores its context.
func (m *Monitor) fetch(ctx context.Context, symbol string) (model.FetchResult, error) {
	fctx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()

	ch := make(chan model.FetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- model.Unavailable(fmt.Sprintf("data source panic: %v", r))
			}
		}()
		ch <- m.source.Fetch(fctx, symbol, m.period, m.lookbackDays)
	}()

	select {
	case res := <-ch:
		return res, nil
	case <-fctx.Done():
		return model.FetchResult{}, fmt.Errorf("fetch %s: %w", symbol, fctx.Err())
	}
}

// deliver hands one alert to the sink, waiting at most deliverTimeout. A
// sink that ignores its context keeps running in the background.
func (m *Monitor) deliver(ctx context.Context, a model.Alert) {
	dctx, cancel := context.WithTimeout(ctx, m.deliverTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error().Str("symbol", a.Symbol).Interface("panic", r).Msg("alert sink panic")
			}
		}()
		m.sink.Deliver(dctx, a)
	}()

	select {
	case <-done:
	case <-dctx.Done():
		m.logger.Warn().Err(dctx.Err()).Str("symbol", a.Symbol).Str("type", string(a.Type)).
			Msg("alert delivery abandoned")
	}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrDataUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

type nopMetrics struct{}

func (nopMetrics) ObservePass(time.Duration)       {}
func (nopMetrics) SymbolSkipped(string)            {}
func (nopMetrics) AlertForwarded(model.AlertType)  {}
func (nopMetrics) AlertSuppressed(model.AlertType) {}
