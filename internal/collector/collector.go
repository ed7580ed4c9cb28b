package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"RiskSentinel/internal/model"

	"github.com/rs/zerolog"
)

// Source adapts a Fetcher to the monitor's data boundary: every failure is
// reported as an Unavailable result, never as an error or panic.
type Source struct {
	fetcher Fetcher
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSource creates a Source backed by fetcher.
func NewSource(fetcher Fetcher, logger zerolog.Logger) *Source {
	return &Source{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "collector").Str("fetcher", fetcher.Name()).Logger(),
		now:     time.Now,
	}
}

// Name returns the underlying fetcher name.
func (s *Source) Name() string { return s.fetcher.Name() }

// Fetch returns the last lookbackDays bars of symbol.
func (s *Source) Fetch(ctx context.Context, symbol string, period model.Period, lookbackDays int) (result model.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("symbol", symbol).Interface("panic", r).Msg("fetcher panicked")
			result = model.Unavailable(fmt.Sprintf("fetcher panic: %v", r))
		}
	}()

	bars, err := s.fetcher.FetchBars(ctx, symbol, period, lookbackDays)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("fetch failed")
		return model.Unavailable(err.Error())
	}

	bars = sanitize(bars)
	if len(bars) == 0 {
		return model.Unavailable("no usable bars")
	}
	if lookbackDays > 0 && len(bars) > lookbackDays {
		bars = bars[len(bars)-lookbackDays:]
	}
	return model.Ok(&model.PriceSeries{
		Symbol:    symbol,
		Period:    period,
		Bars:      bars,
		FetchedAt: s.now(),
	})
}

// sanitize keeps bars with a positive finite close and strictly increasing
// times; out-of-order and repeated bars are dropped.
func sanitize(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		if n := len(out); n > 0 && !b.Time.After(out[n-1].Time) {
			continue
		}
		out = append(out, b)
	}
	return out
}
