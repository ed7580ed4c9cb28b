package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes notifications to the structured log. It never fails.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "notify").Logger()}
}

func (l *LogSink) Name() string { return "log" }

func (l *LogSink) Send(_ context.Context, title, text string) error {
	l.logger.Info().Str("title", title).Msg(text)
	return nil
}
