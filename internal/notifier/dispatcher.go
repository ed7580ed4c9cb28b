package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"RiskSentinel/internal/config"
	"RiskSentinel/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrDelivery wraps a failed notification send.
var ErrDelivery = errors.New("delivery failed")

// Sink is one outbound notification channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, title, text string) error
}

// FailureMetrics counts failed deliveries per sink.
type FailureMetrics interface {
	SinkFailed(sink string)
}

// Dispatcher fans notifications out to every configured sink.
type Dispatcher struct {
	sinks   []Sink
	metrics FailureMetrics
	logger  zerolog.Logger
}

// NewDispatcher creates a Dispatcher. metrics may be nil.
func NewDispatcher(sinks []Sink, metrics FailureMetrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		metrics: metrics,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Sinks returns the configured sinks.
func (d *Dispatcher) Sinks() []Sink { return d.sinks }

// Deliver formats and sends one alert. It reports whether at least one sink
// accepted it; failures are logged and never returned to the caller.
func (d *Dispatcher) Deliver(ctx context.Context, alert model.Alert) bool {
	title, text := FormatAlert(alert)
	return d.Broadcast(ctx, title, text)
}

// Broadcast sends title and text to every sink.
func (d *Dispatcher) Broadcast(ctx context.Context, title, text string) bool {
	delivered := false
	for _, s := range d.sinks {
		if err := s.Send(ctx, title, text); err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrDelivery, s.Name(), err)
			d.logger.Error().Err(err).Str("sink", s.Name()).Str("title", title).Msg("notification failed")
			if d.metrics != nil {
				d.metrics.SinkFailed(s.Name())
			}
			continue
		}
		delivered = true
	}
	return delivered
}

// Build resolves the sink configurations into sinks. Configurations are
// expected to have passed config validation; an unknown type is still
// rejected here.
func Build(cfgs []config.SinkConfig, proxyURL string, logger zerolog.Logger) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfgs))
	for i, c := range cfgs {
		switch c.Type {
		case "telegram":
			sinks = append(sinks, NewTelegramNotifier(c.BotToken, c.ChatID, proxyURL, logger))
		case "wecom":
			sinks = append(sinks, NewWeComNotifier(c.WebhookURL, proxyURL, logger))
		case "log":
			sinks = append(sinks, NewLogSink(logger))
		default:
			return nil, fmt.Errorf("%w: notifiers[%d]: unknown type %q", config.ErrInvalid, i, c.Type)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, NewLogSink(logger))
	}
	return sinks, nil
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func retry(ctx context.Context, maxElapsed time.Duration, op backoff.Operation, notify backoff.Notify) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

// classify marks client errors other than rate limiting as permanent.
func classify(status int, err error) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return err
	}
	return backoff.Permanent(err)
}
