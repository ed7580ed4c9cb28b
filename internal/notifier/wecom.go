package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// WeComNotifier posts markdown messages to a WeCom (WeChat Work) group robot
// webhook.
type WeComNotifier struct {
	WebhookURL   string
	Client       *http.Client
	MaxRetryTime time.Duration
	logger       zerolog.Logger
}

// NewWeComNotifier creates a notifier for webhookURL.
func NewWeComNotifier(webhookURL, proxyURL string, logger zerolog.Logger) *WeComNotifier {
	return &WeComNotifier{
		WebhookURL:   webhookURL,
		Client:       newHTTPClient(proxyURL, 10*time.Second),
		MaxRetryTime: 15 * time.Second,
		logger:       logger.With().Str("component", "wecom").Logger(),
	}
}

func (w *WeComNotifier) Name() string { return "wecom" }

// Send posts "### title" followed by text.
func (w *WeComNotifier) Send(ctx context.Context, title, text string) error {
	content := text
	if title != "" {
		content = "### " + title + "\n\n" + text
	}
	body, err := json.Marshal(map[string]interface{}{
		"msgtype":  "markdown",
		"markdown": map[string]string{"content": content},
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return retry(ctx, w.MaxRetryTime, func() error { return w.post(ctx, body) },
		func(err error, wait time.Duration) {
			w.logger.Warn().Err(err).Dur("retry_in", wait).Msg("wecom send failed")
		})
}

func (w *WeComNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classify(resp.StatusCode, fmt.Errorf("wecom webhook: status %d", resp.StatusCode))
	}

	// The webhook answers 200 with an errcode for rejected messages.
	var result struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	if result.ErrCode != 0 {
		return backoff.Permanent(fmt.Errorf("wecom webhook: errcode %d: %s", result.ErrCode, result.ErrMsg))
	}
	return nil
}
