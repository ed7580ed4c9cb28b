package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken     string
	ChatID       string
	APIBase      string
	Client       *http.Client
	MaxRetryTime time.Duration
	logger       zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		BotToken:     botToken,
		ChatID:       chatID,
		APIBase:      telegramAPI,
		Client:       newHTTPClient(proxyURL, 30*time.Second),
		MaxRetryTime: 15 * time.Second,
		logger:       logger.With().Str("component", "telegram").Logger(),
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Send posts title and text as one HTML message, retrying transient
// failures with exponential backoff.
func (t *TelegramNotifier) Send(ctx context.Context, title, text string) error {
	msg := html.EscapeString(text)
	if title != "" {
		msg = "<b>" + html.EscapeString(title) + "</b>\n\n" + msg
	}
	return retry(ctx, t.MaxRetryTime, func() error { return t.sendOnce(ctx, msg) },
		func(err error, wait time.Duration) {
			t.logger.Warn().Err(err).Dur("retry_in", wait).Msg("telegram send failed")
		})
}

// endpoint returns the Bot API URL for method.
func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, url.PathEscape(t.BotToken), method)
}

func (t *TelegramNotifier) sendOnce(ctx context.Context, msg string) error {
	apiURL := t.endpoint("sendMessage")
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       msg,
		"parse_mode": "HTML",
	})
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal payload: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
		return classify(resp.StatusCode, err)
	}
	return nil
}
