// Package discord delivers notification messages to a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ytnotify/youtube-discord-notifier/internal/metrics"
	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

const (
	defaultMaxAttempts = 3
	retryDelay         = 2 * time.Second
	defaultRetryAfter  = 2000 // milliseconds, when a 429 body is unparseable
)

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier posts messages to a Discord-compatible webhook with bounded,
// rate-limit-aware retries.
type Notifier struct {
	client      HTTPClient
	webhookURL  string
	maxAttempts int
	sleep       func(time.Duration)
}

// NewNotifier creates a Notifier for the given webhook URL.
func NewNotifier(client HTTPClient, webhookURL string) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Notifier{
		client:      client,
		webhookURL:  webhookURL,
		maxAttempts: defaultMaxAttempts,
		sleep:       time.Sleep,
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

type rateLimitBody struct {
	RetryAfter float64 `json:"retry_after"` // milliseconds
}

// Send delivers content to the webhook. It retries up to the attempt budget:
// 429 responses sleep for the advertised retry_after, any other non-204
// response sleeps a fixed short interval. Returns false once attempts are
// exhausted; callers must not record the message as delivered in that case.
func (n *Notifier) Send(ctx context.Context, content string) bool {
	payload, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		logger.Log.Error("failed to marshal Discord payload", zap.Error(err))
		return false
	}

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		status, body, err := n.post(ctx, payload)
		if err != nil {
			logger.Log.Warn("Discord request failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			n.sleep(retryDelay)
			continue
		}

		if status == http.StatusNoContent {
			logger.Log.Info("Discord message sent", zap.Int("attempt", attempt))
			metrics.DiscordDeliveries.WithLabelValues("success").Inc()
			return true
		}

		logger.Log.Warn("Discord rejected message",
			zap.Int("status", status),
			zap.Int("attempt", attempt),
			zap.ByteString("body", body),
		)

		if status == http.StatusTooManyRequests {
			n.sleep(retryAfterDelay(body))
			continue
		}

		n.sleep(retryDelay)
	}

	logger.Log.Error("failed to send Discord message after retries",
		zap.Int("attempts", n.maxAttempts),
	)
	metrics.DiscordDeliveries.WithLabelValues("failure").Inc()
	return false
}

func (n *Notifier) post(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, body, nil
}

// retryAfterDelay extracts the retry_after value (milliseconds) from a 429
// response body.
func retryAfterDelay(body []byte) time.Duration {
	parsed := rateLimitBody{RetryAfter: defaultRetryAfter}
	if err := json.Unmarshal(body, &parsed); err != nil {
		parsed.RetryAfter = defaultRetryAfter
	}
	if parsed.RetryAfter <= 0 {
		parsed.RetryAfter = defaultRetryAfter
	}
	return time.Duration(parsed.RetryAfter) * time.Millisecond
}
