// Package service contains the notification pipeline: WebSub hub client,
// token rotation, event classification, and the deferred-recheck scheduler.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

// ErrHubRequestFailed is returned when the WebSub hub rejects a
// subscribe or unsubscribe request.
var ErrHubRequestFailed = errors.New("hub request failed")

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HubSubscriber manages the subscription for a single topic/callback pair at
// the upstream WebSub hub.
type HubSubscriber interface {
	Subscribe(ctx context.Context, token string) error
	Unsubscribe(ctx context.Context, token string) error
}

// HubClient talks to a PubSubHubbub-compatible hub. The callback URL it
// registers embeds the rotating token as a query parameter, so each token
// rotation is a fresh (subscribe, unsubscribe) pair at the hub.
type HubClient struct {
	client       HTTPClient
	hubURL       string
	topicURL     string
	callbackBase string
}

// NewHubClient creates a HubClient. callbackBase is the public base URL of
// this service; the /webhook path and token are appended per request.
func NewHubClient(client HTTPClient, hubURL, topicURL, callbackBase string) *HubClient {
	if client == nil {
		client = &http.Client{}
	}
	return &HubClient{
		client:       client,
		hubURL:       hubURL,
		topicURL:     topicURL,
		callbackBase: strings.TrimRight(callbackBase, "/"),
	}
}

// Subscribe registers the callback for the topic under the given token.
func (h *HubClient) Subscribe(ctx context.Context, token string) error {
	return h.send(ctx, "subscribe", token)
}

// Unsubscribe removes the callback registered under the given token.
func (h *HubClient) Unsubscribe(ctx context.Context, token string) error {
	return h.send(ctx, "unsubscribe", token)
}

// CallbackURL returns the callback registered at the hub for a token.
func (h *HubClient) CallbackURL(token string) string {
	return h.callbackBase + "/webhook?token=" + url.QueryEscape(token)
}

func (h *HubClient) send(ctx context.Context, mode, token string) error {
	formData := url.Values{}
	formData.Set("hub.mode", mode)
	formData.Set("hub.topic", h.topicURL)
	formData.Set("hub.callback", h.CallbackURL(token))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		h.hubURL,
		strings.NewReader(formData.Encode()),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logger.Log.Info("sending hub request",
		zap.String("mode", mode),
		zap.String("hub_url", h.hubURL),
		zap.String("topic_url", h.topicURL),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", mode, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", mode, err)
	}

	// Hubs answer 202 for verified subscriptions, but any 2xx counts as
	// acceptance.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Log.Info("hub accepted request",
			zap.String("mode", mode),
			zap.Int("status_code", resp.StatusCode),
		)
		return nil
	}

	logger.Log.Warn("hub rejected request",
		zap.String("mode", mode),
		zap.Int("status_code", resp.StatusCode),
		zap.ByteString("response_body", body),
	)
	return fmt.Errorf("%w: %s returned status %d - %s", ErrHubRequestFailed, mode, resp.StatusCode, string(body))
}
