// Package handler provides HTTP request handlers for the application.
package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ytnotify/youtube-discord-notifier/internal/metrics"
	"github.com/ytnotify/youtube-discord-notifier/internal/parser"
	"github.com/ytnotify/youtube-discord-notifier/internal/service"
	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

// NotificationProcessor runs the classification pipeline for a parsed push.
type NotificationProcessor interface {
	HandleNotification(ctx context.Context, n *parser.Notification) (service.Outcome, error)
}

// TokenSource exposes the currently valid callback token.
type TokenSource interface {
	Current() string
}

// WebhookHandler handles WebSub hub traffic on /webhook: the GET verification
// handshake and POST notification deliveries.
type WebhookHandler struct {
	processor NotificationProcessor
	tokens    TokenSource
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(processor NotificationProcessor, tokens TokenSource) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		tokens:    tokens,
	}
}

// HandleVerification answers the hub's GET handshake by echoing hub.challenge.
func (h *WebhookHandler) HandleVerification(c *gin.Context) {
	challenge := c.Query("hub.challenge")
	if challenge == "" {
		logger.Log.Warn("verification request missing hub.challenge")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing challenge token"})
		return
	}

	logger.Log.Info("hub verification request",
		zap.String("hub.mode", c.Query("hub.mode")),
		zap.String("hub.topic", c.Query("hub.topic")),
	)
	c.String(http.StatusOK, challenge)
}

// HandleNotification processes a POST push from the hub.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	deliveryID := uuid.New().String()

	if !h.authenticate(c.Query("token")) {
		logger.Log.Warn("invalid callback token presented",
			zap.String("delivery_id", deliveryID),
			zap.String("remote_addr", c.ClientIP()),
		)
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Log.Error("failed to read request body",
			zap.String("delivery_id", deliveryID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	logger.Log.Debug("incoming webhook payload",
		zap.String("delivery_id", deliveryID),
		zap.ByteString("body", body),
	)

	notification, err := parser.ParseFeed(body)
	if err != nil {
		if errors.Is(err, parser.ErrMissingVideoID) {
			logger.Log.Warn("notification missing video ID",
				zap.String("delivery_id", deliveryID),
			)
			c.JSON(http.StatusBadRequest, gin.H{"error": "No video ID found"})
			return
		}
		logger.Log.Warn("invalid webhook payload",
			zap.String("delivery_id", deliveryID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid XML"})
		return
	}

	outcome, err := h.processor.HandleNotification(c.Request.Context(), notification)
	if err != nil {
		if errors.Is(err, service.ErrMetadataUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch video data"})
			return
		}
		logger.Log.Error("notification processing failed",
			zap.String("delivery_id", deliveryID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server Error"})
		return
	}

	metrics.WebhookNotifications.WithLabelValues(string(outcome)).Inc()
	logger.Log.Info("webhook notification processed",
		zap.String("delivery_id", deliveryID),
		zap.String("video_id", notification.VideoID),
		zap.String("outcome", string(outcome)),
	)
	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}

// authenticate compares the presented token to the current one in constant
// time. An empty current token (before the first rotation) rejects everything.
func (h *WebhookHandler) authenticate(presented string) bool {
	current := h.tokens.Current()
	if current == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(current)) == 1
}
