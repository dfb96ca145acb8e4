package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ytnotify/youtube-discord-notifier/internal/metrics"
	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

const tokenLength = 32 // hex characters

// TokenManager owns the rotating webhook callback token. Exactly one token is
// current at any instant; the webhook handler accepts only that value. The
// swap is atomic, so rotation never leaves a window where both the old and
// the new token are valid.
type TokenManager struct {
	hub    HubSubscriber
	period time.Duration

	mu      sync.RWMutex
	current string
	stopped bool
}

// NewTokenManager creates a TokenManager rotating on the given period.
func NewTokenManager(hub HubSubscriber, period time.Duration) *TokenManager {
	return &TokenManager{
		hub:    hub,
		period: period,
	}
}

// Current returns the currently valid token, or "" before the first rotation
// completes. The empty value never authenticates a request.
func (tm *TokenManager) Current() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.current
}

// Run rotates immediately, then on every period tick until ctx is canceled.
// A failed iteration is logged and the loop continues on its cadence.
func (tm *TokenManager) Run(ctx context.Context) {
	tm.rotate(ctx)

	ticker := time.NewTicker(tm.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tm.rotate(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// rotate unsubscribes the previous token, generates and subscribes a fresh
// one, and publishes it as current. Hub failures are best-effort: the new
// token still becomes current so the handler's accepted value stays in sync
// with what the hub was asked to deliver to. A rotation racing Shutdown must
// never publish; a token that made it to the hub in that window is dropped
// again before returning.
func (tm *TokenManager) rotate(ctx context.Context) {
	tm.mu.RLock()
	old, stopped := tm.current, tm.stopped
	tm.mu.RUnlock()
	if stopped {
		return
	}

	if old != "" {
		if err := tm.hub.Unsubscribe(ctx, old); err != nil {
			logger.Log.Warn("failed to unsubscribe previous token", zap.Error(err))
		}
	}

	token, err := generateToken()
	if err != nil {
		logger.Log.Error("failed to generate token, keeping previous", zap.Error(err))
		return
	}

	if err := tm.hub.Subscribe(ctx, token); err != nil {
		logger.Log.Warn("hub subscription for new token failed", zap.Error(err))
	}

	tm.mu.Lock()
	if tm.stopped {
		tm.mu.Unlock()
		if err := tm.hub.Unsubscribe(ctx, token); err != nil {
			logger.Log.Warn("failed to unsubscribe token subscribed during shutdown", zap.Error(err))
		}
		return
	}
	tm.current = token
	tm.mu.Unlock()

	metrics.TokenRotations.Inc()
	logger.Log.Info("callback token rotated")
}

// Shutdown unsubscribes the current token, bounded by ctx. Used on process
// termination so the hub stops pushing to a dead callback. Rotations after
// Shutdown are no-ops.
func (tm *TokenManager) Shutdown(ctx context.Context) {
	tm.mu.Lock()
	token := tm.current
	tm.current = ""
	tm.stopped = true
	tm.mu.Unlock()

	if token == "" {
		return
	}

	if err := tm.hub.Unsubscribe(ctx, token); err != nil {
		logger.Log.Warn("failed to unsubscribe token on shutdown", zap.Error(err))
		return
	}
	logger.Log.Info("unsubscribed callback token on shutdown")
}

// generateToken derives a fresh token from the secure random source.
func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:tokenLength], nil
}
