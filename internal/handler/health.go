package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store  Pinger
	tokens TokenSource
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(store Pinger, tokens TokenSource) *HealthHandler {
	return &HealthHandler{
		store:  store,
		tokens: tokens,
	}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic: the
// database answers and a callback token has been published.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"database": "unhealthy",
			"error":    err.Error(),
			"time":     time.Now(),
		})
		return
	}

	if h.tokens.Current() == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "DOWN",
			"database":     "healthy",
			"subscription": "no active token",
			"time":         time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "UP",
		"database":     "healthy",
		"subscription": "active",
		"time":         time.Now(),
	})
}
