// Package metrics defines the Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookNotifications counts processed webhook pushes by classification outcome.
	WebhookNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_notifications_total",
		Help: "Processed webhook notifications by classification outcome.",
	}, []string{"outcome"})

	// DiscordDeliveries counts Discord delivery attempts by final result.
	DiscordDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discord_deliveries_total",
		Help: "Discord webhook deliveries by result.",
	}, []string{"result"})

	// RechecksFired counts executed deferred rechecks.
	RechecksFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rechecks_fired_total",
		Help: "Deferred video rechecks executed.",
	})

	// TokenRotations counts completed callback token rotations.
	TokenRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "token_rotations_total",
		Help: "Completed callback token rotations.",
	})
)
