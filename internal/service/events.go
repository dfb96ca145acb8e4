package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ytnotify/youtube-discord-notifier/internal/parser"
	"github.com/ytnotify/youtube-discord-notifier/internal/youtube"
	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

// Outcome names how a webhook notification was classified and acted on.
// Every push resolves to exactly one outcome, including the deliberate
// no-op cases, so behavior stays auditable.
type Outcome string

const (
	OutcomeNotifiedUpcoming Outcome = "notified_upcoming_stream"
	OutcomeNotifiedNewVideo Outcome = "notified_new_video"
	OutcomeRecheckScheduled Outcome = "recheck_scheduled"
	OutcomeDeliveryFailed   Outcome = "delivery_failed"

	OutcomeIgnoredDeleted        Outcome = "ignored_deleted"
	OutcomeIgnoredStale          Outcome = "ignored_stale"
	OutcomeIgnoredDuplicate      Outcome = "ignored_duplicate"
	OutcomeIgnoredLive           Outcome = "ignored_live_stream"
	OutcomeIgnoredFinishedStream Outcome = "ignored_finished_stream"
	OutcomeIgnoredNotPublic      Outcome = "ignored_not_public"
)

// ErrMetadataUnavailable is returned when live metadata could not be fetched
// for a notification; the hub will typically redeliver, so the condition is
// transient from the pipeline's perspective.
var ErrMetadataUnavailable = errors.New("video metadata unavailable")

const freshnessWindow = 7 * 24 * time.Hour

// EventService drives the webhook ingestion pipeline: gates (freshness,
// dedup), live metadata fetch, classification, and the resulting store,
// scheduler, and Discord actions.
type EventService struct {
	store     VideoStore
	fetcher   VideoFetcher
	sender    MessageSender
	scheduler *RecheckScheduler
	roleID    string
	now       func() time.Time
}

// NewEventService creates an EventService.
func NewEventService(videoStore VideoStore, fetcher VideoFetcher, sender MessageSender, scheduler *RecheckScheduler, roleID string) *EventService {
	return &EventService{
		store:     videoStore,
		fetcher:   fetcher,
		sender:    sender,
		scheduler: scheduler,
		roleID:    roleID,
		now:       time.Now,
	}
}

// HandleNotification processes a parsed feed notification end to end and
// reports the classification outcome. It returns an error only when live
// metadata could not be fetched; every other path resolves to an Outcome.
func (s *EventService) HandleNotification(ctx context.Context, n *parser.Notification) (Outcome, error) {
	if n.IsDeleted {
		logger.Log.Info("deletion tombstone received, ignoring")
		return OutcomeIgnoredDeleted, nil
	}

	// Freshness gate: edits to old entries re-trigger hub delivery; only
	// recently published videos are eligible. A missing published timestamp
	// is treated as fresh.
	if !n.PublishedAt.IsZero() && s.now().Sub(n.PublishedAt) > freshnessWindow {
		logger.Log.Info("entry published outside freshness window, ignoring",
			zap.String("video_id", n.VideoID),
			zap.Time("published_at", n.PublishedAt),
		)
		return OutcomeIgnoredStale, nil
	}

	if s.store.Exists(ctx, n.VideoID) {
		logger.Log.Info("video already known, ignoring",
			zap.String("video_id", n.VideoID),
		)
		return OutcomeIgnoredDuplicate, nil
	}

	meta, err := s.fetcher.Fetch(ctx, n.VideoID)
	if err != nil || meta == nil {
		logger.Log.Error("failed to fetch video metadata",
			zap.String("video_id", n.VideoID),
			zap.Error(err),
		)
		return "", ErrMetadataUnavailable
	}

	return s.classify(ctx, meta), nil
}

// classify maps metadata onto exactly one outcome, evaluated in priority
// order: upcoming livestream, currently live, finished livestream, gated
// future-public, immediately public, everything else ignored.
func (s *EventService) classify(ctx context.Context, meta *youtube.VideoMetadata) Outcome {
	switch {
	case meta.LiveBroadcastContent == "upcoming":
		message := UpcomingStreamMessage(meta.URL, meta.ScheduledStartTime)
		if !s.sender.Send(ctx, message) {
			logger.Log.Error("Discord delivery failed for upcoming stream",
				zap.String("video_id", meta.VideoID),
			)
			return OutcomeDeliveryFailed
		}
		s.markPosted(ctx, meta.VideoID)
		return OutcomeNotifiedUpcoming

	case meta.LiveBroadcastContent == "live":
		return OutcomeIgnoredLive

	case meta.HasLiveDetails:
		// A VOD with liveStreamingDetails and no live/upcoming state is a
		// finished livestream; the stream was already announced when scheduled.
		return OutcomeIgnoredFinishedStream

	case meta.PrivacyStatus == "public" && meta.PublishAt != nil:
		if err := s.store.Upsert(ctx, meta.VideoID, meta.PublishAt, false); err != nil {
			logger.Log.Error("failed to persist gated video", zap.Error(err))
		}
		s.scheduler.Schedule(meta.VideoID, *meta.PublishAt)
		return OutcomeRecheckScheduled

	case meta.PrivacyStatus == "public":
		message := NewVideoMessage(s.roleID, meta.Title, meta.URL)
		if !s.sender.Send(ctx, message) {
			logger.Log.Error("Discord delivery failed for new video",
				zap.String("video_id", meta.VideoID),
			)
			return OutcomeDeliveryFailed
		}
		s.markPosted(ctx, meta.VideoID)
		return OutcomeNotifiedNewVideo

	default:
		logger.Log.Info("video not publicly visible, ignoring",
			zap.String("video_id", meta.VideoID),
			zap.String("privacy_status", meta.PrivacyStatus),
		)
		return OutcomeIgnoredNotPublic
	}
}

func (s *EventService) markPosted(ctx context.Context, videoID string) {
	if err := s.store.Upsert(ctx, videoID, nil, true); err != nil {
		logger.Log.Error("failed to mark video as posted",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
	}
}
