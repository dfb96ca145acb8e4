package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ytnotify/youtube-discord-notifier/internal/metrics"
	"github.com/ytnotify/youtube-discord-notifier/internal/store"
	"github.com/ytnotify/youtube-discord-notifier/internal/youtube"
	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

// VideoFetcher retrieves authoritative video metadata. A (nil, nil) result
// means the platform reports no such video.
type VideoFetcher interface {
	Fetch(ctx context.Context, videoID string) (*youtube.VideoMetadata, error)
}

// MessageSender delivers a formatted message, reporting success.
type MessageSender interface {
	Send(ctx context.Context, content string) bool
}

// VideoStore is the persistence surface the pipeline needs.
type VideoStore interface {
	Upsert(ctx context.Context, videoID string, publishAt *time.Time, posted bool) error
	Exists(ctx context.Context, videoID string) bool
	WasPosted(ctx context.Context, videoID string) bool
	PendingRechecks(ctx context.Context) []store.PendingRecheck
}

// RecheckScheduler re-verifies gated videos once their public release time
// arrives. Timers live in a registry keyed by video ID, so a video never has
// more than one outstanding recheck and Stop can cancel them all. Timers are
// in-memory only; Resume rebuilds them from the store after a restart.
type RecheckScheduler struct {
	store         VideoStore
	fetcher       VideoFetcher
	sender        MessageSender
	roleID        string
	retryInterval time.Duration
	now           func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewRecheckScheduler creates a scheduler. retryInterval controls what a
// recheck does when the fetch fails or the video is still gated: zero means
// give up after logging, a positive value re-arms the timer at that interval.
func NewRecheckScheduler(videoStore VideoStore, fetcher VideoFetcher, sender MessageSender, roleID string, retryInterval time.Duration) *RecheckScheduler {
	return &RecheckScheduler{
		store:         videoStore,
		fetcher:       fetcher,
		sender:        sender,
		roleID:        roleID,
		retryInterval: retryInterval,
		now:           time.Now,
		timers:        make(map[string]*time.Timer),
	}
}

// Schedule arranges a recheck of videoID at publishAt. A publish time in the
// past runs the recheck inline. Scheduling again for the same video replaces
// the previous timer.
func (s *RecheckScheduler) Schedule(videoID string, publishAt time.Time) {
	delay := publishAt.Sub(s.now())
	if delay <= 0 {
		logger.Log.Info("publish time already passed, rechecking now",
			zap.String("video_id", videoID),
		)
		s.Recheck(videoID)
		return
	}

	logger.Log.Info("scheduling recheck",
		zap.String("video_id", videoID),
		zap.Time("fire_at", publishAt),
		zap.Duration("delay", delay),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[videoID]; ok {
		old.Stop()
	}
	s.timers[videoID] = time.AfterFunc(delay, func() {
		s.removeTimer(videoID)
		s.Recheck(videoID)
	})
}

// Resume re-arms a recheck for every pending gated video in the store.
// Called once at startup; this is how in-flight gated videos survive a
// restart.
func (s *RecheckScheduler) Resume(ctx context.Context) {
	pending := s.store.PendingRechecks(ctx)
	if len(pending) == 0 {
		logger.Log.Info("no pending rechecks to resume")
		return
	}

	logger.Log.Info("resuming pending rechecks", zap.Int("count", len(pending)))
	for _, p := range pending {
		s.Schedule(p.VideoID, p.PublishAt)
	}
}

// Stop cancels all outstanding timers. Rechecks already running are not
// interrupted; the posted guard makes a late or duplicate firing harmless.
func (s *RecheckScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// PendingCount reports the number of armed timers.
func (s *RecheckScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *RecheckScheduler) removeTimer(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, videoID)
}

// Recheck fetches current metadata for a gated video and announces it if it
// has become publicly available. Idempotent: an already-posted video is a
// no-op regardless of how many timers fire for it.
func (s *RecheckScheduler) Recheck(videoID string) {
	ctx := context.Background()
	metrics.RechecksFired.Inc()
	logger.Log.Info("rechecking video", zap.String("video_id", videoID))

	if s.store.WasPosted(ctx, videoID) {
		logger.Log.Info("video already posted, skipping recheck",
			zap.String("video_id", videoID),
		)
		return
	}

	meta, err := s.fetcher.Fetch(ctx, videoID)
	if err != nil || meta == nil {
		logger.Log.Warn("failed to fetch metadata during recheck",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
		s.maybeRetry(videoID)
		return
	}

	if meta.PrivacyStatus != "public" {
		logger.Log.Info("video still not public",
			zap.String("video_id", videoID),
			zap.String("privacy_status", meta.PrivacyStatus),
		)
		s.maybeRetry(videoID)
		return
	}

	if meta.PublishAt != nil && meta.PublishAt.After(s.now()) {
		logger.Log.Info("video publish time moved, rescheduling",
			zap.String("video_id", videoID),
			zap.Time("publish_at", *meta.PublishAt),
		)
		s.Schedule(videoID, *meta.PublishAt)
		return
	}

	message := NewVideoMessage(s.roleID, meta.Title, meta.URL)
	if !s.sender.Send(ctx, message) {
		logger.Log.Error("Discord notification failed during recheck",
			zap.String("video_id", videoID),
		)
		return
	}

	if err := s.store.Upsert(ctx, videoID, nil, true); err != nil {
		logger.Log.Error("failed to mark video as posted", zap.Error(err))
	}
	logger.Log.Info("notified Discord about released video",
		zap.String("video_id", videoID),
		zap.String("title", meta.Title),
	)
}

// maybeRetry re-arms the recheck when the retry policy allows it.
func (s *RecheckScheduler) maybeRetry(videoID string) {
	if s.retryInterval <= 0 {
		return
	}
	s.Schedule(videoID, s.now().Add(s.retryInterval))
}
