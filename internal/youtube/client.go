// Package youtube wraps the YouTube Data API v3 for single-video metadata lookups.
package youtube

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

// VideoMetadata is the authoritative state of a video as reported by the API.
type VideoMetadata struct {
	VideoID              string
	Title                string
	URL                  string
	PrivacyStatus        string // public, private, unlisted
	LiveBroadcastContent string // none, upcoming, live
	ScheduledStartTime   *time.Time
	PublishAt            *time.Time // future public-release time for gated content
	HasLiveDetails       bool       // present on current and finished livestreams
}

// Client wraps the YouTube Data API v3 client.
type Client struct {
	service *youtubeapi.Service
}

// NewClient creates a new YouTube API client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	service, err := youtubeapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{service: service}, nil
}

// Fetch retrieves metadata for a single video. It returns (nil, nil) when the
// API reports no such video; transport errors are returned wrapped and should
// be treated by callers as "try again later", never as permanent absence.
func (c *Client) Fetch(ctx context.Context, videoID string) (*VideoMetadata, error) {
	parts := []string{"snippet", "status", "liveStreamingDetails"}

	response, err := c.service.Videos.List(parts).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", videoID, err)
	}

	if len(response.Items) == 0 {
		logger.Log.Warn("no metadata found for video", zap.String("video_id", videoID))
		return nil, nil
	}

	return metadataFromVideo(response.Items[0], videoID), nil
}

// metadataFromVideo maps an API video resource onto VideoMetadata.
func metadataFromVideo(video *youtubeapi.Video, videoID string) *VideoMetadata {
	meta := &VideoMetadata{
		VideoID: videoID,
		URL:     "https://www.youtube.com/watch?v=" + videoID,
	}

	if video.Snippet != nil {
		meta.Title = video.Snippet.Title
		meta.LiveBroadcastContent = video.Snippet.LiveBroadcastContent
		if meta.LiveBroadcastContent == "" {
			meta.LiveBroadcastContent = "none"
		}
	}

	if video.Status != nil {
		meta.PrivacyStatus = video.Status.PrivacyStatus
		meta.PublishAt = parseAPITime(video.Status.PublishAt)
	}

	if video.LiveStreamingDetails != nil {
		meta.HasLiveDetails = true
		meta.ScheduledStartTime = parseAPITime(video.LiveStreamingDetails.ScheduledStartTime)
	}

	return meta
}

// parseAPITime parses an RFC3339 timestamp from the API, returning nil for
// empty or malformed values.
func parseAPITime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
