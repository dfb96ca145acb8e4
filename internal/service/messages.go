package service

import (
	"fmt"
	"time"
)

// NewVideoMessage formats the announcement for a newly public video,
// mentioning the configured notification role.
func NewVideoMessage(roleID, title, videoURL string) string {
	return fmt.Sprintf("🎬 <@&%s> New Video: %s!\n🔗 %s", roleID, title, videoURL)
}

// UpcomingStreamMessage formats the announcement for a scheduled livestream.
// The start time renders as a Discord relative timestamp, or a placeholder
// when the API did not report one.
func UpcomingStreamMessage(videoURL string, scheduledStart *time.Time) string {
	when := "Unknown Time"
	if scheduledStart != nil {
		when = fmt.Sprintf("<t:%d:R>", scheduledStart.Unix())
	}
	return fmt.Sprintf("⭕ Livestream Scheduled!\nStarting %s!\n\n🔗 %s", when, videoURL)
}
