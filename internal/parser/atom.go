// Package parser parses YouTube WebSub Atom feed notifications.
package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"time"
)

// AtomFeed represents a YouTube Atom feed notification. YouTube uses the
// Atom 1.0 format with its own namespace for video fields and the atompub
// tombstones namespace for deletions.
type AtomFeed struct {
	XMLName xml.Name      `xml:"http://www.w3.org/2005/Atom feed"`
	Entry   *AtomEntry    `xml:"entry"`
	Deleted *DeletedEntry `xml:"http://purl.org/atompub/tombstones/1.0 deleted-entry"`
}

// AtomEntry represents a video entry in the Atom feed.
type AtomEntry struct {
	VideoID   string   `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	ChannelID string   `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	Title     string   `xml:"title"`
	Link      AtomLink `xml:"link"`
	Published string   `xml:"published"`
	Updated   string   `xml:"updated"`
}

// AtomLink represents a link element in the Atom feed.
type AtomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// DeletedEntry represents a deleted video notification.
type DeletedEntry struct {
	Ref  string `xml:"ref,attr"`
	When string `xml:"when,attr"`
}

// Notification contains the fields the ingestion path needs from a feed push.
type Notification struct {
	VideoID     string
	ChannelID   string
	Title       string
	VideoURL    string
	PublishedAt time.Time
	IsDeleted   bool
}

// ErrMissingVideoID is returned when a non-tombstone entry carries no video ID.
var ErrMissingVideoID = errors.New("atom entry missing video ID")

// ParseFeed parses a WebSub Atom payload. Tombstone payloads yield a
// Notification with IsDeleted set and no other fields. A missing or
// unparseable published timestamp leaves PublishedAt at the zero value;
// the caller's freshness gate handles that case.
func ParseFeed(rawXML []byte) (*Notification, error) {
	var feed AtomFeed
	if err := xml.Unmarshal(rawXML, &feed); err != nil {
		return nil, fmt.Errorf("unmarshal atom feed: %w", err)
	}

	if feed.Deleted != nil {
		return &Notification{IsDeleted: true}, nil
	}

	if feed.Entry == nil {
		return nil, fmt.Errorf("atom feed missing entry element")
	}

	entry := feed.Entry
	if entry.VideoID == "" {
		return nil, ErrMissingVideoID
	}

	videoURL := entry.Link.Href
	if videoURL == "" {
		videoURL = "https://www.youtube.com/watch?v=" + entry.VideoID
	}

	var publishedAt time.Time
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			publishedAt = t
		}
	}

	return &Notification{
		VideoID:     entry.VideoID,
		ChannelID:   entry.ChannelID,
		Title:       entry.Title,
		VideoURL:    videoURL,
		PublishedAt: publishedAt,
	}, nil
}
