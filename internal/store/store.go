// Package store persists per-video notification state in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

// PendingRecheck is a video whose public release is time-gated and which has
// not been announced yet.
type PendingRecheck struct {
	VideoID   string
	PublishAt time.Time
}

// Store is the durable table of video state, keyed by video ID.
//
// Read methods deliberately degrade on storage failure: they log the error
// and report the video as unknown/unposted, so the pipeline favors a possible
// duplicate notification over silently dropping one.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and parent directory) if needed, applies
// the schema, and returns a ready Store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS videos (
		video_id       TEXT PRIMARY KEY,
		publish_at     TEXT,
		discord_posted INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database file is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Upsert inserts or fully overwrites the row for videoID, last-write-wins.
// publishAt may be nil when the video is not gated.
func (s *Store) Upsert(ctx context.Context, videoID string, publishAt *time.Time, posted bool) error {
	var publishAtStr sql.NullString
	if publishAt != nil {
		publishAtStr = sql.NullString{String: publishAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (video_id, publish_at, discord_posted)
		VALUES (?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			publish_at = excluded.publish_at,
			discord_posted = excluded.discord_posted`,
		videoID, publishAtStr, boolToInt(posted),
	)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", videoID, err)
	}

	logger.Log.Debug("video stored",
		zap.String("video_id", videoID),
		zap.Bool("discord_posted", posted),
	)
	return nil
}

// Exists reports whether videoID is already known. Storage failures are
// logged and reported as "unknown".
func (s *Store) Exists(ctx context.Context, videoID string) bool {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM videos WHERE video_id = ?`, videoID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		logger.Log.Error("failed to check video existence",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// WasPosted reports whether a notification for videoID has already been
// delivered. Absent rows and storage failures both report false.
func (s *Store) WasPosted(ctx context.Context, videoID string) bool {
	var posted int
	err := s.db.QueryRowContext(ctx,
		`SELECT discord_posted FROM videos WHERE video_id = ?`, videoID,
	).Scan(&posted)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		logger.Log.Error("failed to check posted flag",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
		return false
	}
	return posted != 0
}

// PendingRechecks returns all videos with a publish time set that have not
// been announced yet. Storage failures are logged and yield an empty result.
func (s *Store) PendingRechecks(ctx context.Context) []PendingRecheck {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, publish_at FROM videos
		WHERE publish_at IS NOT NULL AND discord_posted = 0`)
	if err != nil {
		logger.Log.Error("failed to fetch pending rechecks", zap.Error(err))
		return nil
	}
	defer rows.Close()

	var pending []PendingRecheck
	for rows.Next() {
		var (
			videoID   string
			publishAt string
		)
		if err := rows.Scan(&videoID, &publishAt); err != nil {
			logger.Log.Error("failed to scan pending recheck", zap.Error(err))
			continue
		}

		t, err := time.Parse(time.RFC3339, publishAt)
		if err != nil {
			logger.Log.Warn("unparseable publish_at in store",
				zap.String("video_id", videoID),
				zap.String("publish_at", publishAt),
			)
			continue
		}

		pending = append(pending, PendingRecheck{VideoID: videoID, PublishAt: t})
	}

	if err := rows.Err(); err != nil {
		logger.Log.Error("failed to iterate pending rechecks", zap.Error(err))
	}

	return pending
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
