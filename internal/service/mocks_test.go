package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ytnotify/youtube-discord-notifier/internal/store"
	"github.com/ytnotify/youtube-discord-notifier/internal/youtube"
)

// Mock HTTP client
type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

// Mock hub subscriber
type mockHub struct {
	mock.Mock
}

func (m *mockHub) Subscribe(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockHub) Unsubscribe(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

// Mock video fetcher
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, videoID string) (*youtube.VideoMetadata, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*youtube.VideoMetadata), args.Error(1)
}

// Mock message sender
type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, content string) bool {
	return m.Called(ctx, content).Bool(0)
}

// fakeStore is an in-memory VideoStore for asserting on state transitions.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string]fakeRow
}

type fakeRow struct {
	publishAt *time.Time
	posted    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]fakeRow)}
}

func (f *fakeStore) Upsert(_ context.Context, videoID string, publishAt *time.Time, posted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[videoID] = fakeRow{publishAt: publishAt, posted: posted}
	return nil
}

func (f *fakeStore) Exists(_ context.Context, videoID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[videoID]
	return ok
}

func (f *fakeStore) WasPosted(_ context.Context, videoID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[videoID].posted
}

func (f *fakeStore) PendingRechecks(_ context.Context) []store.PendingRecheck {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pending []store.PendingRecheck
	for id, row := range f.rows {
		if row.publishAt != nil && !row.posted {
			pending = append(pending, store.PendingRecheck{VideoID: id, PublishAt: *row.publishAt})
		}
	}
	return pending
}

func (f *fakeStore) row(videoID string) (fakeRow, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[videoID]
	return row, ok
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}
