package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// newTestNotifier returns a notifier whose sleeps are recorded, not slept.
func newTestNotifier(client HTTPClient) (*Notifier, *[]time.Duration) {
	n := NewNotifier(client, "https://discord.com/api/webhooks/1/abc")
	var slept []time.Duration
	n.sleep = func(d time.Duration) { slept = append(slept, d) }
	return n, &slept
}

func TestNotifier_Send_Success(t *testing.T) {
	t.Parallel()

	client := new(mockHTTPClient)
	n, slept := newTestNotifier(client)

	client.On("Do", mock.MatchedBy(func(r *http.Request) bool {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			return false
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		if err := json.Unmarshal(body, &payload); err != nil {
			return false
		}
		return payload["content"] == "hello"
	})).Return(response(http.StatusNoContent, ""), nil).Once()

	ok := n.Send(context.Background(), "hello")

	assert.True(t, ok)
	assert.Empty(t, *slept)
	client.AssertExpectations(t)
}

func TestNotifier_Send_RateLimitedThenSuccess(t *testing.T) {
	t.Parallel()

	client := new(mockHTTPClient)
	n, slept := newTestNotifier(client)

	client.On("Do", mock.Anything).
		Return(response(http.StatusTooManyRequests, `{"retry_after": 1500}`), nil).Once()
	client.On("Do", mock.Anything).
		Return(response(http.StatusNoContent, ""), nil).Once()

	ok := n.Send(context.Background(), "hello")

	assert.True(t, ok)
	require.Len(t, *slept, 1)
	assert.Equal(t, 1500*time.Millisecond, (*slept)[0])
	client.AssertExpectations(t)
}

func TestNotifier_Send_RateLimitedUnparseableBody(t *testing.T) {
	t.Parallel()

	client := new(mockHTTPClient)
	n, slept := newTestNotifier(client)

	client.On("Do", mock.Anything).
		Return(response(http.StatusTooManyRequests, "not json"), nil).Once()
	client.On("Do", mock.Anything).
		Return(response(http.StatusNoContent, ""), nil).Once()

	ok := n.Send(context.Background(), "hello")

	assert.True(t, ok)
	require.Len(t, *slept, 1)
	assert.Equal(t, 2000*time.Millisecond, (*slept)[0])
	client.AssertExpectations(t)
}

func TestNotifier_Send_ServerErrorRetriesWithFixedDelay(t *testing.T) {
	t.Parallel()

	client := new(mockHTTPClient)
	n, slept := newTestNotifier(client)

	client.On("Do", mock.Anything).
		Return(response(http.StatusInternalServerError, "boom"), nil).Once()
	client.On("Do", mock.Anything).
		Return(response(http.StatusNoContent, ""), nil).Once()

	ok := n.Send(context.Background(), "hello")

	assert.True(t, ok)
	require.Len(t, *slept, 1)
	assert.Equal(t, 2*time.Second, (*slept)[0])
	client.AssertExpectations(t)
}

func TestNotifier_Send_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	client := new(mockHTTPClient)
	n, slept := newTestNotifier(client)

	client.On("Do", mock.Anything).
		Return(response(http.StatusBadRequest, `{"message": "invalid"}`), nil).Times(3)

	ok := n.Send(context.Background(), "hello")

	assert.False(t, ok)
	assert.Len(t, *slept, 3)
	client.AssertExpectations(t)
}

func TestNotifier_Send_TransportErrorRetries(t *testing.T) {
	t.Parallel()

	client := new(mockHTTPClient)
	n, _ := newTestNotifier(client)

	client.On("Do", mock.Anything).
		Return(nil, io.ErrUnexpectedEOF).Times(3)

	ok := n.Send(context.Background(), "hello")

	assert.False(t, ok)
	client.AssertExpectations(t)
}
