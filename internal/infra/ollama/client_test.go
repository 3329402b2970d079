package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shrish242/moltbook-ai-agent/internal/domain/entity"
	"github.com/Shrish242/moltbook-ai-agent/internal/infra/httpclient"
	"github.com/Shrish242/moltbook-ai-agent/internal/resilience/retry"
)

func newTestClient(t *testing.T, chatURL string, readTimeout time.Duration) *Client {
	t.Helper()
	hc := httpclient.New(httpclient.Options{
		Upstream:       "ollama",
		ConnectTimeout: time.Second,
		UserAgent:      "moltbot-test/1.0",
		Retry: retry.Config{
			MaxAttempts:    2,
			InitialDelay:   time.Millisecond,
			MaxDelay:       5 * time.Millisecond,
			Multiplier:     2.0,
			JitterFraction: 0,
		},
	})
	return NewClient(hc, Config{ChatURL: chatURL, Model: "qwen3:8b", ReadTimeout: readTimeout}, slog.Default())
}

func TestChat_ReturnsTrimmedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "qwen3:8b", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "write one post")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]interface{}{"role": "assistant", "content": "  the reply  \n"},
		})
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv.URL, time.Second).Chat(context.Background(), "write one post")

	require.NoError(t, err)
	assert.Equal(t, "the reply", reply)
}

func TestChat_MissingMessageYieldsEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"done": true})
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv.URL, time.Second).Chat(context.Background(), "p")

	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestChat_HTTPErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": "model not found"})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).Chat(context.Background(), "p")

	var upstreamErr *entity.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "ollama", upstreamErr.Upstream)
	assert.Contains(t, upstreamErr.Detail, "model not found")
}

func TestChat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 20*time.Millisecond).Chat(context.Background(), "p")

	var upstreamErr *entity.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "timeout", upstreamErr.Kind)
	assert.Contains(t, upstreamErr.Detail, "model too slow")
}

func TestChat_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, time.Second).Chat(context.Background(), "p")

	var upstreamErr *entity.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "network_error", upstreamErr.Kind)
}
