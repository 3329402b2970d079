package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shrish242/moltbook-ai-agent/internal/observability/metrics"
	"github.com/Shrish242/moltbook-ai-agent/internal/resilience/circuitbreaker"
	"github.com/Shrish242/moltbook-ai-agent/internal/resilience/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

func testClient(m *metrics.AgentMetrics) *Client {
	return New(Options{
		Upstream:       "moltbook",
		ConnectTimeout: time.Second,
		UserAgent:      "moltbot-test/1.0",
		Retry:          fastRetry(),
		Metrics:        m,
	})
}

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "moltbot-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "status": "claimed"}`))
	}))
	defer srv.Close()

	res := testClient(nil).Do(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)

	assert.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, "claimed", res.Payload["status"])
}

func TestDo_Unauthorized_ZeroRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	res := testClient(nil).Do(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)

	assert.Equal(t, KindUnauthorized, res.Kind)
	assert.Equal(t, int32(1), attempts.Load(), "401 must classify after the first attempt with zero retries")
	assert.Contains(t, res.Hint, "401")
}

func TestDo_RateLimited_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"success": false, "error": "rate_limited", "retry_after_minutes": 0.0001}`))
	}))
	defer srv.Close()

	res := testClient(nil).Do(context.Background(), http.MethodPost, srv.URL, nil, map[string]string{"title": "x"}, time.Second)

	assert.Equal(t, KindRateLimited, res.Kind)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestDo_TransientServerError_RetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	res := testClient(nil).Do(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)

	assert.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDo_NonTransientClientError_NoRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "error": "not_found"}`))
	}))
	defer srv.Close()

	res := testClient(nil).Do(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)

	assert.Equal(t, KindHTTPError, res.Kind)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDo_NonJSONBody_WrapsRawPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("<html>bad gateway page</html>"))
	}))
	defer srv.Close()

	res := testClient(nil).Do(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)

	require.Equal(t, KindHTTPError, res.Kind)
	assert.Equal(t, false, res.Payload["success"])
	assert.Equal(t, "non_json_response", res.Payload["error"])
	assert.Contains(t, res.Payload["raw"], "bad gateway")
}

func TestDo_ReadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	res := testClient(nil).Do(context.Background(), http.MethodGet, srv.URL, nil, nil, 20*time.Millisecond)

	assert.Equal(t, KindTimeout, res.Kind)
	assert.Contains(t, res.Hint, "timed out")
}

func TestDo_ConnectionRefused_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := testClient(nil).Do(context.Background(), http.MethodGet, url, nil, nil, time.Second)

	assert.Equal(t, KindNetworkError, res.Kind)
	assert.NotEmpty(t, res.Hint)
}

func TestDo_RecordsRetryMetrics(t *testing.T) {
	m := metrics.NewAgentMetrics(prometheus.NewRegistry())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res := testClient(m).Do(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)

	assert.Equal(t, KindHTTPError, res.Kind)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRetriesTotal.WithLabelValues("moltbook")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCallsTotal.WithLabelValues("moltbook", "http_error")))
}

func TestExtractRetryAfter_Precedence(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"60"}}}

	t.Run("payload minutes win over header", func(t *testing.T) {
		got := extractRetryAfter(resp, map[string]interface{}{"retry_after_minutes": 30.0})
		assert.Equal(t, 30*time.Minute, got)
	})

	t.Run("payload seconds next", func(t *testing.T) {
		got := extractRetryAfter(resp, map[string]interface{}{"retry_after": 90.0})
		assert.Equal(t, 90*time.Second, got)
	})

	t.Run("header fallback", func(t *testing.T) {
		got := extractRetryAfter(resp, map[string]interface{}{})
		assert.Equal(t, time.Minute, got)
	})

	t.Run("http-date form ignored", func(t *testing.T) {
		dateResp := &http.Response{Header: http.Header{"Retry-After": []string{"Wed, 21 Oct 2026 07:28:00 GMT"}}}
		assert.Equal(t, time.Duration(0), extractRetryAfter(dateResp, map[string]interface{}{}))
	})
}

func TestDo_BreakerHalfOpenRejectionIsNotSuccess(t *testing.T) {
	// Arrange: a breaker that trips after one failure and admits a single
	// probe in half-open, and a server whose second response blocks so the
	// probe is still in flight when another call arrives.
	probeEntered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		close(probeEntered)
		<-release
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	client := New(Options{
		Upstream:       "moltbook",
		ConnectTimeout: time.Second,
		UserAgent:      "moltbot-test/1.0",
		Retry: retry.Config{
			MaxAttempts:    1,
			InitialDelay:   time.Millisecond,
			MaxDelay:       time.Millisecond,
			Multiplier:     1.0,
			JitterFraction: 0,
		},
		Breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "half-open-test",
			MaxRequests:      1,
			Interval:         time.Second,
			Timeout:          50 * time.Millisecond,
			FailureThreshold: 0.5,
			MinRequests:      1,
		}),
	})

	// Trip the breaker, then wait for it to move to half-open.
	tripped := client.Do(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)
	require.Equal(t, KindHTTPError, tripped.Kind)
	time.Sleep(80 * time.Millisecond)

	probeDone := make(chan Result, 1)
	go func() {
		probeDone <- client.Do(context.Background(), http.MethodGet, srv.URL, nil, nil, 5*time.Second)
	}()
	<-probeEntered

	// Act: a call while the half-open probe is still in flight.
	rejected := client.Do(context.Background(), http.MethodGet, srv.URL, nil, nil, time.Second)

	// Assert: the rejection is a network-error result, never a blank success.
	assert.Equal(t, KindNetworkError, rejected.Kind)
	assert.Contains(t, rejected.Hint, "unavailable")
	assert.Nil(t, rejected.Payload)

	close(release)
	probe := <-probeDone
	assert.Equal(t, KindSuccess, probe.Kind)
}

func TestKindString_CoversAllSix(t *testing.T) {
	expected := map[Kind]string{
		KindSuccess:      "success",
		KindUnauthorized: "unauthorized",
		KindRateLimited:  "rate_limited",
		KindHTTPError:    "http_error",
		KindTimeout:      "timeout",
		KindNetworkError: "network_error",
	}
	for kind, name := range expected {
		assert.Equal(t, name, kind.String())
	}
}
