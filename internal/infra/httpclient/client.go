// Package httpclient implements the resilient HTTP access layer shared by
// both upstreams (the social platform and the language-model service).
//
// Every outbound call goes through bounded retry with exponential backoff,
// a per-upstream circuit breaker, and explicit connect/read timeouts, and is
// classified into a uniform Result that callers must handle exhaustively.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Shrish242/moltbook-ai-agent/internal/observability/metrics"
	"github.com/Shrish242/moltbook-ai-agent/internal/resilience/circuitbreaker"
	"github.com/Shrish242/moltbook-ai-agent/internal/resilience/retry"
)

const (
	// maxRawSnippet bounds the raw-text fallback payload for non-JSON bodies.
	maxRawSnippet = 400

	// maxBodyBytes bounds how much of any response body is read.
	maxBodyBytes = 1 << 20
)

// Options configures a resilient Client for one upstream.
type Options struct {
	// Upstream names the upstream for logs and metrics ("moltbook", "ollama").
	Upstream string

	// ConnectTimeout bounds the dial and TLS handshake phases.
	ConnectTimeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string

	// Retry is the backoff policy for transient failures.
	Retry retry.Config

	// Breaker is the circuit breaker for this upstream. Optional.
	Breaker *circuitbreaker.CircuitBreaker

	// Metrics records call outcomes and retry volume. Optional.
	Metrics *metrics.AgentMetrics
}

// Client is a resilient HTTP client bound to one upstream.
type Client struct {
	upstream  string
	http      *http.Client
	userAgent string
	retryCfg  retry.Config
	breaker   *circuitbreaker.CircuitBreaker
	metrics   *metrics.AgentMetrics
}

// New creates a Client with a transport enforcing the connect timeout and a
// small idle pool, matching the two-upstream single-run usage pattern.
func New(opts Options) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
	}

	return &Client{
		upstream:  opts.Upstream,
		http:      &http.Client{Transport: transport},
		userAgent: opts.UserAgent,
		retryCfg:  opts.Retry,
		breaker:   opts.Breaker,
		metrics:   opts.Metrics,
	}
}

// Do performs one logical upstream call: marshal, send, retry transient
// failures, and classify the settled outcome. The read timeout bounds each
// individual attempt; retries within the call get a fresh budget.
//
// A nil body sends no payload; any other body is JSON-encoded.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body interface{}, readTimeout time.Duration) Result {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Result{Kind: KindNetworkError, Hint: fmt.Sprintf("encode request body: %v", err)}
		}
		payload = encoded
	}

	var res Result
	attempts := 0

	retryErr := retry.WithBackoff(ctx, c.retryCfg, func() error {
		attempts++
		if attempts > 1 && c.metrics != nil {
			c.metrics.RecordUpstreamRetry(c.upstream)
		}

		run := func() (interface{}, error) {
			r := c.attempt(ctx, method, url, headers, payload, readTimeout)
			return r, transientErr(r)
		}

		if c.breaker == nil {
			out, err := run()
			res = out.(Result)
			return err
		}

		out, err := c.breaker.Execute(run)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Open state and half-open rejection both mean the breaker
			// refused the call without an HTTP exchange, so no Result was
			// produced. Not retryable: hammering a protecting breaker
			// defeats its purpose.
			res = Result{
				Kind: KindNetworkError,
				Hint: fmt.Sprintf("%s unavailable: %v", c.upstream, err),
			}
			return fmt.Errorf("%s unavailable: %w", c.upstream, err)
		}
		if out != nil {
			res = out.(Result)
		}
		return err
	})

	if retryErr != nil {
		slog.Debug("upstream call settled after retries",
			slog.String("upstream", c.upstream),
			slog.String("result", res.Kind.String()),
			slog.Int("attempts", attempts))
	}

	if c.metrics != nil {
		c.metrics.RecordUpstreamCall(c.upstream, res.Kind.String())
	}

	return res
}

// attempt performs a single HTTP exchange and classifies its raw outcome.
func (c *Client) attempt(ctx context.Context, method, url string, headers map[string]string, payload []byte, readTimeout time.Duration) Result {
	attemptCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, bodyReader)
	if err != nil {
		return Result{Kind: KindNetworkError, Hint: fmt.Sprintf("create request: %v", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Result{Kind: KindTimeout, Hint: fmt.Sprintf("%s %s timed out", method, url)}
		}
		return Result{Kind: KindNetworkError, Hint: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return Result{Kind: KindTimeout, Hint: fmt.Sprintf("%s %s timed out reading body", method, url)}
		}
		return Result{Kind: KindNetworkError, Hint: fmt.Sprintf("read response body: %v", err)}
	}

	return classify(resp, raw)
}

// classify maps a completed HTTP response onto the Result taxonomy.
func classify(resp *http.Response, raw []byte) Result {
	status := resp.StatusCode

	switch {
	case status == http.StatusUnauthorized:
		return Result{
			Kind:   KindUnauthorized,
			Status: status,
			Hint:   "invalid API key (401), refresh credentials",
		}
	case status == http.StatusTooManyRequests:
		payload := safeJSON(raw)
		return Result{
			Kind:       KindRateLimited,
			Status:     status,
			Payload:    payload,
			RetryAfter: extractRetryAfter(resp, payload),
		}
	case status >= 400:
		return Result{
			Kind:       KindHTTPError,
			Status:     status,
			Payload:    safeJSON(raw),
			RetryAfter: headerRetryAfter(resp),
		}
	default:
		return Result{
			Kind:    KindSuccess,
			Status:  status,
			Payload: safeJSON(raw),
		}
	}
}

// transientErr returns a retryable error when the result is a transient
// condition (timeout, network failure, or a status in {429,500,502,503,504}),
// nil for every terminal outcome.
func transientErr(r Result) error {
	switch r.Kind {
	case KindTimeout, KindNetworkError:
		return fmt.Errorf("%s: %w", r.Hint, retry.ErrTransient)
	case KindRateLimited:
		return &retry.HTTPError{StatusCode: r.Status, Message: http.StatusText(r.Status), RetryAfter: r.RetryAfter}
	case KindHTTPError:
		if isTransientStatus(r.Status) {
			return &retry.HTTPError{StatusCode: r.Status, Message: http.StatusText(r.Status), RetryAfter: r.RetryAfter}
		}
	}
	return nil
}

// isTransientStatus reports whether the status is in the retryable set.
func isTransientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isTimeout reports whether a transport error was a connect- or read-phase
// timeout. Both phases surface uniformly as KindTimeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// safeJSON parses a response body into a generic payload. A body that is not
// a well-formed JSON object is wrapped as a raw-text payload so callers
// always receive structured data.
func safeJSON(raw []byte) map[string]interface{} {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err == nil && payload != nil {
		return payload
	}

	snippet := string(raw)
	if len(snippet) > maxRawSnippet {
		snippet = snippet[:maxRawSnippet]
	}
	return map[string]interface{}{
		"success": false,
		"error":   "non_json_response",
		"raw":     snippet,
	}
}

// extractRetryAfter derives the advisory wait from a rate-limited response.
// The payload's retry_after_minutes takes precedence, then a numeric
// retry_after (seconds), then the Retry-After header. Zero when absent.
func extractRetryAfter(resp *http.Response, payload map[string]interface{}) time.Duration {
	if minutes, ok := payload["retry_after_minutes"].(float64); ok && minutes > 0 {
		return time.Duration(minutes * float64(time.Minute))
	}
	if seconds, ok := payload["retry_after"].(float64); ok && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return headerRetryAfter(resp)
}

// headerRetryAfter parses the integer-seconds form of the Retry-After
// header. The HTTP-date form falls through to computed backoff.
func headerRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
