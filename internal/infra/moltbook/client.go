// Package moltbook implements the social platform client: the claim-status
// precondition query and post submission, on top of the resilient HTTP layer.
package moltbook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Shrish242/moltbook-ai-agent/internal/domain/entity"
	"github.com/Shrish242/moltbook-ai-agent/internal/infra/httpclient"
)

// defaultAdvisoryWait is reported when a rate-limited response carries no
// usable wait time of its own.
const defaultAdvisoryWait = 30 * time.Minute

// Config holds the platform client configuration.
type Config struct {
	// BaseURL is the platform API base, e.g. https://www.moltbook.com/api/v1
	BaseURL string

	// APIKey is the resolved bearer credential.
	APIKey string

	// ReadTimeout bounds each platform call attempt.
	ReadTimeout time.Duration
}

// Client talks to the Moltbook REST API. A token bucket paces calls so a
// retried run never bursts against the platform's limits; the posting
// cooldown itself is owned by the rate gate, not this limiter.
type Client struct {
	http    *httpclient.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a platform client. The limiter allows a short burst and
// then one request every two seconds, well under the platform's tolerance.
func NewClient(http *httpclient.Client, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http:    http,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 4),
		logger:  logger,
	}
}

// authHeaders returns the bearer auth header for every platform call.
func (c *Client) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}
}

// AgentStatus queries GET /agents/status and returns the account status
// string. The caller decides whether the status satisfies the claim
// precondition; this method only surfaces transport and auth failures.
func (c *Client) AgentStatus(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	res := c.http.Do(ctx, http.MethodGet, c.cfg.BaseURL+"/agents/status", c.authHeaders(), nil, c.cfg.ReadTimeout)

	switch res.Kind {
	case httpclient.KindSuccess:
		if success, ok := res.Payload["success"].(bool); ok && !success {
			// A 2xx whose payload says success=false means the platform
			// could not answer, not that the agent is unclaimed.
			return "", &entity.UpstreamError{
				Upstream: "moltbook",
				Kind:     "http_error",
				Status:   res.Status,
				Detail:   "cannot verify claim status: " + payloadDetail(res.Payload),
			}
		}
		status, _ := res.Payload["status"].(string)
		return status, nil
	case httpclient.KindUnauthorized:
		return "", fmt.Errorf("%s: %w", res.Hint, entity.ErrUnauthorized)
	case httpclient.KindRateLimited:
		return "", &entity.UpstreamError{Upstream: "moltbook", Kind: "rate_limited", Status: res.Status, Detail: "status check rate limited"}
	case httpclient.KindHTTPError:
		return "", &entity.UpstreamError{Upstream: "moltbook", Kind: "http_error", Status: res.Status, Detail: payloadDetail(res.Payload)}
	case httpclient.KindTimeout:
		return "", &entity.UpstreamError{Upstream: "moltbook", Kind: "timeout", Detail: res.Hint}
	case httpclient.KindNetworkError:
		return "", &entity.UpstreamError{Upstream: "moltbook", Kind: "network_error", Detail: res.Hint}
	default:
		return "", &entity.UpstreamError{Upstream: "moltbook", Kind: "network_error", Detail: "unclassified result"}
	}
}

// createPostBody is the POST /posts request payload.
type createPostBody struct {
	Submolt string `json:"submolt"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreatePost submits a validated post to POST /posts.
//
// Outcome mapping: Unauthorized and HTTP/timeout/network failures are fatal
// errors; a rate-limited response returns entity.RateLimitError with the
// advisory wait so the caller stops without mutating counters; a 2xx whose
// payload carries success=false is an in-band platform failure.
func (c *Client) CreatePost(ctx context.Context, submolt string, post *entity.GeneratedPost) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body := createPostBody{Submolt: submolt, Title: post.Title, Content: post.Content}
	res := c.http.Do(ctx, http.MethodPost, c.cfg.BaseURL+"/posts", c.authHeaders(), body, c.cfg.ReadTimeout)

	switch res.Kind {
	case httpclient.KindSuccess:
		if success, ok := res.Payload["success"].(bool); ok && !success {
			return &entity.UpstreamError{Upstream: "moltbook", Kind: "http_error", Status: res.Status, Detail: payloadDetail(res.Payload)}
		}
		c.logger.Info("post accepted by platform",
			slog.String("submolt", submolt),
			slog.String("title", post.Title))
		return nil
	case httpclient.KindUnauthorized:
		return fmt.Errorf("%s: %w", res.Hint, entity.ErrUnauthorized)
	case httpclient.KindRateLimited:
		advisory := res.RetryAfter
		if advisory <= 0 {
			advisory = defaultAdvisoryWait
		}
		return &entity.RateLimitError{Advisory: advisory}
	case httpclient.KindHTTPError:
		return &entity.UpstreamError{Upstream: "moltbook", Kind: "http_error", Status: res.Status, Detail: payloadDetail(res.Payload)}
	case httpclient.KindTimeout:
		return &entity.UpstreamError{Upstream: "moltbook", Kind: "timeout", Detail: res.Hint}
	case httpclient.KindNetworkError:
		return &entity.UpstreamError{Upstream: "moltbook", Kind: "network_error", Detail: res.Hint}
	default:
		return &entity.UpstreamError{Upstream: "moltbook", Kind: "network_error", Detail: "unclassified result"}
	}
}

// payloadDetail extracts a readable error description from a platform
// payload, preferring the "error" field, then "message", then "raw".
func payloadDetail(payload map[string]interface{}) string {
	for _, key := range []string{"error", "message", "raw"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return "unknown platform error"
}
