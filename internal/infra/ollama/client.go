// Package ollama implements the language-model client against the local
// Ollama chat endpoint. Model inference is slow, so this upstream carries a
// much longer read budget than platform calls.
package ollama

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Shrish242/moltbook-ai-agent/internal/domain/entity"
	"github.com/Shrish242/moltbook-ai-agent/internal/infra/httpclient"
)

// Config holds the model client configuration.
type Config struct {
	// ChatURL is the Ollama chat endpoint, e.g. http://127.0.0.1:11434/api/chat
	ChatURL string

	// Model is the model identifier, e.g. "qwen3:8b"
	Model string

	// ReadTimeout bounds each inference attempt.
	ReadTimeout time.Duration
}

// Client sends chat requests to Ollama through the resilient HTTP layer.
type Client struct {
	http   *httpclient.Client
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a model client.
func NewClient(http *httpclient.Client, cfg Config, logger *slog.Logger) *Client {
	return &Client{http: http, cfg: cfg, logger: logger}
}

// chatRequest is the Ollama /api/chat request payload.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat sends a single-user-message prompt and returns the model's trimmed
// reply text. Transient failures were already retried by the resilient
// layer; anything surfacing here is fatal for the current attempt.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	body := chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}

	start := time.Now()
	res := c.http.Do(ctx, http.MethodPost, c.cfg.ChatURL, nil, body, c.cfg.ReadTimeout)

	switch res.Kind {
	case httpclient.KindSuccess:
		reply := extractReply(res.Payload)
		c.logger.Info("model reply received",
			slog.String("model", c.cfg.Model),
			slog.Int("reply_bytes", len(reply)),
			slog.Duration("duration", time.Since(start)))
		return reply, nil
	case httpclient.KindUnauthorized:
		return "", &entity.UpstreamError{Upstream: "ollama", Kind: "http_error", Status: res.Status, Detail: res.Hint}
	case httpclient.KindRateLimited, httpclient.KindHTTPError:
		return "", &entity.UpstreamError{Upstream: "ollama", Kind: "http_error", Status: res.Status, Detail: payloadDetail(res.Payload)}
	case httpclient.KindTimeout:
		return "", &entity.UpstreamError{Upstream: "ollama", Kind: "timeout", Detail: "ollama timeout (model too slow)"}
	case httpclient.KindNetworkError:
		return "", &entity.UpstreamError{Upstream: "ollama", Kind: "network_error", Detail: res.Hint}
	default:
		return "", &entity.UpstreamError{Upstream: "ollama", Kind: "network_error", Detail: "unclassified result"}
	}
}

// extractReply pulls message.content out of the chat response payload.
func extractReply(payload map[string]interface{}) string {
	message, ok := payload["message"].(map[string]interface{})
	if !ok {
		return ""
	}
	content, _ := message["content"].(string)
	return strings.TrimSpace(content)
}

// payloadDetail extracts a readable error description from an Ollama error
// payload.
func payloadDetail(payload map[string]interface{}) string {
	for _, key := range []string{"error", "raw"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return "unknown model service error"
}
