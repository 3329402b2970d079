package httpclient

import "time"

// Kind classifies the outcome of an upstream HTTP call. Every caller must
// switch over all six kinds; there is no implicit default outcome.
type Kind int

const (
	// KindSuccess is a 2xx response with its parsed payload.
	KindSuccess Kind = iota

	// KindUnauthorized is a 401 response. It signals a permanently invalid
	// credential and is never retried.
	KindUnauthorized

	// KindRateLimited is a 429 response that survived all retries, carrying
	// any advisory wait time found in the payload or headers.
	KindRateLimited

	// KindHTTPError is any other >= 400 response after retries were
	// exhausted, with the numeric status and best-effort parsed payload.
	KindHTTPError

	// KindTimeout is a connect-phase or read-phase timeout.
	KindTimeout

	// KindNetworkError is any other transport failure.
	KindNetworkError
)

// String returns the snake_case name of the kind, used as the Prometheus
// result label and in log lines.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindHTTPError:
		return "http_error"
	case KindTimeout:
		return "timeout"
	case KindNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Result is the uniform outcome of one upstream call, produced by the
// resilient client after retries are settled.
type Result struct {
	Kind Kind

	// Status is the final HTTP status code. Zero for transport failures.
	Status int

	// Payload is the parsed response body for Success, RateLimited, and
	// HTTPError. A non-JSON body is wrapped as
	// {"success": false, "error": "non_json_response", "raw": "..."}.
	Payload map[string]interface{}

	// Hint is a human-readable remediation hint (Unauthorized) or cause
	// string (NetworkError, Timeout).
	Hint string

	// RetryAfter is the advisory wait extracted from a rate-limited
	// response. Zero when the upstream supplied none.
	RetryAfter time.Duration
}
