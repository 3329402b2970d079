package entity

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the agent's fatal and non-fatal run outcomes.
// Typed errors below unwrap to these so callers can branch with errors.Is.
var (
	// ErrCredentialMissing indicates no API key could be resolved
	ErrCredentialMissing = errors.New("credential missing")

	// ErrUnauthorized indicates the platform rejected the API key (401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotClaimed indicates the platform account is not in the claimed state
	ErrNotClaimed = errors.New("agent not claimed")

	// ErrRateLimited indicates the platform rate limited the request (429)
	ErrRateLimited = errors.New("rate limited")
)

// CredentialError reports a missing API key with a remediation hint naming
// both resolution locations.
type CredentialError struct {
	FilePath string
	EnvVar   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("missing Moltbook API key: put it in %s or set env var %s", e.FilePath, e.EnvVar)
}

func (e *CredentialError) Unwrap() error { return ErrCredentialMissing }

// NotClaimedError reports the precondition failure with the status the
// platform actually returned. Every non-"claimed" value is treated
// identically, including an absent status.
type NotClaimedError struct {
	Status string
}

func (e *NotClaimedError) Error() string {
	return fmt.Sprintf("agent not claimed yet: status=%q, claim first via claim_url", e.Status)
}

func (e *NotClaimedError) Unwrap() error { return ErrNotClaimed }

// RateLimitError reports a 429 that survived all retries, carrying the
// advisory wait time derived from the platform payload.
type RateLimitError struct {
	Advisory time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("platform rate limited, wait about %s", e.Advisory)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// UpstreamError reports a fatal upstream failure (HTTP error, timeout, or
// network failure) from either the platform or the model service.
type UpstreamError struct {
	Upstream string // "moltbook" or "ollama"
	Kind     string // "http_error", "timeout", "network_error"
	Status   int    // HTTP status for http_error, 0 otherwise
	Detail   string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s (status %d): %s", e.Upstream, e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Upstream, e.Kind, e.Detail)
}
