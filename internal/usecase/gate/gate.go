// Package gate implements the posting gate: a small state machine over the
// persisted posting state that decides whether a new post attempt is
// currently allowed, enforcing a per-day cap and a minimum inter-post
// cooldown with an implicit daily reset.
package gate

import (
	"fmt"
	"time"

	"github.com/Shrish242/moltbook-ai-agent/internal/domain/entity"
)

// Defaults for the posting gate, overridable via configuration.
const (
	DefaultDailyCap = 3
	DefaultCooldown = 30 * time.Minute
)

// Decision outcome labels, used for metrics and logs.
const (
	DecisionAllowed        = "allowed"
	DecisionDeniedCap      = "denied_cap"
	DecisionDeniedCooldown = "denied_cooldown"
)

// Config holds the gate's two limits.
type Config struct {
	// DailyCap is the maximum number of posts per UTC calendar day.
	DailyCap int

	// Cooldown is the minimum spacing between two successful posts.
	Cooldown time.Duration
}

// DefaultConfig returns the gate defaults: 3 posts per day, 30 minutes
// between posts.
func DefaultConfig() Config {
	return Config{DailyCap: DefaultDailyCap, Cooldown: DefaultCooldown}
}

// Decision is the outcome of one gate evaluation.
type Decision struct {
	Allowed bool

	// Outcome is one of the Decision* labels.
	Outcome string

	// Reason is a human-readable denial reason. Empty when allowed.
	Reason string

	// RetryIn is the remaining cooldown for a cooldown denial, floored to
	// whole seconds and never negative. Zero otherwise.
	RetryIn time.Duration
}

// Evaluate applies the gate's checks in order against state at time now.
//
// The day-rollover reset mutates state even when a later check denies the
// attempt, and a corrupt last-post timestamp is cleared rather than failing
// the attempt. The caller must therefore persist state after every
// evaluation, not only on success.
func Evaluate(state *entity.PostingState, now time.Time, cfg Config) Decision {
	today := entity.CalendarDateUTC(now)
	if state.DateUTC != today {
		state.DateUTC = today
		state.PostsToday = 0
		state.LastPostAt = nil
	}

	if state.PostsToday >= cfg.DailyCap {
		return Decision{
			Outcome: DecisionDeniedCap,
			Reason:  fmt.Sprintf("daily cap reached (%d/day)", cfg.DailyCap),
		}
	}

	if state.LastPostAt != nil {
		last, err := time.Parse(time.RFC3339, *state.LastPostAt)
		if err != nil {
			// Corrupt timestamp: tolerate, don't block the attempt.
			state.LastPostAt = nil
		} else if elapsed := now.Sub(last); elapsed < cfg.Cooldown {
			remain := (cfg.Cooldown - elapsed).Truncate(time.Second)
			if remain < 0 {
				remain = 0
			}
			return Decision{
				Outcome: DecisionDeniedCooldown,
				Reason:  fmt.Sprintf("post cooldown active, wait %ds", int(remain.Seconds())),
				RetryIn: remain,
			}
		}
	}

	return Decision{Allowed: true, Outcome: DecisionAllowed}
}

// RecordSuccess applies the gate's only write path outside the daily reset:
// after a confirmed successful post, increment the day's count and stamp the
// post time. The caller persists the mutated state.
func RecordSuccess(state *entity.PostingState, now time.Time) {
	stamp := now.UTC().Format(time.RFC3339)
	state.PostsToday++
	state.LastPostAt = &stamp
}
