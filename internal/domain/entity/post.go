// Package entity defines the core domain types and error taxonomy for the
// posting agent: the generated post payload, the persisted posting state,
// and the errors that cross component boundaries.
package entity

import "time"

// Post length bounds, in displayable characters (runes). The maxima and the
// content minimum are enforced by the content generator; MinTitleRunes only
// documents the prompt's guidance and a shorter literal title from the model
// is kept as-is.
const (
	MinTitleRunes   = 3
	MaxTitleRunes   = 80
	MinContentRunes = 20
	MaxContentRunes = 1200
)

// GeneratedPost is a sanitized, bounded post payload produced by the content
// generator and consumed exactly once by the publisher. It is discarded
// after submission regardless of outcome.
type GeneratedPost struct {
	Title   string
	Content string
}

// PostingState is the single persisted record tracking posting activity.
// It survives restarts and is overwritten in place, never deleted.
//
// LastPostAt holds an ISO-8601 timestamp or nil; it is kept as a string so a
// corrupt value can be tolerated (cleared) by the rate gate instead of
// failing the whole record on load.
type PostingState struct {
	DateUTC    string  `json:"date_utc"`
	PostsToday int     `json:"posts_today"`
	LastPostAt *string `json:"last_post_at"`
}

// NewPostingState returns a fresh state for the UTC calendar day of now.
func NewPostingState(now time.Time) *PostingState {
	return &PostingState{
		DateUTC:    CalendarDateUTC(now),
		PostsToday: 0,
		LastPostAt: nil,
	}
}

// CalendarDateUTC formats the UTC calendar day of t as YYYY-MM-DD, the
// format used for PostingState.DateUTC.
func CalendarDateUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
