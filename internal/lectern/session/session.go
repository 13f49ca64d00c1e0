// Package session provides bounded conversational session storage.
//
// A session holds an ordered list of exchanges capped at a fixed size;
// the oldest exchanges are evicted first. Unknown session ids read as
// empty history rather than an error, so callers may pass ids freely.
package session

import (
	"context"
	"strings"

	"github.com/kart-io/lectern/pkg/utils/id"
)

// Exchange is one completed user/assistant turn pair.
type Exchange struct {
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
}

// Store persists session history. AddExchange is serialized per session
// id; different ids are independent.
type Store interface {
	// Create allocates a new session and returns its id.
	Create(ctx context.Context) (string, error)

	// History returns the session's exchanges in order. Unknown ids
	// yield an empty slice, not an error.
	History(ctx context.Context, sessionID string) ([]Exchange, error)

	// AddExchange appends a completed exchange, evicting the oldest
	// entries beyond the cap.
	AddExchange(ctx context.Context, sessionID, userMsg, assistantMsg string) error

	// Reset removes all history for the session.
	Reset(ctx context.Context, sessionID string) error
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return id.NewWithPrefix("session")
}

// FormatHistory renders exchanges as flat alternating turns for inclusion
// in a model prompt. Returns "" for empty history.
func FormatHistory(exchanges []Exchange) string {
	if len(exchanges) == 0 {
		return ""
	}

	var b strings.Builder
	for i, e := range exchanges {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("User: ")
		b.WriteString(e.UserMessage)
		b.WriteString("\nAssistant: ")
		b.WriteString(e.AssistantMessage)
	}
	return b.String()
}
