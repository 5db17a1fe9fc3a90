package wikigate

import (
	"context"
	"time"
)

// SessionStore owns session records and the request-token reverse index.
// Implementations stamp every write with an expiry computed from the given
// TTL and apply lazy expiry on reads: a record past its deadline is removed
// and reported as ErrSessionNotFound, never returned.
//
// Stores must tolerate concurrent calls for different session ids.
// Same-key races are last-write-wins; see DESIGN.md.
type SessionStore interface {
	// Put stores or overwrites a session. Overwriting restarts the TTL,
	// which is what gives authenticated sessions their sliding expiry.
	Put(ctx context.Context, session *Session, ttl time.Duration) error

	// Get returns the live session or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session and any reverse-index entry pointing at it.
	// Deleting an unknown id is not an error.
	Delete(ctx context.Context, sessionID string) error

	// FindByRequestToken resolves a provider request-token key to the
	// pending session, with the same lazy expiry as Get. The callback step
	// only carries the provider token, hence the reverse lookup.
	FindByRequestToken(ctx context.Context, tokenKey string) (*Session, error)

	// SetTokenMapping registers the reverse-index entry for a request
	// token. It is best effort: a failure must not abort the login flow,
	// since stores may fall back to scanning.
	SetTokenMapping(ctx context.Context, tokenKey, sessionID string, ttl time.Duration) error
}
