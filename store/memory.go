package store

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/wikigate"
)

// MemoryStore implements wikigate.SessionStore on ttlcache. It is the
// default backend and the fallback behind the durable ones.
type MemoryStore struct {
	sessions *ttlcache.Cache[string, *wikigate.Session]
	tokens   *ttlcache.Cache[string, string]
}

// NewMemoryStore creates an in-memory session store with automatic cleanup.
// Expired items are also filtered on read, so lazy expiry holds even before
// the cleanup pass runs.
func NewMemoryStore() *MemoryStore {
	sessions := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *wikigate.Session](),
	)
	tokens := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, string](),
	)

	go sessions.Start()
	go tokens.Start()

	return &MemoryStore{sessions: sessions, tokens: tokens}
}

// Put implements wikigate.SessionStore.
func (m *MemoryStore) Put(_ context.Context, session *wikigate.Session, ttl time.Duration) error {
	m.sessions.Set(session.ID, cloneSession(session), ttl)
	return nil
}

// Get implements wikigate.SessionStore.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*wikigate.Session, error) {
	item := m.sessions.Get(sessionID)
	if item == nil {
		return nil, wikigate.ErrSessionNotFound
	}
	return cloneSession(item.Value()), nil
}

// Delete implements wikigate.SessionStore. Reverse-index entries pointing
// at the session are removed with it.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.sessions.Delete(sessionID)

	var stale []string
	m.tokens.Range(func(item *ttlcache.Item[string, string]) bool {
		if item.Value() == sessionID {
			stale = append(stale, item.Key())
		}
		return true
	})
	for _, key := range stale {
		m.tokens.Delete(key)
	}
	return nil
}

// FindByRequestToken implements wikigate.SessionStore. The reverse index is
// consulted first; a miss falls back to a linear scan, which keeps the
// lookup correct when SetTokenMapping was skipped or its entry went stale.
func (m *MemoryStore) FindByRequestToken(ctx context.Context, tokenKey string) (*wikigate.Session, error) {
	if item := m.tokens.Get(tokenKey); item != nil {
		session, err := m.Get(ctx, item.Value())
		if err == nil && session.RequestToken != nil && session.RequestToken.Key == tokenKey {
			return session, nil
		}
	}

	var found *wikigate.Session
	m.sessions.Range(func(item *ttlcache.Item[string, *wikigate.Session]) bool {
		s := item.Value()
		if s.RequestToken != nil && s.RequestToken.Key == tokenKey {
			found = cloneSession(s)
			return false
		}
		return true
	})
	if found == nil {
		return nil, wikigate.ErrSessionNotFound
	}
	return found, nil
}

// SetTokenMapping implements wikigate.SessionStore.
func (m *MemoryStore) SetTokenMapping(_ context.Context, tokenKey, sessionID string, ttl time.Duration) error {
	m.tokens.Set(tokenKey, sessionID, ttl)
	return nil
}

// Close stops the cleanup goroutines.
func (m *MemoryStore) Close() error {
	m.sessions.Stop()
	m.tokens.Stop()
	return nil
}

// cloneSession keeps cache-held records isolated from caller mutation. The
// nested credential and user values are treated as immutable, so a shallow
// copy is enough.
func cloneSession(s *wikigate.Session) *wikigate.Session {
	c := *s
	return &c
}
