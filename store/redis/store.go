// Package redis implements the session store on a Redis backend, keeping
// expiry in Redis TTLs with a lazy read-side check on top.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/wikigate"
)

const backendName = "redis"

// Store implements wikigate.SessionStore using Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a Redis-backed session store. prefix namespaces the keys so
// several deployments can share an instance.
func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, sessionID)
}

func (s *Store) tokenKey(tokenKey string) string {
	return fmt.Sprintf("%s:reqtoken:%s", s.prefix, tokenKey)
}

// sessionEntry wraps the session with the expiry stamp the lazy read-side
// check needs. Redis enforces the same deadline through the key TTL.
type sessionEntry struct {
	Session   *wikigate.Session `json:"session"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Put implements wikigate.SessionStore.
func (s *Store) Put(ctx context.Context, session *wikigate.Session, ttl time.Duration) error {
	entry := sessionEntry{Session: session, ExpiresAt: time.Now().UTC().Add(ttl)}
	raw, err := json.Marshal(entry)
	if err != nil {
		return &wikigate.StorageError{Backend: backendName, Op: "put", Err: err}
	}
	if err := s.client.Set(ctx, s.sessionKey(session.ID), raw, ttl).Err(); err != nil {
		return &wikigate.StorageError{Backend: backendName, Op: "put", Err: err}
	}
	return nil
}

// Get implements wikigate.SessionStore.
func (s *Store) Get(ctx context.Context, sessionID string) (*wikigate.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, wikigate.ErrSessionNotFound
	}
	if err != nil {
		return nil, &wikigate.StorageError{Backend: backendName, Op: "get", Err: err}
	}

	var entry sessionEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, &wikigate.StorageError{Backend: backendName, Op: "get", Err: err}
	}
	if time.Now().After(entry.ExpiresAt) {
		// Redis should have evicted this already; clean up and report gone.
		_ = s.client.Del(ctx, s.sessionKey(sessionID)).Err()
		return nil, wikigate.ErrSessionNotFound
	}
	return entry.Session, nil
}

// Delete implements wikigate.SessionStore. The reverse-index entry is
// removed with the session when the record is still readable; otherwise it
// is left to expire, after which it resolves to not found anyway.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if session, err := s.Get(ctx, sessionID); err == nil && session.RequestToken != nil {
		_ = s.client.Del(ctx, s.tokenKey(session.RequestToken.Key)).Err()
	}
	if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return &wikigate.StorageError{Backend: backendName, Op: "delete", Err: err}
	}
	return nil
}

// FindByRequestToken implements wikigate.SessionStore.
func (s *Store) FindByRequestToken(ctx context.Context, tokenKey string) (*wikigate.Session, error) {
	sessionID, err := s.client.Get(ctx, s.tokenKey(tokenKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, wikigate.ErrSessionNotFound
	}
	if err != nil {
		return nil, &wikigate.StorageError{Backend: backendName, Op: "find", Err: err}
	}
	return s.Get(ctx, sessionID)
}

// SetTokenMapping implements wikigate.SessionStore.
func (s *Store) SetTokenMapping(ctx context.Context, tokenKey, sessionID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.tokenKey(tokenKey), sessionID, ttl).Err(); err != nil {
		return &wikigate.StorageError{Backend: backendName, Op: "set_mapping", Err: err}
	}
	return nil
}
