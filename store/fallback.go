package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/wikigate"
)

// FallbackStore fronts a durable backend with an in-memory safety net. A
// write that fails on the durable side lands in memory instead, so a login
// never fails solely because Redis or Mongo is unreachable. Reads consult
// the durable backend first and the memory store second.
//
// Sessions written during an outage live only in this process; that is the
// accepted degradation, not silent data loss, because every fallback is
// logged.
type FallbackStore struct {
	durable wikigate.SessionStore
	memory  wikigate.SessionStore
}

// NewFallbackStore wraps durable with an in-memory fallback.
func NewFallbackStore(durable, memory wikigate.SessionStore) *FallbackStore {
	return &FallbackStore{durable: durable, memory: memory}
}

// Put implements wikigate.SessionStore.
func (f *FallbackStore) Put(ctx context.Context, session *wikigate.Session, ttl time.Duration) error {
	if err := f.durable.Put(ctx, session, ttl); err != nil {
		log.Warn().Err(err).Msg("durable store write failed, using memory fallback")
		return f.memory.Put(ctx, session, ttl)
	}
	return nil
}

// Get implements wikigate.SessionStore.
func (f *FallbackStore) Get(ctx context.Context, sessionID string) (*wikigate.Session, error) {
	session, err := f.durable.Get(ctx, sessionID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, wikigate.ErrSessionNotFound) {
		log.Warn().Err(err).Msg("durable store read failed, trying memory fallback")
	}
	return f.memory.Get(ctx, sessionID)
}

// Delete implements wikigate.SessionStore. Both sides are attempted; the
// removal is idempotent so a missing record on either is fine.
func (f *FallbackStore) Delete(ctx context.Context, sessionID string) error {
	if err := f.durable.Delete(ctx, sessionID); err != nil {
		log.Warn().Err(err).Msg("durable store delete failed")
	}
	return f.memory.Delete(ctx, sessionID)
}

// FindByRequestToken implements wikigate.SessionStore.
func (f *FallbackStore) FindByRequestToken(ctx context.Context, tokenKey string) (*wikigate.Session, error) {
	session, err := f.durable.FindByRequestToken(ctx, tokenKey)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, wikigate.ErrSessionNotFound) {
		log.Warn().Err(err).Msg("durable store lookup failed, trying memory fallback")
	}
	return f.memory.FindByRequestToken(ctx, tokenKey)
}

// SetTokenMapping implements wikigate.SessionStore.
func (f *FallbackStore) SetTokenMapping(ctx context.Context, tokenKey, sessionID string, ttl time.Duration) error {
	if err := f.durable.SetTokenMapping(ctx, tokenKey, sessionID, ttl); err != nil {
		log.Warn().Err(err).Msg("durable store mapping write failed, using memory fallback")
		return f.memory.SetTokenMapping(ctx, tokenKey, sessionID, ttl)
	}
	return nil
}
