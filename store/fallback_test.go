package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/wikigate"
)

// brokenStore fails every operation the way an unreachable backend would.
type brokenStore struct{}

func (brokenStore) storageErr(op string) error {
	return &wikigate.StorageError{Backend: "test", Op: op, Err: context.DeadlineExceeded}
}

func (b brokenStore) Put(context.Context, *wikigate.Session, time.Duration) error {
	return b.storageErr("put")
}

func (b brokenStore) Get(context.Context, string) (*wikigate.Session, error) {
	return nil, b.storageErr("get")
}

func (b brokenStore) Delete(context.Context, string) error {
	return b.storageErr("delete")
}

func (b brokenStore) FindByRequestToken(context.Context, string) (*wikigate.Session, error) {
	return nil, b.storageErr("find")
}

func (b brokenStore) SetTokenMapping(context.Context, string, string, time.Duration) error {
	return b.storageErr("mapping")
}

func TestFallbackStoreWritesLandInMemoryOnOutage(t *testing.T) {
	memory := NewMemoryStore()
	defer memory.Close()
	f := NewFallbackStore(brokenStore{}, memory)
	ctx := context.Background()

	session := newTestSession("s1", "tok1")
	require.NoError(t, f.Put(ctx, session, time.Minute))
	require.NoError(t, f.SetTokenMapping(ctx, "tok1", "s1", time.Minute))

	got, err := f.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	found, err := f.FindByRequestToken(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, "s1", found.ID)
}

func TestFallbackStoreDeleteSurvivesDurableFailure(t *testing.T) {
	memory := NewMemoryStore()
	defer memory.Close()
	f := NewFallbackStore(brokenStore{}, memory)
	ctx := context.Background()

	require.NoError(t, f.Put(ctx, newTestSession("s1", "tok1"), time.Minute))
	require.NoError(t, f.Delete(ctx, "s1"))

	_, err := f.Get(ctx, "s1")
	assert.ErrorIs(t, err, wikigate.ErrSessionNotFound)
}

func TestFallbackStorePrefersDurable(t *testing.T) {
	durable := NewMemoryStore()
	defer durable.Close()
	memory := NewMemoryStore()
	defer memory.Close()
	f := NewFallbackStore(durable, memory)
	ctx := context.Background()

	require.NoError(t, f.Put(ctx, newTestSession("s1", "tok1"), time.Minute))

	// A healthy durable backend takes the write; memory stays empty.
	_, err := durable.Get(ctx, "s1")
	assert.NoError(t, err)
	_, err = memory.Get(ctx, "s1")
	assert.ErrorIs(t, err, wikigate.ErrSessionNotFound)

	got, err := f.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
}

func TestFallbackStoreReadsMemoryWhenDurableMisses(t *testing.T) {
	durable := NewMemoryStore()
	defer durable.Close()
	memory := NewMemoryStore()
	defer memory.Close()
	f := NewFallbackStore(durable, memory)
	ctx := context.Background()

	// Simulates a session written during an earlier outage.
	require.NoError(t, memory.Put(ctx, newTestSession("s1", "tok1"), time.Minute))

	got, err := f.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
}
