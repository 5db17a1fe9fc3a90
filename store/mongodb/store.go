// Package mongodb implements the session store on MongoDB. A TTL index on
// expires_at handles background expiry; reads still apply the lazy check
// because the TTL monitor only sweeps about once a minute.
package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"go.pilab.hu/wikigate"
)

const backendName = "mongodb"

// SessionsCollection is where session documents live.
const SessionsCollection = "wiki_oauth_sessions"

// Connect dials MongoDB with OpenTelemetry command monitoring enabled.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetMonitor(otelmongo.NewMonitor())
	return mongo.Connect(ctx, opts)
}

// Store implements wikigate.SessionStore using a MongoDB collection. The
// indexed request_token key field doubles as the reverse index, so
// SetTokenMapping has nothing extra to persist.
type Store struct {
	collection *mongo.Collection
}

// sessionDoc is the stored shape: the session plus the expiry stamp the TTL
// index and the lazy read-side check share.
type sessionDoc struct {
	ID        string            `bson:"_id"`
	Session   *wikigate.Session `bson:"session"`
	ExpiresAt time.Time         `bson:"expires_at"`
}

// New creates the store and ensures its indexes.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	st := &Store{collection: db.Collection(SessionsCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "session.request_token.key", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	if _, err := st.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("issue creating session collection indexes (may already exist)")
	}

	return st, nil
}

// Put implements wikigate.SessionStore.
func (s *Store) Put(ctx context.Context, session *wikigate.Session, ttl time.Duration) error {
	doc := sessionDoc{
		ID:        session.ID,
		Session:   session,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, doc, opts); err != nil {
		return &wikigate.StorageError{Backend: backendName, Op: "put", Err: err}
	}
	return nil
}

// Get implements wikigate.SessionStore.
func (s *Store) Get(ctx context.Context, sessionID string) (*wikigate.Session, error) {
	return s.findOne(ctx, bson.M{"_id": sessionID})
}

// Delete implements wikigate.SessionStore.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return &wikigate.StorageError{Backend: backendName, Op: "delete", Err: err}
	}
	return nil
}

// FindByRequestToken implements wikigate.SessionStore.
func (s *Store) FindByRequestToken(ctx context.Context, tokenKey string) (*wikigate.Session, error) {
	return s.findOne(ctx, bson.M{"session.request_token.key": tokenKey})
}

// SetTokenMapping implements wikigate.SessionStore. The reverse index is
// the indexed token field on the session document itself, so this is a
// no-op kept for interface completeness.
func (s *Store) SetTokenMapping(_ context.Context, _, _ string, _ time.Duration) error {
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*wikigate.Session, error) {
	var doc sessionDoc
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wikigate.ErrSessionNotFound
	}
	if err != nil {
		return nil, &wikigate.StorageError{Backend: backendName, Op: "get", Err: err}
	}
	if time.Now().After(doc.ExpiresAt) {
		_, _ = s.collection.DeleteOne(ctx, bson.M{"_id": doc.ID})
		return nil, wikigate.ErrSessionNotFound
	}
	return doc.Session, nil
}
