package wikigate

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Credentials is an opaque token pair issued by the OAuth provider. Two
// kinds exist: the ephemeral request token handed out before the user
// authorizes, and the long-lived access token issued after. A pair is never
// mutated once issued, only replaced.
type Credentials struct {
	Key    string `json:"key" bson:"key"`
	Secret string `json:"secret" bson:"secret"`
}

// User is the provider identity fetched once per successful handshake. It
// is not refreshed for the life of the session.
type User struct {
	ID     int      `json:"id" bson:"id"`
	Name   string   `json:"name" bson:"name"`
	Groups []string `json:"groups" bson:"groups"`
}

// Session is the unit of state the gateway tracks between the handshake
// steps and across proxied API calls. It starts with only the request token
// populated, gains AccessToken, User and Authenticated=true exactly once at
// completion time, and afterwards only LastActivity moves.
//
// The store is the single source of truth for a session; services hold it
// only long enough to act on it.
type Session struct {
	ID            string       `json:"id" bson:"_id"`
	RequestToken  *Credentials `json:"requestToken,omitempty" bson:"request_token,omitempty"`
	AccessToken   *Credentials `json:"accessToken,omitempty" bson:"access_token,omitempty"`
	IsOutOfBand   bool         `json:"isOutOfBand" bson:"is_out_of_band"`
	User          *User        `json:"user,omitempty" bson:"user,omitempty"`
	Authenticated bool         `json:"authenticated" bson:"authenticated"`
	CreatedAt     time.Time    `json:"createdAt" bson:"created_at"`
	LastActivity  time.Time    `json:"lastActivity" bson:"last_activity"`
}

const sessionIDBytes = 32

// NewSessionID returns a 64 character hex identifier from crypto/rand.
// Session ids double as bearer capabilities, so they must be unguessable.
func NewSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
