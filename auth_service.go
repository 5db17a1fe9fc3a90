package wikigate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Default session lifetimes. A pending session only needs to survive the
// user's trip to the provider's authorize page; an authenticated session
// slides forward on every touch.
const (
	DefaultPendingTTL = 10 * time.Minute
	DefaultSessionTTL = 24 * time.Hour
)

// AuthServiceConfig configures the handshake flow.
type AuthServiceConfig struct {
	Endpoints Endpoints
	// CallbackURL is the absolute URL of the gateway's /auth/callback
	// route. Ignored when OutOfBand is set.
	CallbackURL string
	// OutOfBand selects the verification-code flow: the provider shows the
	// user a code instead of redirecting the browser. A deployment runs in
	// exactly one mode.
	OutOfBand bool
	// PendingTTL bounds sessions stuck in the initiated state.
	PendingTTL time.Duration
	// SessionTTL is the sliding window for authenticated sessions.
	SessionTTL time.Duration
}

// AuthService drives the three-legged handshake and owns the session
// lifecycle against the store. Sessions move initiated -> authenticated; a
// failure mid-transition surfaces as an error and leaves the stored record
// exactly as it was, so the caller can retry with a fresh verifier.
type AuthService struct {
	requester  *Requester
	store      SessionStore
	endpoints  Endpoints
	callback   string
	outOfBand  bool
	pendingTTL time.Duration
	sessionTTL time.Duration
}

// NewAuthService wires the flow controller to its requester and store.
func NewAuthService(requester *Requester, store SessionStore, cfg AuthServiceConfig) *AuthService {
	pendingTTL := cfg.PendingTTL
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		requester:  requester,
		store:      store,
		endpoints:  cfg.Endpoints,
		callback:   cfg.CallbackURL,
		outOfBand:  cfg.OutOfBand,
		pendingTTL: pendingTTL,
		sessionTTL: sessionTTL,
	}
}

// BeginResult is what a client needs to send the user to the provider.
type BeginResult struct {
	AuthURL     string
	SessionID   string
	IsOutOfBand bool
}

// Begin obtains a request token, stores a pending session and returns the
// authorization URL for the user's browser. The provider must acknowledge
// the callback configuration with oauth_callback_confirmed=true; anything
// else aborts the flow.
func (s *AuthService) Begin(ctx context.Context) (*BeginResult, error) {
	callback := s.callback
	if s.outOfBand {
		callback = "oob"
	}

	vals, err := s.requester.DoForm(ctx, http.MethodPost, s.endpoints.RequestTokenURL, nil,
		url.Values{"oauth_callback": {callback}})
	if err != nil {
		return nil, err
	}
	if vals.Get("oauth_callback_confirmed") != "true" {
		return nil, ErrCallbackNotConfirmed
	}

	requestToken := Credentials{
		Key:    vals.Get("oauth_token"),
		Secret: vals.Get("oauth_token_secret"),
	}
	if requestToken.Key == "" || requestToken.Secret == "" {
		return nil, ErrTokenResponseIncomplete
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	now := time.Now().UTC()
	session := &Session{
		ID:           sessionID,
		RequestToken: &requestToken,
		IsOutOfBand:  s.outOfBand,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.store.Put(ctx, session, s.pendingTTL); err != nil {
		return nil, err
	}
	if err := s.store.SetTokenMapping(ctx, requestToken.Key, sessionID, s.pendingTTL); err != nil {
		// The reverse index is an optimization; stores without it scan.
		log.Warn().Err(err).
			Str("request_token", TokenPreview(requestToken.Key)).
			Msg("request token mapping not stored")
	}

	// The provider wants the consumer key on the authorize URL as well.
	// This is a plain browser navigation target, not a signed request.
	authURL := fmt.Sprintf("%s?oauth_token=%s&oauth_consumer_key=%s",
		s.endpoints.AuthorizeURL,
		url.QueryEscape(requestToken.Key),
		url.QueryEscape(s.requester.ConsumerKey()))

	log.Info().
		Bool("out_of_band", s.outOfBand).
		Str("request_token", TokenPreview(requestToken.Key)).
		Msg("oauth flow started")

	return &BeginResult{AuthURL: authURL, SessionID: sessionID, IsOutOfBand: s.outOfBand}, nil
}

// Complete finishes the handshake for redirect and popup flows. The
// provider's callback carries only its own token, so the pending session is
// located through the reverse index.
func (s *AuthService) Complete(ctx context.Context, requestTokenKey, verifier string) (*Session, error) {
	session, err := s.store.FindByRequestToken(ctx, requestTokenKey)
	if err != nil {
		return nil, err
	}
	if session.IsOutOfBand {
		return nil, ErrWrongCallbackMode
	}
	return s.exchange(ctx, session, verifier)
}

// CompleteWithCode finishes the out-of-band flow with the verification code
// the provider displayed to the user.
func (s *AuthService) CompleteWithCode(ctx context.Context, sessionID, code string) (*Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOutOfBand {
		return nil, ErrWrongCallbackMode
	}
	return s.exchange(ctx, session, strings.TrimSpace(code))
}

// exchange trades the request token plus verifier for an access token,
// fetches the user identity and upgrades the stored session. Any failure
// before the final Put leaves the pending record untouched.
func (s *AuthService) exchange(ctx context.Context, session *Session, verifier string) (*Session, error) {
	if session.RequestToken == nil {
		return nil, ErrSessionNotFound
	}

	vals, err := s.requester.DoForm(ctx, http.MethodPost, s.endpoints.AccessTokenURL, session.RequestToken,
		url.Values{"oauth_verifier": {verifier}})
	if err != nil {
		return nil, err
	}

	accessToken := Credentials{
		Key:    vals.Get("oauth_token"),
		Secret: vals.Get("oauth_token_secret"),
	}
	if accessToken.Key == "" || accessToken.Secret == "" {
		return nil, ErrTokenResponseIncomplete
	}

	user, err := s.fetchUser(ctx, &accessToken)
	if err != nil {
		return nil, err
	}

	upgraded := *session
	upgraded.AccessToken = &accessToken
	upgraded.User = user
	upgraded.Authenticated = true
	upgraded.LastActivity = time.Now().UTC()
	if err := s.store.Put(ctx, &upgraded, s.sessionTTL); err != nil {
		return nil, err
	}

	log.Info().Str("user", user.Name).Msg("oauth handshake completed")
	return &upgraded, nil
}

// Verify reports the stored user for a live authenticated session and
// refreshes its sliding expiry. No provider round-trip happens here.
func (s *AuthService) Verify(ctx context.Context, sessionID string) (*User, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated || session.User == nil {
		return nil, ErrSessionNotAuthenticated
	}

	session.LastActivity = time.Now().UTC()
	if err := s.store.Put(ctx, session, s.sessionTTL); err != nil {
		log.Warn().Err(err).Msg("session activity not persisted")
	}
	return session.User, nil
}

// Logout deletes the session. Unknown ids are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// userinfoResponse is the shape of action=query&meta=userinfo. Only the
// fields the gateway keeps are decoded.
type userinfoResponse struct {
	Query struct {
		UserInfo struct {
			ID     int      `json:"id"`
			Name   string   `json:"name"`
			Groups []string `json:"groups"`
		} `json:"userinfo"`
	} `json:"query"`
}

func (s *AuthService) fetchUser(ctx context.Context, accessToken *Credentials) (*User, error) {
	raw, err := s.requester.Do(ctx, http.MethodGet, s.endpoints.APIURL, accessToken, url.Values{
		"action": {"query"},
		"meta":   {"userinfo"},
		"format": {"json"},
	})
	if err != nil {
		return nil, err
	}

	var parsed userinfoResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding userinfo response: %w", err)
	}
	if parsed.Query.UserInfo.Name == "" {
		return nil, fmt.Errorf("userinfo response missing user identity")
	}

	user := &User{
		ID:     parsed.Query.UserInfo.ID,
		Name:   parsed.Query.UserInfo.Name,
		Groups: parsed.Query.UserInfo.Groups,
	}
	if user.Groups == nil {
		user.Groups = []string{}
	}
	return user, nil
}
