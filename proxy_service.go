package wikigate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// ProxyService forwards arbitrary MediaWiki API actions signed with the
// session's access token. Responses pass through uninterpreted.
type ProxyService struct {
	requester  *Requester
	store      SessionStore
	apiURL     string
	sessionTTL time.Duration
}

// NewProxyService wires the gateway's pass-through surface.
func NewProxyService(requester *Requester, store SessionStore, apiURL string, sessionTTL time.Duration) *ProxyService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &ProxyService{
		requester:  requester,
		store:      store,
		apiURL:     apiURL,
		sessionTTL: sessionTTL,
	}
}

// Call validates the session, merges {action, format:json} under the caller
// params and POSTs the signed request. Caller params win on key collision,
// matching the API's own convention of letting explicit params override.
// The session's sliding expiry is refreshed on success.
func (p *ProxyService) Call(ctx context.Context, sessionID, action string, params map[string]string) (json.RawMessage, error) {
	session, err := p.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated || session.AccessToken == nil || session.User == nil {
		return nil, ErrSessionNotAuthenticated
	}

	form := url.Values{}
	form.Set("action", action)
	form.Set("format", "json")
	for k, v := range params {
		form.Set(k, v)
	}

	log.Debug().
		Str("action", action).
		Str("user", session.User.Name).
		Int("param_count", len(params)).
		Msg("proxying api call")

	raw, err := p.requester.Do(ctx, http.MethodPost, p.apiURL, session.AccessToken, form)
	if err != nil {
		return nil, err
	}

	session.LastActivity = time.Now().UTC()
	if err := p.store.Put(ctx, session, p.sessionTTL); err != nil {
		log.Warn().Err(err).Msg("session activity not persisted")
	}
	return json.RawMessage(raw), nil
}
