package wikigate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gomodule/oauth1/oauth"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every provider call. The upstream API enforces no
// timeout of its own, so an unbounded client would hang a request slot for
// as long as the remote cares to stall.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent identifies the gateway to the provider. Wikimedia asks
// API clients to send a descriptive User-Agent.
const DefaultUserAgent = "wikigate/1.0 (https://go.pilab.hu/wikigate)"

// RequesterConfig configures a Requester. Zero values fall back to
// DefaultTimeout and DefaultUserAgent.
type RequesterConfig struct {
	Consumer  Credentials
	UserAgent string
	Timeout   time.Duration
	// HTTPClient overrides the internally built client. Used by tests.
	HTTPClient *http.Client
}

// Requester signs and executes requests against the OAuth provider.
// Signature computation is delegated to gomodule/oauth1; this layer owns
// URL assembly, payload placement and status classification. Exactly one
// attempt per call: retry policy, if any, belongs to callers.
type Requester struct {
	signer    *oauth.Client
	http      *http.Client
	userAgent string
}

// NewRequester builds a Requester around the shared consumer credential.
func NewRequester(cfg RequesterConfig) *Requester {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Requester{
		signer: &oauth.Client{
			Credentials:     oauth.Credentials{Token: cfg.Consumer.Key, Secret: cfg.Consumer.Secret},
			SignatureMethod: oauth.HMACSHA1,
		},
		http:      httpClient,
		userAgent: userAgent,
	}
}

// ConsumerKey returns the consumer key the Requester signs with. The
// authorization redirect URL needs it as a plain query parameter.
func (r *Requester) ConsumerKey() string { return r.signer.Credentials.Token }

// Do signs and executes a single request. token carries the per-session
// credential and is nil for the request-token step. GET sends data as query
// parameters, POST as a form body; either way the parameters enter the
// signature base string together with any query already present on rawURL,
// so the URL that is signed is exactly the URL that is sent.
func (r *Requester) Do(ctx context.Context, method, rawURL string, token *Credentials, data url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing request URL: %w", err)
	}

	var body io.Reader
	var form url.Values
	switch method {
	case http.MethodGet:
		q := u.Query()
		for k, vs := range data {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	case http.MethodPost:
		form = data
		body = strings.NewReader(form.Encode())
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", r.userAgent)

	var creds *oauth.Credentials
	if token != nil {
		creds = &oauth.Credentials{Token: token.Key, Secret: token.Secret}
	}
	if err := r.signer.SetAuthorizationHeader(req.Header, creds, method, u, form); err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	log.Debug().
		Str("method", method).
		Str("url", u.Redacted()).
		Bool("has_token", token != nil).
		Msg("provider request")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		log.Error().
			Str("url", u.Redacted()).
			Int("status", resp.StatusCode).
			Str("consumer_key", TokenPreview(r.ConsumerKey())).
			Msg("provider rejected credentials")
		return nil, ErrAuthentication
	case resp.StatusCode == http.StatusBadRequest:
		log.Error().
			Str("url", u.Redacted()).
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("provider rejected request format")
		return nil, ErrRequestFormat
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		log.Error().
			Str("url", u.Redacted()).
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("provider request failed")
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}

// DoForm executes Do and parses the URL-encoded body the token endpoints
// answer with.
func (r *Requester) DoForm(ctx context.Context, method, rawURL string, token *Credentials, data url.Values) (url.Values, error) {
	raw, err := r.Do(ctx, method, rawURL, token, data)
	if err != nil {
		return nil, err
	}
	vals, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	return vals, nil
}
