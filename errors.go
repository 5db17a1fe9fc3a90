package wikigate

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when the provider answers 401: the
	// signature or consumer credentials were rejected.
	ErrAuthentication = errors.New("oauth authentication failed: check consumer key and secret")

	// ErrRequestFormat is returned when the provider answers 400, which in
	// practice means the OAuth request was malformed, most often a callback
	// URL that does not match the registered consumer.
	ErrRequestFormat = errors.New("bad oauth request: check callback URL configuration")

	// ErrSessionNotFound covers unknown session ids, unknown request
	// tokens, and records that have passed their expiry.
	ErrSessionNotFound = errors.New("invalid or expired session")

	// ErrSessionNotAuthenticated is returned when a session exists but the
	// handshake never completed.
	ErrSessionNotAuthenticated = errors.New("session not authenticated")

	// ErrCallbackNotConfirmed is returned when the request-token response
	// lacks oauth_callback_confirmed=true. The provider did not accept the
	// callback configuration and the handshake cannot proceed.
	ErrCallbackNotConfirmed = errors.New("provider did not confirm the oauth callback")

	// ErrWrongCallbackMode is returned when a completion route is used for
	// a session begun in the other callback mode.
	ErrWrongCallbackMode = errors.New("session was started with a different callback mode")

	// ErrTokenResponseIncomplete is returned when a token endpoint answers
	// 2xx but omits oauth_token or oauth_token_secret.
	ErrTokenResponseIncomplete = errors.New("token response missing oauth_token or oauth_token_secret")
)

// TransportError carries the status and body of a provider response that is
// not otherwise classified, or the underlying error when the request never
// completed. The body is diagnostic material for server logs and must not
// be shown to end users.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider request failed: %v", e.Err)
	}
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StorageError marks a session store backend failure. When a memory
// fallback is configured the caller treats it as non-fatal.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
