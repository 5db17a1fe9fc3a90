package wikigate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequester(t *testing.T) *Requester {
	t.Helper()
	return NewRequester(RequesterConfig{
		Consumer: Credentials{Key: "ckey", Secret: "csecret"},
	})
}

func TestRequesterGetSignsAndMergesQuery(t *testing.T) {
	var gotAuth string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	r := newTestRequester(t)
	body, err := r.Do(context.Background(), http.MethodGet, srv.URL+"/w/api.php?title=Special:OAuth/initiate", nil,
		url.Values{"action": {"query"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	// The fixed routing query and the call parameters travel on the same
	// URL that was signed.
	assert.Equal(t, "Special:OAuth/initiate", gotQuery.Get("title"))
	assert.Equal(t, "query", gotQuery.Get("action"))

	assert.True(t, strings.HasPrefix(gotAuth, "OAuth "))
	assert.Contains(t, gotAuth, `oauth_consumer_key="ckey"`)
	assert.Contains(t, gotAuth, "oauth_signature=")
	assert.NotContains(t, gotAuth, "oauth_token=", "no token credential was supplied")
}

func TestRequesterPostSendsForm(t *testing.T) {
	var gotContentType, gotAuth string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_, _ = w.Write([]byte("oauth_token=tok&oauth_token_secret=sec"))
	}))
	defer srv.Close()

	r := newTestRequester(t)
	vals, err := r.DoForm(context.Background(), http.MethodPost, srv.URL, &Credentials{Key: "tkey", Secret: "tsecret"},
		url.Values{"oauth_verifier": {"v1"}})
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "v1", gotForm.Get("oauth_verifier"))
	assert.Contains(t, gotAuth, `oauth_token="tkey"`)
	assert.Equal(t, "tok", vals.Get("oauth_token"))
	assert.Equal(t, "sec", vals.Get("oauth_token_secret"))
}

func TestRequesterSetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	r := NewRequester(RequesterConfig{
		Consumer:  Credentials{Key: "ckey", Secret: "csecret"},
		UserAgent: "test-agent/0.1",
	})
	_, err := r.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "test-agent/0.1", gotUA)
}

func TestRequesterStatusClassification(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("details"))
	}))
	defer srv.Close()

	r := newTestRequester(t)

	status = http.StatusUnauthorized
	_, err := r.Do(context.Background(), http.MethodPost, srv.URL, nil, nil)
	assert.ErrorIs(t, err, ErrAuthentication)

	status = http.StatusBadRequest
	_, err = r.Do(context.Background(), http.MethodPost, srv.URL, nil, nil)
	assert.ErrorIs(t, err, ErrRequestFormat)

	status = http.StatusServiceUnavailable
	_, err = r.Do(context.Background(), http.MethodPost, srv.URL, nil, nil)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.StatusCode)
	assert.Equal(t, "details", transportErr.Body)
}

func TestRequesterNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	r := newTestRequester(t)
	_, err := r.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Zero(t, transportErr.StatusCode)
	assert.Error(t, transportErr.Err)
}

func TestRequesterRejectsUnknownMethod(t *testing.T) {
	r := newTestRequester(t)
	_, err := r.Do(context.Background(), http.MethodDelete, "http://localhost", nil, nil)
	assert.Error(t, err)
}
