// Package client is the Go counterpart of the browser client: it drives
// the login flow against a gateway and exposes a typed API-call surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.pilab.hu/wikigate"
	"go.pilab.hu/wikigate/api"
)

// APIError is a non-2xx gateway answer, carrying the short reason from the
// error envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to one gateway and remembers the session it is driving. It
// is safe for concurrent use; the session id is the only mutable state.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	sessionID string
}

// New creates a client for the gateway at baseURL.
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewWithHTTPClient creates a client using the given http.Client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SessionID returns the session the client is currently driving, empty
// before Login.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetSessionID resumes a previously issued session.
func (c *Client) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// LoginResult is what the caller needs to send the user to the provider.
type LoginResult struct {
	AuthURL      string
	SessionID    string
	IsOutOfBand  bool
	Instructions string
}

// Login starts the OAuth flow. The returned AuthURL must be opened in the
// user's browser; in the out-of-band mode the user comes back with a
// verification code for SubmitVerificationCode, otherwise the provider
// redirects to the gateway's callback and the session completes there.
func (c *Client) Login(ctx context.Context) (*LoginResult, error) {
	var resp api.LoginResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/login", nil, &resp); err != nil {
		return nil, err
	}

	c.SetSessionID(resp.SessionID)
	return &LoginResult{
		AuthURL:      resp.AuthURL,
		SessionID:    resp.SessionID,
		IsOutOfBand:  resp.IsOutOfBand,
		Instructions: resp.Instructions,
	}, nil
}

// SubmitVerificationCode completes the out-of-band flow.
func (c *Client) SubmitVerificationCode(ctx context.Context, code string) (*wikigate.User, error) {
	req := api.VerifyCodeRequest{SessionID: c.SessionID(), VerificationCode: code}
	var resp api.VerifyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/verify-code", req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Verify checks session liveness and returns the authenticated user.
func (c *Client) Verify(ctx context.Context) (*wikigate.User, error) {
	req := api.VerifyRequest{SessionID: c.SessionID()}
	var resp api.VerifyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/verify", req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Call proxies one named API action through the gateway and returns the
// upstream body verbatim.
func (c *Client) Call(ctx context.Context, action string, params map[string]string) (json.RawMessage, error) {
	req := api.ProxyRequest{SessionID: c.SessionID(), Action: action, Params: params}
	var resp api.ProxyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/proxy", req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Logout tears the session down and forgets the local id.
func (c *Client) Logout(ctx context.Context) error {
	req := api.LogoutRequest{SessionID: c.SessionID()}
	var resp api.LogoutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/logout", req, &resp); err != nil {
		return err
	}
	c.SetSessionID("")
	return nil
}

// FetchConfig retrieves the gateway's client-safe runtime configuration.
func (c *Client) FetchConfig(ctx context.Context) (*api.ClientConfig, error) {
	var resp api.ConfigResponse
	if err := c.doJSON(ctx, http.MethodGet, "/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Config, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var envelope api.ErrorResponse
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
