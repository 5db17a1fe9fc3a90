// Package api defines the wire shapes of the gateway's HTTP surface. They
// are shared by the echo handlers and the Go client SDK.
package api

import (
	"encoding/json"

	"go.pilab.hu/wikigate"
)

// ErrorResponse is the failure envelope every JSON route answers with.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// LoginResponse is the successful /auth/login payload.
type LoginResponse struct {
	Success      bool   `json:"success"`
	AuthURL      string `json:"authUrl"`
	SessionID    string `json:"sessionId"`
	IsOutOfBand  bool   `json:"isOutOfBand"`
	Instructions string `json:"instructions,omitempty"`
}

// VerifyCodeRequest completes the out-of-band flow.
type VerifyCodeRequest struct {
	SessionID        string `json:"sessionId"`
	VerificationCode string `json:"verificationCode"`
}

// VerifyRequest checks session liveness.
type VerifyRequest struct {
	SessionID string `json:"sessionId"`
}

// LogoutRequest tears a session down.
type LogoutRequest struct {
	SessionID string `json:"sessionId"`
}

// VerifyResponse answers /auth/verify and /auth/verify-code.
type VerifyResponse struct {
	Success   bool           `json:"success"`
	User      *wikigate.User `json:"user"`
	SessionID string         `json:"sessionId,omitempty"`
}

// LogoutResponse answers /auth/logout.
type LogoutResponse struct {
	Success bool `json:"success"`
}

// ProxyRequest forwards one named API action with its parameters.
type ProxyRequest struct {
	SessionID string            `json:"sessionId"`
	Action    string            `json:"action"`
	Params    map[string]string `json:"params"`
}

// ProxyResponse carries the upstream body verbatim.
type ProxyResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// ClientConfig is the subset of gateway configuration safe to hand to
// browsers. Credentials never appear here.
type ClientConfig struct {
	IsOutOfBand bool   `json:"isOutOfBand"`
	APIURL      string `json:"apiUrl"`
}

// ConfigResponse answers /config.
type ConfigResponse struct {
	Success bool         `json:"success"`
	Config  ClientConfig `json:"config"`
}
