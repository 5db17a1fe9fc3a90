// Package echo mounts the gateway's HTTP surface on labstack/echo.
package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/wikigate"
	"go.pilab.hu/wikigate/api"
)

// GatewayAPI holds the handler dependencies.
type GatewayAPI struct {
	auth         *wikigate.AuthService
	proxy        *wikigate.ProxyService
	clientConfig api.ClientConfig
	// messageOrigin is the target origin for the callback page's
	// postMessage; the session id must not be broadcast to "*".
	messageOrigin string
}

// NewGatewayAPI initializes the gateway API.
func NewGatewayAPI(auth *wikigate.AuthService, proxy *wikigate.ProxyService, clientConfig api.ClientConfig, messageOrigin string) *GatewayAPI {
	return &GatewayAPI{
		auth:          auth,
		proxy:         proxy,
		clientConfig:  clientConfig,
		messageOrigin: messageOrigin,
	}
}

// RegisterRoutes registers the gateway routes.
func (a *GatewayAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/auth/login", a.LoginHandler)
	e.GET("/auth/callback", a.CallbackHandler)
	e.POST("/auth/verify-code", a.VerifyCodeHandler)
	e.POST("/auth/verify", a.VerifyHandler)
	e.POST("/auth/logout", a.LogoutHandler)
	e.POST("/proxy", a.ProxyHandler)
	e.GET("/config", a.ConfigHandler)
}

const oobInstructions = "Visit the authUrl, authorize the application, and you will receive a " +
	"verification code. Submit it to /auth/verify-code together with your sessionId."

// LoginHandler starts the OAuth flow and hands the client the authorization
// URL plus its session id.
func (a *GatewayAPI) LoginHandler(c echo.Context) error {
	result, err := a.auth.Begin(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to start oauth flow")
		return c.JSON(statusForError(err), api.ErrorResponse{Error: err.Error()})
	}

	resp := api.LoginResponse{
		Success:     true,
		AuthURL:     result.AuthURL,
		SessionID:   result.SessionID,
		IsOutOfBand: result.IsOutOfBand,
	}
	if result.IsOutOfBand {
		resp.Instructions = oobInstructions
	}
	return c.JSON(http.StatusOK, resp)
}

// CallbackHandler receives the provider redirect for popup and redirect
// flows. It always answers HTML: the page signals the opener window and
// closes itself, on failure with the short reason shown to the user.
func (a *GatewayAPI) CallbackHandler(c echo.Context) error {
	token := c.QueryParam("oauth_token")
	verifier := c.QueryParam("oauth_verifier")
	if token == "" || verifier == "" {
		return a.renderCallbackError(c, "Missing OAuth parameters")
	}

	session, err := a.auth.Complete(c.Request().Context(), token, verifier)
	if err != nil {
		log.Error().Err(err).
			Str("request_token", wikigate.TokenPreview(token)).
			Msg("oauth callback failed")
		return a.renderCallbackError(c, err.Error())
	}

	return a.renderCallbackSuccess(c, session.ID)
}

// VerifyCodeHandler completes the out-of-band flow with the code the
// provider showed the user.
func (a *GatewayAPI) VerifyCodeHandler(c echo.Context) error {
	var req api.VerifyCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
	}
	if req.SessionID == "" || req.VerificationCode == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "missing sessionId or verificationCode"})
	}

	session, err := a.auth.CompleteWithCode(c.Request().Context(), req.SessionID, req.VerificationCode)
	if err != nil {
		log.Error().Err(err).Msg("oauth verification failed")
		return c.JSON(statusForError(err), api.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, api.VerifyResponse{Success: true, User: session.User, SessionID: session.ID})
}

// VerifyHandler reports the stored user for a live session.
func (a *GatewayAPI) VerifyHandler(c echo.Context) error {
	var req api.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "session ID required"})
	}

	user, err := a.auth.Verify(c.Request().Context(), req.SessionID)
	if err != nil {
		return c.JSON(statusForError(err), api.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, api.VerifyResponse{Success: true, User: user})
}

// LogoutHandler deletes the session.
func (a *GatewayAPI) LogoutHandler(c echo.Context) error {
	var req api.LogoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "session ID required"})
	}

	if err := a.auth.Logout(c.Request().Context(), req.SessionID); err != nil {
		log.Error().Err(err).Msg("logout failed")
		return c.JSON(statusForError(err), api.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, api.LogoutResponse{Success: true})
}

// ProxyHandler forwards a named API action signed with the session's access
// token and passes the upstream body through.
func (a *GatewayAPI) ProxyHandler(c echo.Context) error {
	var req api.ProxyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "session ID required"})
	}
	if req.Action == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "action required"})
	}

	data, err := a.proxy.Call(c.Request().Context(), req.SessionID, req.Action, req.Params)
	if err != nil {
		log.Error().Err(err).Str("action", req.Action).Msg("api proxy call failed")
		return c.JSON(statusForError(err), api.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, api.ProxyResponse{Success: true, Data: data})
}

// ConfigHandler exposes the client-safe runtime configuration.
func (a *GatewayAPI) ConfigHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, api.ConfigResponse{Success: true, Config: a.clientConfig})
}

// statusForError maps the error taxonomy onto HTTP statuses for the JSON
// routes. Unclassified failures stay generic 500s; the detail lives in the
// server log, not the response.
func statusForError(err error) int {
	var transportErr *wikigate.TransportError
	switch {
	case errors.Is(err, wikigate.ErrSessionNotFound),
		errors.Is(err, wikigate.ErrSessionNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, wikigate.ErrRequestFormat),
		errors.Is(err, wikigate.ErrWrongCallbackMode):
		return http.StatusBadRequest
	case errors.Is(err, wikigate.ErrAuthentication):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
