package echo

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// The callback route is loaded in a popup (or a full redirect) straight
// from the provider, so it answers plain HTML rather than JSON. The success
// page hands the session id back to the opener window via postMessage and
// closes itself.

var callbackSuccessTmpl = template.Must(template.New("callback_success").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Authorization Complete</title>
</head>
<body>
    <h2>Authorization successful!</h2>
    <p>You can close this window.</p>
    <script>
        if (window.opener) {
            window.opener.postMessage(
                { type: "wikigate:auth", sessionId: {{.SessionID}} },
                {{.Origin}}
            );
        }
        setTimeout(function () { window.close(); }, 1000);
    </script>
</body>
</html>
`))

var callbackErrorTmpl = template.Must(template.New("callback_error").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Authorization Failed</title>
</head>
<body>
    <h2>Authorization failed</h2>
    <p>Error: {{.Reason}}</p>
    <p>You can close this window and try again.</p>
    <script>
        setTimeout(function () { window.close(); }, 3000);
    </script>
</body>
</html>
`))

func (a *GatewayAPI) renderCallbackSuccess(c echo.Context, sessionID string) error {
	var buf bytes.Buffer
	data := struct {
		SessionID string
		Origin    string
	}{SessionID: sessionID, Origin: a.messageOrigin}
	if err := callbackSuccessTmpl.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("rendering callback page")
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.HTML(http.StatusOK, buf.String())
}

func (a *GatewayAPI) renderCallbackError(c echo.Context, reason string) error {
	var buf bytes.Buffer
	if err := callbackErrorTmpl.Execute(&buf, struct{ Reason string }{Reason: reason}); err != nil {
		log.Error().Err(err).Msg("rendering callback page")
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.HTML(http.StatusOK, buf.String())
}
