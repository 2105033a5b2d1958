// Package control wires the HTTP control surface: three JSON endpoints
// (/screenshot, /recording, /mix) plus the ambient /healthz and /metrics
// routes, built on echo. Request validation — required fields, per-method
// parameter checks, and input-compatibility rules (percentage/specific_time
// require a file, immediate requires an rtmp:// stream) — is this package's
// own code; echo supplies only the JSON binder.
package control

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response codes, unchanged from the control surface's documented contract.
const (
	CodeSuccess        = 1000
	CodeQueued         = 1001
	CodeInvalidRequest = 2001
	CodeInvalidJSON    = 2002
)

// body is the JSON shape every endpoint returns, regardless of outcome.
type body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// reply always answers with HTTP 200; the outcome is carried in the body's
// own code field, matching the original server's convention of a uniform
// transport status with an application-level result code.
func reply(c echo.Context, code int, message string) error {
	return c.JSON(http.StatusOK, body{Code: code, Message: message})
}

func invalidJSON(c echo.Context) error {
	return reply(c, CodeInvalidJSON, "Invalid JSON")
}

func invalidRequest(c echo.Context, message string) error {
	return reply(c, CodeInvalidRequest, message)
}

func success(c echo.Context, message string) error {
	return reply(c, CodeSuccess, message)
}

func queued(c echo.Context, message string) error {
	return reply(c, CodeQueued, message)
}
