// Package echomw provides the Echo middlewares of the price catalog server.
package echomw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

const (
	// Env var the server reads the expected token from.
	EnvAPIBearerToken = "PRICEBOT_API_TOKEN"

	// Realm for WWW-Authenticate header.
	authRealm = "pricebot"
)

/*
RequireBearerToken validates Authorization: Bearer <token> against
expectedToken. On failure responds 401.

An empty expectedToken rejects every request.
*/
func RequireBearerToken(expectedToken string) echo.MiddlewareFunc {
	exp := strings.TrimSpace(expectedToken)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if exp == "" {
				// Fail closed if not configured.
				return unauthorized(c)
			}

			auth := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			if auth == "" {
				return unauthorized(c)
			}

			// Case-insensitive scheme per RFC; allow extra spaces.
			const bearer = "bearer "
			if len(auth) < len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
				return unauthorized(c)
			}
			received := strings.TrimSpace(auth[len(bearer):])
			if received == "" {
				return unauthorized(c)
			}

			// Constant-time compare.
			if subtle.ConstantTimeCompare([]byte(received), []byte(exp)) != 1 {
				return unauthorized(c)
			}

			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	LogRouteAccess(c, tl.Info, "Unauthorized access attempt", palette.Yellow) // Log the visit

	// Helpful for clients/tools; avoids browser basic-auth popups.
	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="`+authRealm+`"`)
	return c.JSON(http.StatusUnauthorized, map[string][]string{
		"messages": {"unauthorized"},
	})
}
