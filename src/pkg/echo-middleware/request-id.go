package echomw

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID    = "X-User-ID"
	requestIDKey    = "request_id"
	maxRequestIDLen = 128
)

// RequestIDMiddleware reuses the caller's X-Request-ID or assigns a new uuid, and echoes it back.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)
		return next(c)
	}
}

func RequestID(c echo.Context) string {
	requestID, _ := c.Get(requestIDKey).(string)
	return requestID
}

// UserID is the chat user on whose behalf the request is made.
func UserID(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
}
