package middleware

import (
	xhttp "Momentum/pkg/http"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the caller identity. Auth termination happens upstream;
// this service trusts the header.
const HeaderUserID = "X-User-ID"

const userIDKey = "userID"

// Identity requires X-User-ID on every request and stores it on the context.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get(HeaderUserID)
			if userID == "" {
				return xhttp.UnauthorizedResponse(c, xhttp.UnauthorizedError("missing "+HeaderUserID+" header"))
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// UserID returns the caller identity set by Identity.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
