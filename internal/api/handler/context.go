package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/poklin/poklin/internal/api/middleware"
	"github.com/poklin/poklin/internal/core/domain"
)

// ctxUserID returns the user id injected by middleware.LoadSession.
func ctxUserID(c echo.Context) (string, bool) {
	return middleware.UserID(c)
}

func sessionClaims(c echo.Context) (*domain.Claims, bool) {
	return middleware.SessionClaims(c)
}

// isFormPost reports whether the request came from an HTML form. Such
// requests get redirects and rendered pages instead of JSON.
func isFormPost(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm)
}
