package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/api/cookie"
	"github.com/poklin/poklin/internal/api/metrics"
	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
)

// Context keys set by LoadSession.
const (
	ContextUserID = "user_id"
	ContextClaims = "session_claims"
)

// LoadSession verifies the session cookie and injects the claims into the
// context. It never rejects a request: anonymous requests pass through with
// no user id, and an invalid cookie is cleared. Tokens older than the
// update age are re-issued.
func LoadSession(sessions ports.SessionManager, jar *cookie.Session, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := jar.Token(c)
			if token == "" {
				return next(c)
			}

			claims, err := sessions.Read(token)
			if err != nil {
				log.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("discarding invalid session cookie")
				jar.Clear(c)
				return next(c)
			}

			if sessions.NeedsRenewal(claims) {
				renewed, fresh, err := sessions.Issue(domain.Identity{ID: claims.UserID})
				if err != nil {
					log.Warn().Err(err).Str("user_id", claims.UserID).Msg("session renewal failed")
				} else {
					jar.Write(c, renewed, fresh.ExpiresAt)
					metrics.SessionsIssuedTotal.WithLabelValues("renewal").Inc()
					claims = fresh
				}
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextClaims, claims)
			return next(c)
		}
	}
}

// RequireSession redirects anonymous requests to loginPath. A missing
// session is normal control flow and is only logged at debug level.
func RequireSession(loginPath string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				log.Debug().Str("path", c.Request().URL.Path).Msg("anonymous request redirected to login")
				return c.Redirect(http.StatusFound, loginPath)
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (string, bool) {
	id, _ := c.Get(ContextUserID).(string)
	return id, id != ""
}

// SessionClaims returns the verified claims, if any.
func SessionClaims(c echo.Context) (*domain.Claims, bool) {
	claims, ok := c.Get(ContextClaims).(*domain.Claims)
	return claims, ok && claims != nil
}
