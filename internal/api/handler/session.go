package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/poklin/poklin/internal/api/cookie"
	"github.com/poklin/poklin/internal/api/metrics"
	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
)

// sessionWriter turns an identity from any provider into a session cookie.
type sessionWriter struct {
	sessions ports.SessionManager
	jar      *cookie.Session
}

func (w sessionWriter) start(c echo.Context, identity domain.Identity) (*domain.Claims, error) {
	token, claims, err := w.sessions.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	w.jar.Write(c, token, claims.ExpiresAt)
	metrics.SessionsIssuedTotal.WithLabelValues("login").Inc()
	return claims, nil
}
