package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/api/cookie"
	"github.com/poklin/poklin/internal/api/metrics"
	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
)

// OAuthHandler drives the redirect/callback round trip of external providers.
// The state is kept both by the provider and in a cookie on the browser that
// started the round trip; a callback has to present both.
type OAuthHandler struct {
	providers map[string]ports.ExternalOAuthProvider
	session   sessionWriter
	state     *cookie.OAuthState
	log       zerolog.Logger
}

func NewOAuthHandler(providers []ports.ExternalOAuthProvider, sessions ports.SessionManager, jar *cookie.Session, state *cookie.OAuthState, log zerolog.Logger) *OAuthHandler {
	byID := make(map[string]ports.ExternalOAuthProvider, len(providers))
	for _, p := range providers {
		byID[p.ID()] = p
	}
	return &OAuthHandler{
		providers: byID,
		session:   sessionWriter{sessions: sessions, jar: jar},
		state:     state,
		log:       log,
	}
}

func (h *OAuthHandler) provider(c echo.Context) (ports.ExternalOAuthProvider, error) {
	p, ok := h.providers[c.Param("provider")]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return p, nil
}

// Start redirects the browser to the provider's consent screen.
//
// @Summary      Start an OAuth sign-in
// @Tags         auth
// @Param        provider  path  string  true  "Provider id (e.g. google)"
// @Success      302
// @Failure      404  {object}  errorResponse
// @Router       /auth/oauth/{provider}/start [get]
func (h *OAuthHandler) Start(c echo.Context) error {
	p, err := h.provider(c)
	if err != nil {
		return err
	}

	authURL, state, err := p.Begin(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Str("provider", p.ID()).Msg("oauth start failed")
		return c.Redirect(http.StatusFound, authErrorURL("OAuthSignin"))
	}
	h.state.Write(c, state)
	return c.Redirect(http.StatusFound, authURL)
}

// Callback completes the round trip and signs the user in.
//
// @Summary      OAuth callback
// @Tags         auth
// @Param        provider  path   string  true   "Provider id (e.g. google)"
// @Param        state     query  string  true   "Opaque state from the start leg"
// @Param        code      query  string  false  "Authorization code"
// @Success      302
// @Failure      404  {object}  errorResponse
// @Router       /auth/oauth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	p, err := h.provider(c)
	if err != nil {
		return err
	}
	provider := p.ID()

	state := c.QueryParam("state")
	bound := h.state.Matches(c, state)
	h.state.Clear(c)

	if reason := c.QueryParam("error"); reason != "" {
		// The user declined consent or the provider refused the request.
		h.log.Debug().Str("provider", provider).Str("reason", reason).Msg("oauth callback returned an error")
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "invalid").Inc()
		return c.Redirect(http.StatusFound, authErrorURL("OAuthCallback"))
	}

	if !bound {
		// Started by another browser, or the cookie expired.
		h.log.Info().Str("provider", provider).Msg("oauth callback state not bound to this browser")
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "invalid").Inc()
		return c.Redirect(http.StatusFound, authErrorURL("OAuthState"))
	}

	identity, err := p.Complete(c.Request().Context(), state, c.QueryParam("code"))
	if err != nil {
		code, result := "OAuthCallback", "error"
		switch {
		case errors.Is(err, domain.ErrOAuthAccountNotLinked):
			code, result = "OAuthAccountNotLinked", "not_linked"
		case errors.Is(err, domain.ErrOAuthState):
			code, result = "OAuthState", "invalid"
		case errors.Is(err, domain.ErrOAuthProfile):
			result = "invalid"
		}
		if result == "error" {
			h.log.Error().Err(err).Str("provider", provider).Msg("oauth callback failed")
		} else {
			h.log.Info().Err(err).Str("provider", provider).Msg("oauth sign-in rejected")
		}
		metrics.LoginAttemptsTotal.WithLabelValues(provider, result).Inc()
		return c.Redirect(http.StatusFound, authErrorURL(code))
	}

	if _, err := h.session.start(c, *identity); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "error").Inc()
		h.log.Error().Err(err).Str("user_id", identity.ID).Msg("session issue failed")
		return c.Redirect(http.StatusFound, authErrorURL("OAuthCallback"))
	}

	metrics.LoginAttemptsTotal.WithLabelValues(provider, "success").Inc()
	h.log.Info().Str("user_id", identity.ID).Str("provider", provider).Msg("user signed in")
	return c.Redirect(http.StatusFound, "/")
}
