package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
	"github.com/poklin/poklin/internal/web/pages"
)

// PageHandler renders the signed-in pages. Every render re-reads the user
// so profile changes show up without a new session.
type PageHandler struct {
	users     ports.UserReader
	loginPath string
	log       zerolog.Logger
	now       func() time.Time
}

func NewPageHandler(users ports.UserReader, loginPath string, log zerolog.Logger) *PageHandler {
	return &PageHandler{users: users, loginPath: loginPath, log: log, now: time.Now}
}

func (h *PageHandler) Home(c echo.Context) error {
	return h.withUser(c, pages.Home)
}

func (h *PageHandler) Dashboard(c echo.Context) error {
	return h.withUser(c, func(u *domain.User) templ.Component {
		return pages.Dashboard(pages.NewDashboardView(u, h.now()))
	})
}

func (h *PageHandler) Envies(c echo.Context) error {
	return h.withUser(c, pages.Envies)
}

func (h *PageHandler) Moments(c echo.Context) error {
	return h.withUser(c, pages.Moments)
}

// withUser loads the session user and renders page. A session whose user
// no longer exists is sent back to the login page.
func (h *PageHandler) withUser(c echo.Context, page func(*domain.User) templ.Component) error {
	userID, ok := ctxUserID(c)
	if !ok {
		return c.Redirect(http.StatusFound, h.loginPath)
	}

	user, err := h.users.FindByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.log.Debug().Str("user_id", userID).Msg("session user no longer exists")
			return c.Redirect(http.StatusFound, h.loginPath)
		}
		return err
	}
	return render(c, http.StatusOK, page(user))
}
