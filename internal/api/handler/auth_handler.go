package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/api/cookie"
	"github.com/poklin/poklin/internal/api/metrics"
	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
	"github.com/poklin/poklin/internal/web/pages"
)

const (
	msgUserCreated        = "User created successfully"
	msgEmailExists        = "Email already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidPayload     = "invalid payload"
	msgSomethingWrong     = "Something went wrong"
)

// AuthDeps groups the collaborators of AuthHandler.
type AuthDeps struct {
	Registrar   ports.Registrar
	Credentials ports.CredentialsProvider
	Sessions    ports.SessionManager
	Users       ports.UserReader
	Cookie      *cookie.Session
	// Providers are listed as buttons on the login page.
	Providers []pages.ProviderLink
	LoginPath string
	Log       zerolog.Logger
}

type AuthHandler struct {
	registrar   ports.Registrar
	credentials ports.CredentialsProvider
	users       ports.UserReader
	jar         *cookie.Session
	session     sessionWriter
	providers   []pages.ProviderLink
	loginPath   string
	log         zerolog.Logger
}

func NewAuthHandler(deps AuthDeps) *AuthHandler {
	loginPath := deps.LoginPath
	if loginPath == "" {
		loginPath = "/auth/login"
	}
	return &AuthHandler{
		registrar:   deps.Registrar,
		credentials: deps.Credentials,
		users:       deps.Users,
		jar:         deps.Cookie,
		session:     sessionWriter{sessions: deps.Sessions, jar: deps.Cookie},
		providers:   deps.Providers,
		loginPath:   loginPath,
		log:         deps.Log,
	}
}

// Register creates a new credentials account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	form := isFormPost(c)

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		if form {
			return render(c, http.StatusBadRequest, pages.Register(pages.RegisterView{Name: req.Name, Email: req.Email, Error: msgInvalidPayload}))
		}
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidPayload})
	}

	user, err := h.registrar.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Age:      req.Age,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		status, msg := h.registrationFailure(c, err)
		if form {
			return render(c, status, pages.Register(pages.RegisterView{Name: req.Name, Age: req.Age, Email: req.Email, Error: msg}))
		}
		return c.JSON(status, errorResponse{Error: msg})
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	if form {
		return c.Redirect(http.StatusSeeOther, h.loginPath+"?registered=1")
	}
	return c.JSON(http.StatusCreated, registerResponse{Message: msgUserCreated, User: toUserResponse(user)})
}

func (h *AuthHandler) registrationFailure(c echo.Context, err error) (int, string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, domain.ErrDuplicateEmail):
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		return http.StatusBadRequest, msgEmailExists
	default:
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		h.log.Error().Err(err).Str("path", c.Path()).Msg("registration failed")
		return http.StatusInternalServerError, msgSomethingWrong
	}
}

// RegisterPage renders the sign-up form.
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	if _, ok := ctxUserID(c); ok {
		return c.Redirect(http.StatusFound, "/")
	}
	return render(c, http.StatusOK, pages.Register(pages.RegisterView{}))
}

// LoginPage renders the sign-in form. Signed-in users go straight home.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	if _, ok := ctxUserID(c); ok {
		return c.Redirect(http.StatusFound, "/")
	}

	view := pages.LoginView{Providers: h.providers}
	if code := c.QueryParam("error"); code != "" {
		view.Error = pages.AuthErrorMessage(code)
	}
	if c.QueryParam("registered") != "" {
		view.Notice = "Account created. You can sign in now."
	}
	return render(c, http.StatusOK, pages.Login(view))
}

// Login exchanges credentials for a session cookie.
//
// @Summary      Sign in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	form := isFormPost(c)
	provider := h.credentials.ID()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "invalid").Inc()
		return h.loginFailure(c, form, req.Email, http.StatusBadRequest, msgInvalidPayload)
	}
	// Malformed input gets the same answer as a wrong password.
	if err := c.Validate(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "invalid").Inc()
		return h.loginFailure(c, form, req.Email, http.StatusUnauthorized, msgInvalidCredentials)
	}

	identity, err := h.credentials.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues(provider, "invalid").Inc()
			return h.loginFailure(c, form, req.Email, http.StatusUnauthorized, msgInvalidCredentials)
		}
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "error").Inc()
		h.log.Error().Err(err).Msg("credential authentication failed")
		return h.loginFailure(c, form, req.Email, http.StatusInternalServerError, msgSomethingWrong)
	}

	claims, err := h.session.start(c, *identity)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(provider, "error").Inc()
		h.log.Error().Err(err).Str("user_id", identity.ID).Msg("session issue failed")
		return h.loginFailure(c, form, req.Email, http.StatusInternalServerError, msgSomethingWrong)
	}

	metrics.LoginAttemptsTotal.WithLabelValues(provider, "success").Inc()
	h.log.Info().Str("user_id", identity.ID).Str("provider", provider).Msg("user signed in")

	if form {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.JSON(http.StatusOK, loginResponse{User: *identity, Expires: claims.ExpiresAt})
}

func (h *AuthHandler) loginFailure(c echo.Context, form bool, email string, status int, msg string) error {
	if form {
		return render(c, status, pages.Login(pages.LoginView{Email: email, Error: msg, Providers: h.providers}))
	}
	return c.JSON(status, errorResponse{Error: msg})
}

// LogoutPage asks the user to confirm signing out.
func (h *AuthHandler) LogoutPage(c echo.Context) error {
	return render(c, http.StatusOK, pages.SignOut())
}

// Logout clears the session cookie. The token is not revoked server-side.
//
// @Summary      Sign out
// @Tags         auth
// @Success      303
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.jar.Clear(c)
	if userID, ok := ctxUserID(c); ok {
		h.log.Info().Str("user_id", userID).Msg("user signed out")
	}
	if c.Request().Header.Get(echo.HeaderAccept) == echo.MIMEApplicationJSON {
		return c.JSON(http.StatusOK, messageResponse{Message: "Signed out"})
	}
	return c.Redirect(http.StatusSeeOther, h.loginPath)
}

// Session reports the current session, re-reading the user from the store.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Failure      500  {object}  errorResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	claims, ok := sessionClaims(c)
	if !ok {
		return c.JSON(http.StatusOK, sessionResponse{})
	}

	user, err := h.users.FindByID(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.jar.Clear(c)
			return c.JSON(http.StatusOK, sessionResponse{})
		}
		return err
	}

	identity := user.Identity()
	expires := claims.ExpiresAt
	return c.JSON(http.StatusOK, sessionResponse{User: &identity, Expires: &expires})
}

// ErrorPage renders a sign-in error keyed by the error query parameter.
func (h *AuthHandler) ErrorPage(c echo.Context) error {
	return render(c, http.StatusOK, pages.AuthError(c.QueryParam("error")))
}

// authErrorURL builds the error page location for code.
func authErrorURL(code string) string {
	return "/auth/error?error=" + url.QueryEscape(code)
}
