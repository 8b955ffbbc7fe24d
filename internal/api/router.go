package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/unrolled/secure"

	_ "github.com/poklin/poklin/docs"
	"github.com/poklin/poklin/internal/api/cookie"
	"github.com/poklin/poklin/internal/api/handler"
	"github.com/poklin/poklin/internal/api/middleware"
	"github.com/poklin/poklin/internal/core/ports"
	"github.com/poklin/poklin/internal/pkg/config"
	"github.com/poklin/poklin/internal/web/pages"
)

// Deps are the wired collaborators behind the HTTP surface.
type Deps struct {
	Config         *config.Config
	Users          ports.UserRepository
	Registrar      ports.Registrar
	Credentials    ports.CredentialsProvider
	Sessions       ports.SessionManager
	OAuthProviders []ports.ExternalOAuthProvider
	HealthChecks   map[string]handler.Check
	Log            zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	cfg := deps.Config
	log := deps.Log

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Validator = handler.NewValidator()

	jar := cookie.NewSession(&cfg.Auth)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echo.WrapMiddleware(secureHeaders(cfg).Handler))
	e.Use(middleware.Metrics())
	e.Use(middleware.LoadSession(deps.Sessions, jar, log))

	// --- Dependencies ---
	providers := make([]pages.ProviderLink, 0, len(deps.OAuthProviders))
	for _, p := range deps.OAuthProviders {
		providers = append(providers, pages.ProviderLink{ID: p.ID(), Label: providerLabel(p.ID())})
	}
	authHandler := handler.NewAuthHandler(handler.AuthDeps{
		Registrar:   deps.Registrar,
		Credentials: deps.Credentials,
		Sessions:    deps.Sessions,
		Users:       deps.Users,
		Cookie:      jar,
		Providers:   providers,
		LoginPath:   cfg.Auth.LoginPath,
		Log:         log,
	})
	oauthHandler := handler.NewOAuthHandler(deps.OAuthProviders, deps.Sessions, jar, cookie.NewOAuthState(&cfg.Auth, cfg.Redis.StateTTL), log)
	pageHandler := handler.NewPageHandler(deps.Users, cfg.Auth.LoginPath, log)
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.GET("/register", authHandler.RegisterPage)
	auth.POST("/register", authHandler.Register)
	auth.GET("/login", authHandler.LoginPage)
	auth.POST("/login", authHandler.Login)
	auth.GET("/logout", authHandler.LogoutPage)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/session", authHandler.Session)
	auth.GET("/error", authHandler.ErrorPage)
	auth.GET("/oauth/:provider/start", oauthHandler.Start)
	auth.GET("/oauth/:provider/callback", oauthHandler.Callback)

	// --- Pages (session required) ---
	// Attached per route: a prefix-less group would register a catch-all.
	requireSession := middleware.RequireSession(cfg.Auth.LoginPath, log)
	e.GET("/", pageHandler.Home, requireSession)
	e.GET("/dashboard", pageHandler.Dashboard, requireSession)
	e.GET("/envies", pageHandler.Envies, requireSession)
	e.GET("/moments", pageHandler.Moments, requireSession)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogError:     true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			var event *zerolog.Event
			switch {
			case v.Status >= 500:
				event = log.Error().Err(v.Error)
			case v.Status >= 400:
				event = log.Warn().Err(v.Error)
			default:
				event = log.Info()
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

func secureHeaders(cfg *config.Config) *secure.Secure {
	return secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         cfg.IsDevelopment(),
	})
}

func providerLabel(id string) string {
	switch id {
	case "google":
		return "Google"
	default:
		return id
	}
}
