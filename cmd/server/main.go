package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/poklin/poklin/internal/api"
	"github.com/poklin/poklin/internal/api/handler"
	"github.com/poklin/poklin/internal/core/ports"
	"github.com/poklin/poklin/internal/core/service"
	"github.com/poklin/poklin/internal/infrastructure/db/mongo"
	"github.com/poklin/poklin/internal/infrastructure/db/postgres"
	"github.com/poklin/poklin/internal/infrastructure/db/redis"
	"github.com/poklin/poklin/internal/infrastructure/oauth"
	"github.com/poklin/poklin/internal/pkg/config"
	"github.com/poklin/poklin/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "poklin: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "poklin",
	})

	checks := map[string]handler.Check{}

	users, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info().Str("driver", cfg.Store.Driver).Msg("user store ready")

	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	sessions, err := service.NewJWTSessionIssuer(&cfg.Auth)
	if err != nil {
		return err
	}

	var providers []ports.ExternalOAuthProvider
	if cfg.Google.Enabled() {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks["redis"] = redis.Ping(rdb)

		states := redis.NewOAuthStateStore(rdb, cfg.Redis.StateTTL)
		providers = append(providers, oauth.NewGoogleProvider(&cfg.Google, states, users, log, oauth.Endpoints{}))
		log.Info().Msg("google sign-in enabled")
	}

	e := api.NewRouter(api.Deps{
		Config:         cfg,
		Users:          users,
		Registrar:      service.NewRegistrationService(&cfg.Auth, users, hasher, log),
		Credentials:    service.NewCredentialAuthenticator(&cfg.Auth, users, hasher, log),
		Sessions:       sessions,
		OAuthProviders: providers,
		HealthChecks:   checks,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects the configured user store and registers its readiness check.
func openStore(ctx context.Context, cfg *config.Config, checks map[string]handler.Check) (ports.UserRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewUserRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		checks["postgres"] = pool.Ping
		return repo, pool.Close, nil
	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			_ = client.Disconnect(context.Background())
		}
		repo := mongo.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		checks["mongo"] = mongo.Ping(db)
		return repo, closeFn, nil
	}
}
