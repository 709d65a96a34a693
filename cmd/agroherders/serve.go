package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"agro-herders-service/internal/auth"
	"agro-herders-service/internal/config"
	"agro-herders-service/internal/db"
	"agro-herders-service/internal/geo"
	apihttp "agro-herders-service/internal/http"
	"agro-herders-service/internal/logger"
	"agro-herders-service/internal/metrics"
	"agro-herders-service/internal/repository"
	"agro-herders-service/internal/service"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("migrate", true, "Apply the database schema before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}()
	if mustGetBool(cmd, "migrate") {
		if err := db.Migrate(gdb, log); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	revocations, closeRevocations, err := newRevocationStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeRevocations()

	opts := repository.Options{
		QueryTimeout: cfg.Store.QueryTimeout,
		MaxRetries:   cfg.Store.MaxRetries,
		Metrics:      m,
	}
	herders := repository.NewHerderRepository(gdb, opts)
	routes := repository.NewRouteRepository(gdb, opts)
	users := repository.NewUserRepository(gdb, opts)
	audits := repository.NewVerificationRepository(gdb, opts)

	policy, err := service.NewRoutePolicy(cfg.Verification.RoutePolicy)
	if err != nil {
		return err
	}

	index := geo.NewIndex()
	routeService := service.NewRouteService(routes, index, log, m)
	if err := routeService.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load grazing routes: %w", err)
	}
	log.Info().Int("routes", index.Len()).Str("policy", policy.Name()).Msg("geofence index ready")

	auditWriter := service.NewAuditWriter(audits, cfg.Verification.AuditQueueSize, log, m)
	authService := service.NewAuthService(users,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		revocations, log, m)

	handler := apihttp.NewHandler(apihttp.Services{
		Auth:    authService,
		Herders: service.NewHerderService(herders, log),
		Routes:  routeService,
		Verification: service.NewVerificationService(herders, index, auditWriter, service.VerificationOptions{
			Policy:           policy,
			LocationOptional: cfg.Verification.LocationOptional,
		}, log, m),
		Dashboard: service.NewDashboardService(herders, routes, audits),
	}, func(ctx context.Context) error { return db.Ping(ctx, gdb) }, log)

	router := apihttp.NewRouter(cfg.Server, apihttp.RouterDeps{
		Handler:      handler,
		Auth:         apihttp.AuthMiddleware(authService, log),
		LoginLimiter: apihttp.LoginRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst, log),
		Metrics:      m,
	}, log)
	srv := apihttp.NewServer(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		routeService.Run(gctx, cfg.Verification.RouteRefresh)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown failed")
		}
		if err := auditWriter.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("audit queue not fully drained")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// newRevocationStore uses Redis when an address is configured so logouts are
// shared between instances.
func newRevocationStore(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (auth.RevocationStore, func(), error) {
	if cfg.Addr == "" {
		log.Info().Msg("token revocations kept in memory")
		return auth.NewMemoryRevocationStore(), func() {}, nil
	}

	client, err := auth.NewRedisClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Addr).Msg("token revocations kept in redis")
	return auth.NewRedisRevocationStore(client, cfg.Namespace), func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}, nil
}
