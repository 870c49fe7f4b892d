package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/AnriTapel/logitrades/internal/account"
	"github.com/AnriTapel/logitrades/internal/auth"
	"github.com/AnriTapel/logitrades/internal/config"
	"github.com/AnriTapel/logitrades/internal/gateway"
	"github.com/AnriTapel/logitrades/internal/journal"
	"github.com/AnriTapel/logitrades/internal/metrics"
	"github.com/AnriTapel/logitrades/internal/notify"
	pgRepo "github.com/AnriTapel/logitrades/internal/repository/postgres"
	redisRepo "github.com/AnriTapel/logitrades/internal/repository/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pgRepo.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected")

	version, err := pgRepo.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "version", version)

	redisClient, err := redisRepo.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("redis connected")

	userRepo := pgRepo.NewUserRepo(db)
	tokenRepo := pgRepo.NewTokenRepo(db)
	tradeRepo := pgRepo.NewTradeRepo(db)
	importLock := redisRepo.NewImportLock(redisClient, cfg.ImportLockTTL, logger)
	eventBus := redisRepo.NewEventBus(redisClient)

	m := metrics.New(prometheus.NewRegistry())
	jwtSvc := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mailer := notify.NewMailer(cfg.SMTP, cfg.FromEmail, cfg.FrontendURL, logger)

	accounts := account.NewService(userRepo, tokenRepo, jwtSvc, mailer, logger)
	trades := journal.NewService(tradeRepo, importLock, eventBus, m, logger)

	hub := gateway.NewHub(eventBus, logger)
	handlers := gateway.NewHandlers(accounts, trades, gateway.HandlerOptions{
		CookieSecure:   cfg.CookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)
	router := gateway.NewRouter(handlers, hub, jwtSvc, gateway.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		AuthLimiter:    gateway.NewRateLimiter(cfg.Auth.RateRPS, cfg.Auth.RateBurst, logger),
		Metrics:        m.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return mailer.Run(gctx) })
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
