package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/minisocial/internal/middleware"
	"github.com/anonto42/minisocial/internal/realtime"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/anonto42/minisocial/internal/router"
	"github.com/anonto42/minisocial/internal/session"
	"github.com/anonto42/minisocial/pkg/config"
	"github.com/anonto42/minisocial/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetupLogging(cfg.LogLevel, cfg.IsProduction())

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

// run owns every resource, so deferred cleanup happens on all exit paths.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize databases: %w", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when run returns

	posts := repositories.NewMongoPostRepository(db.MongoDB)
	if err := posts.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}

	// Firebase login is optional
	var verifier firebase.Verifier
	if app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath); err != nil {
		log.WithError(err).Warn("Firebase login disabled")
	} else {
		verifier = app
	}

	hub := realtime.NewHub(0)
	broker := realtime.NewBroker(db.Redis, hub)
	if err := broker.Start(ctx); err != nil {
		return fmt.Errorf("start realtime broker: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	config.SetupMiddleware(e, cfg)

	err = router.SetupRoutes(e, router.Options{
		Postgres:  db.Postgres,
		Posts:     posts,
		Hub:       hub,
		Publisher: broker,
		Tokens:    middleware.NewTokens(cfg.JWTSecret, cfg.SessionTTL),
		Sessions:  session.New(db.Redis),
		Verifier:  verifier,
	})
	if err != nil {
		return fmt.Errorf("set up routes: %w", err)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("metrics listening on :%s", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	runErr := waitForStop(ctx, serverErr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Shutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("metrics shutdown")
	}
	return runErr
}

// waitForStop blocks until a shutdown signal or a listener failure. It returns
// the failure, or nil for a signal.
func waitForStop(ctx context.Context, serverErr <-chan error) error {
	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-serverErr:
		log.WithError(err).Error("server stopped, shutting down")
		return err
	}
}
