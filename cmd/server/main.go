package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"converge/internal/config"
	"converge/internal/db"
	"converge/internal/handler"
	"converge/internal/logging"
	"converge/internal/notify"
	"converge/internal/repository"
	"converge/internal/router"
	"converge/internal/service"
	"converge/internal/settings"
	"converge/internal/stats"
	"converge/internal/timer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Location()
	if err != nil {
		return err
	}
	firstWeekday, err := stats.ParseWeekday(cfg.WeekStart)
	if err != nil {
		return fmt.Errorf("parse WEEK_START: %w", err)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(ctx, database, db.Migrations())
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", "applied", applied)
	}

	// A malformed settings file still yields a usable store with defaults.
	settingsStore, _ := settings.Load(cfg.SettingsPath, logger.With("component", "settings"))

	sessionRepo := repository.NewSessionRepository(database)
	snapshotRepo := repository.NewSnapshotRepository(database)
	statsStore := stats.New(ctx, sessionRepo, stats.Options{
		Calendar: stats.Calendar{Location: location, FirstWeekday: firstWeekday},
		Logger:   logger.With("component", "stats"),
	})

	engine := timer.New(settingsStore, timer.Options{
		Notifier: notify.NewLogNotifier(logger),
		Recorder: statsStore,
		Sink:     snapshotRepo,
		Logger:   logger.With("component", "timer"),
	})
	defer engine.Close()

	authService := service.NewAuthService(cfg.PairingPassphraseHash, cfg.JWTSecret, cfg.TokenTTL)
	if !authService.Enabled() {
		logger.Warn("pairing disabled; API is open to any local client")
	}
	timerService := service.NewTimerService(engine, statsStore, settingsStore, snapshotRepo, nil, logger.With("component", "service"))

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(authService, router.Handlers{
			Auth:     handler.NewAuthHandler(authService),
			Timer:    handler.NewTimerHandler(timerService),
			Settings: handler.NewSettingsHandler(timerService),
			Stats:    handler.NewStatsHandler(timerService),
		}, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("daemon listening", "addr", httpServer.Addr, "sessions", len(statsStore.Sessions()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		// Closing the engine ends open event streams so Shutdown can finish.
		engine.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
