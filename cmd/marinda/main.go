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

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/chore"
	"github.com/dukerupert/marinda/internal/config"
	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/ledger"
	"github.com/dukerupert/marinda/internal/logging"
	"github.com/dukerupert/marinda/internal/push"
	"github.com/dukerupert/marinda/internal/realtime"
	"github.com/dukerupert/marinda/internal/registry"
	"github.com/dukerupert/marinda/internal/server"
	"github.com/dukerupert/marinda/internal/store"
	"github.com/dukerupert/marinda/internal/sweeper"
	"github.com/dukerupert/marinda/internal/telemetry"
	"github.com/dukerupert/marinda/internal/wishlist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "marinda: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	familyStore := store.NewFamilyStore(db)
	memberStore := store.NewFamilyMemberStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)

	choreEngine := chore.NewEngine(store.NewChoreStore(db), store.NewChoreTemplateStore(db), memberStore, settingsStore, logger)
	wishlistEngine := wishlist.NewEngine(store.NewWishlistStore(db), memberStore, settingsStore, logger)
	ledgerService := ledger.NewService(store.NewLedgerStore(db), memberStore, logger)

	hub := realtime.NewHub(logger.With("component", "websocket"))
	var bus realtime.Publisher = hub
	if cfg.RedisURL != "" {
		relay, err := realtime.NewRedisRelay(cfg.RedisURL, cfg.RedisChannel, hub, logger)
		if err != nil {
			return fmt.Errorf("redis relay: %w", err)
		}
		defer relay.Close()
		go relay.Run(ctx)
		bus = relay
		logger.Info("redis relay enabled", "channel", cfg.RedisChannel)
	}

	reg := registry.New(choreEngine, wishlistEngine, ledgerService, familyStore, bus, logger)

	var pushSvc *push.Service
	var dispatcher *push.Dispatcher
	if cfg.PushEnabled() {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)
		dispatcher = push.NewDispatcher(pushSvc, pushStore, memberStore, logger)
		dispatcher.Start(ctx)
		reg.SetNotifier(dispatcher)
	} else {
		logger.Info("push notifications disabled, no VAPID keys configured")
	}

	sw, err := sweeper.New(reg, cfg.SweepSchedule, cfg.ReconcileSchedule, logger)
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	sw.Start()

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	srv := server.New(db, reg, hub, tokens, pushSvc, cfg, logger)
	go srv.RateLimiter().StartCleanup(ctx, 5*time.Minute)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("marinda listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	sw.Stop(shutdownCtx)
	if dispatcher != nil {
		dispatcher.Stop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", "error", err)
	}
	logger.Info("stopped")
	return nil
}
