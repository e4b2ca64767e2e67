package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/ludo-backend/internal/auth"
	"github.com/DoyleJ11/ludo-backend/internal/config"
	"github.com/DoyleJ11/ludo-backend/internal/httpapi"
	"github.com/DoyleJ11/ludo-backend/internal/logging"
	"github.com/DoyleJ11/ludo-backend/internal/matchmaker"
	"github.com/DoyleJ11/ludo-backend/internal/server"
	"github.com/DoyleJ11/ludo-backend/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) (err error) {
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore()) }()

	mm := matchmaker.New(ctx, matchmaker.Options{
		JoinTimeout: cfg.JoinTimeout,
		Session: session.Options{
			Rules:       cfg.Rules,
			MoveTimeout: cfg.MoveTimeout,
			MaxDenials:  cfg.MaxDenials,
			TurnPause:   cfg.TurnPause,
		},
	}, logger.Named("matchmaker"))

	game := server.New(auth.NewAuthenticator(store, auth.NewRegistry()), mm, server.Options{
		LoginAttempts: cfg.LoginAttempts,
		LoginTimeout:  cfg.LoginTimeout,
	}, logger.Named("server"))

	ln, err := net.Listen("tcp", cfg.GameAddr())
	if err != nil {
		return err
	}

	// Build the router *with* the matchmaker injected
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(mm, store, game, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return game.ServeTCP(gctx, ln) })
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		select {
		case mm.Inbox() <- matchmaker.Shutdown{}:
		case <-mm.Done():
		}
		<-mm.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	logger.Info("ludo server started",
		zap.Int("game_port", cfg.GamePort),
		zap.Int("track_length", cfg.Rules.TrackLength),
		zap.Int("dice", cfg.Rules.DieFaces),
	)
	return g.Wait()
}

func openStore(cfg config.Config, logger *zap.Logger) (auth.Store, func() error, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, users are kept in memory")
		return auth.NewMemoryStore(), func() error { return nil }, nil
	}
	store, err := auth.OpenGormStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
