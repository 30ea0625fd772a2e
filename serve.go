package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Almirante-Ming/Rose/api"
	"github.com/Almirante-Ming/Rose/config"
	"github.com/Almirante-Ming/Rose/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// serve runs the development backend until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := cfg.CheckServer(); err != nil {
		return err
	}

	s, closeStore, err := openStore(ctx, cfg, logger)

	if err != nil {
		return err
	}

	defer closeStore()

	if len(cfg.AdminEmail) > 0 {
		admin, err := store.EnsureAdmin(ctx, s, cfg.AdminEmail, cfg.AdminPassword)

		if err != nil {
			return err
		}

		logger.Info("admin account ready", zap.Int64("person_id", admin.ID))
	}

	router := api.NewRouter(s, api.Config{JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL}, logger)

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)

	go func() {
		logger.Info("server started", zap.String("addr", cfg.ServerAddr))
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}

	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// openStore connects to Postgres and migrates it when DATABASE_URL is set,
// and falls back to the in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, func(), error) {
	if len(cfg.DatabaseURL) == 0 {
		logger.Warn("DATABASE_URL not set, data will not survive a restart")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)

	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := store.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, err
	}

	logger.Info("using postgres store")

	return store.NewPostgres(pool), pool.Close, nil
}
