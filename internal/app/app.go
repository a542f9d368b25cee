// Package app wires configuration, storage, and services into a running
// authvault instance.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"authvault/internal/auth"
	"authvault/internal/config"
	"authvault/internal/cryptox"
	"authvault/internal/locks"
	"authvault/internal/logging"
	"authvault/internal/ratelimit"
	"authvault/internal/secrets"
	"authvault/internal/store"
)

type App struct {
	Auth    *auth.Service
	Secrets *secrets.Service
	Records *store.RecordStore

	logger logging.Logger
	db     *sql.DB
}

// New opens the local database, applies migrations, and constructs the
// service graph. All cross-cutting state (lock registry, rate limiter)
// lives on the returned App; nothing is a package-level global.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := store.OpenSQLite(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	kv := store.NewSQLiteKV(db)
	records := store.NewRecordStore(kv, locks.NewRegistry(), cfg.KeyPrefix)
	hasher := cryptox.NewHasher(cfg.KDFIterations)
	limiter := ratelimit.New(cfg.RateLimit())

	authSvc := auth.NewService(records, hasher, limiter, kv, logger, auth.Config{
		BootstrapAdminSecret: cfg.BootstrapAdminSecret,
	})
	secretsSvc := secrets.NewService(records, logger)

	return &App{
		Auth:    authSvc,
		Secrets: secretsSvc,
		Records: records,
		logger:  logger,
		db:      db,
	}, nil
}

func (a *App) Logger() logging.Logger {
	return a.logger
}

func (a *App) Close() error {
	return a.db.Close()
}
