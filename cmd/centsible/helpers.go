package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/centsible/centsible/internal/config"
	"github.com/centsible/centsible/internal/rules"
	"github.com/centsible/centsible/internal/storage"
)

// initStorage opens the configured database and runs pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newApplicator wires the rule applicator to storage-backed gateways.
func newApplicator(store *storage.SQLiteStorage) *rules.Applicator {
	gw := storage.NewRuleGateways(store)
	return rules.NewApplicator(gw, gw, gw)
}

// closeStorage closes the store, logging instead of failing the command.
func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}
