// Package app assembles the resource API and its storage adapter into one
// handle that servers, seed commands and fixture tests share.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zacaytion/fixturekit/internal/api"
	"github.com/zacaytion/fixturekit/internal/config"
	"github.com/zacaytion/fixturekit/internal/db"
	"github.com/zacaytion/fixturekit/internal/db/memdb"
	"github.com/zacaytion/fixturekit/internal/logging"
)

// App is a constructed application: an HTTP router over a storage adapter.
type App struct {
	adapter db.Adapter
	router  http.Handler
	close   func()
}

// New wires the API router onto adapter.
func New(adapter db.Adapter, logger *slog.Logger) *App {
	return &App{
		adapter: adapter,
		router:  api.NewRouter(adapter, logging.Component(logger, "api")),
		close:   func() {},
	}
}

// NewInMemory returns an App backed by an empty in-memory SQLite store. Close
// discards it.
func NewInMemory(logger *slog.Logger) (*App, error) {
	store, err := memdb.New(logger, api.Models()...)
	if err != nil {
		return nil, err
	}
	a := New(store, logger)
	a.close = func() { _ = store.Close() }
	return a, nil
}

// Open connects to Postgres, waits for it, and ensures the schema, tables and
// indexes exist. Close releases the pool.
func Open(ctx context.Context, cfg config.PGConfig, logger *slog.Logger) (*App, error) {
	pool, err := db.NewPoolFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a, err := FromPool(ctx, pool, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.close = pool.Close
	return a, nil
}

// FromPool is Open over an existing pool. The caller keeps ownership of pool.
func FromPool(ctx context.Context, pool db.Pool, cfg config.PGConfig, logger *slog.Logger) (*App, error) {
	opts := db.OptionsFromConfig(cfg)
	opts.Logger = logger
	pg, err := db.NewPostgres(pool, api.Models(), opts)
	if err != nil {
		return nil, err
	}

	if err := pg.AwaitReady(ctx); err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err := db.EnsureAll(ctx, pg); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return New(pg, logger), nil
}

// Router returns the HTTP handler serving the API.
func (a *App) Router() http.Handler { return a.router }

// Adapter returns the storage adapter behind the router.
func (a *App) Adapter() db.Adapter { return a.adapter }

// Close releases the pool opened by Open or the store created by NewInMemory.
// It is a no-op for other constructors.
func (a *App) Close() { a.close() }
