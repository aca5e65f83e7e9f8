package fixturekit

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/zacaytion/fixturekit/internal/db"
)

// App is the application under test: an HTTP router and the storage adapter
// behind it.
type App interface {
	Router() http.Handler
	Adapter() db.Adapter
}

// ResetDatabase waits for the adapter to be ready, drops the whole database,
// then recreates the indexes of every registered model concurrently. It returns
// app unchanged so calls can be chained. Point it only at a disposable test
// database.
func ResetDatabase(ctx context.Context, app App) (App, error) {
	adapter := app.Adapter()

	if err := adapter.AwaitReady(ctx); err != nil {
		return nil, fmt.Errorf("reset database: %w", err)
	}
	if err := adapter.DropAll(ctx); err != nil {
		return nil, fmt.Errorf("reset database: drop: %w", err)
	}

	var g errgroup.Group
	for _, m := range adapter.Models() {
		g.Go(func() error {
			if err := adapter.EnsureIndexes(ctx, m); err != nil {
				return fmt.Errorf("reset database: ensure indexes for %s: %w", m.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return app, nil
}

// Seed deep-copies docs and creates each copy in resource concurrently. The
// created documents are returned in input order. A failed creation does not
// stop the others; the first error is returned once all have finished.
// Caller data is never mutated.
func Seed(ctx context.Context, app App, resource string, docs []db.Document) ([]db.Document, error) {
	copies := make([]db.Document, len(docs))
	for i, doc := range docs {
		clone, err := doc.Clone()
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", resource, err)
		}
		copies[i] = clone
	}

	adapter := app.Adapter()
	created := make([]db.Document, len(copies))

	var g errgroup.Group
	for i, doc := range copies {
		g.Go(func() error {
			out, err := adapter.Create(ctx, resource, doc)
			if err != nil {
				return fmt.Errorf("seed %s document %d: %w", resource, i, err)
			}
			created[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return created, nil
}
