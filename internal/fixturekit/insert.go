package fixturekit

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zacaytion/fixturekit/internal/db"
)

// Creator creates one document in a resource collection. *db.Collection implements it.
type Creator interface {
	Create(ctx context.Context, doc db.Document) (db.Document, error)
}

// InsertDocs creates every document through c concurrently and returns how many
// were created. Every creation runs to completion even when one fails; the
// call then fails with the first error and the written documents stay written.
func InsertDocs(ctx context.Context, c Creator, docs []db.Document) (int, error) {
	var created atomic.Int64

	var g errgroup.Group
	for i, doc := range docs {
		g.Go(func() error {
			if _, err := c.Create(ctx, doc); err != nil {
				return fmt.Errorf("insert document %d (%q): %w", i, doc.ID(), err)
			}
			created.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(created.Load()), nil
}
