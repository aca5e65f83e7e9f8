//go:build integration

package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zacaytion/fixturekit/internal/config"
	"github.com/zacaytion/fixturekit/internal/db"
	dbtestutil "github.com/zacaytion/fixturekit/internal/db/testutil"
)

// suite is the container and pool shared by one test package.
type suite struct {
	mu        sync.Mutex
	container *dbtestutil.PostgresContainer
	pool      *pgxpool.Pool
	cfg       config.PGConfig
}

var current suite

// RunIntegrationTests starts a PostgreSQL container, runs m against it and
// terminates it. Call it from TestMain in packages that need a database:
//
//	func TestMain(m *testing.M) {
//	    os.Exit(testutil.RunIntegrationTests(m, testutil.SkipIfNoDocker()))
//	}
func RunIntegrationTests(m *testing.M, opts ...Option) int {
	o := applyOptions(opts)
	ctx := context.Background()

	container, err := dbtestutil.NewPostgresContainer(ctx)
	if err != nil {
		if o.skipIfNoDocker {
			// TestMain cannot skip, so report success but say loudly that nothing ran.
			fmt.Fprintf(os.Stderr, "\nSKIPPED: integration tests need Docker or Podman: %v\n"+
				"No tests were executed. This is NOT a passing test run.\n\n", err)
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to create postgres container: %v\n", err)
		return 1
	}
	defer current.stop(ctx)

	if err := current.start(ctx, container, o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return m.Run()
}

func (s *suite) start(ctx context.Context, container *dbtestutil.PostgresContainer, o runOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.container = container

	if o.snapshot {
		if err := container.Snapshot(ctx); err != nil {
			return fmt.Errorf("failed to create snapshot: %w", err)
		}
	}

	cfg, err := container.PGConfig(ctx)
	if err != nil {
		return err
	}
	pool, err := db.NewPoolFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	s.cfg = cfg
	s.pool = pool
	return nil
}

func (s *suite) stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	if s.container != nil {
		if err := s.container.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
		}
		s.container = nil
	}
}

// GetPool returns the shared connection pool.
func GetPool() *pgxpool.Pool {
	current.mu.Lock()
	defer current.mu.Unlock()
	return current.pool
}

// GetConfig returns the pg config section pointing at the shared container.
func GetConfig() config.PGConfig {
	current.mu.Lock()
	defer current.mu.Unlock()
	return current.cfg
}

// Restore returns the database to the snapshot taken by WithSnapshot and
// replaces the shared pool. Tests using it must not run in parallel, and
// anything holding the previous pool must be rebuilt.
func Restore(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	current.mu.Lock()
	defer current.mu.Unlock()

	if current.container == nil {
		t.Fatal("Restore called but no container is running")
	}

	// Restoring drops the database, which fails while pooled connections are open.
	if current.pool != nil {
		current.pool.Close()
		current.pool = nil
	}
	if err := current.container.Restore(ctx); err != nil {
		t.Fatalf("failed to restore snapshot: %v", err)
	}

	pool, err := db.NewPoolFromConfig(ctx, current.cfg)
	if err != nil {
		t.Fatalf("failed to recreate pool after restore: %v", err)
	}
	current.pool = pool
}
