// Package testutil starts disposable PostgreSQL containers for integration tests.
//
// Usage:
//
//	ctx := context.Background()
//	pg, err := testutil.NewPostgresContainer(ctx)
//	if err != nil { ... }
//	defer pg.Terminate(ctx)
//
//	cfg, err := pg.PGConfig(ctx)
//	pool, err := db.NewPoolFromConfig(ctx, cfg)
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/zacaytion/fixturekit/internal/config"
)

// Container settings. The database name ends in _test so DropAll accepts it.
const (
	ImageName = "postgres:18-alpine"
	Database  = "fixturekit_test"
	Username  = "postgres"
	Password  = "postgres"
	Schema    = "app"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	*postgres.PostgresContainer
}

// NewPostgresContainer starts a PostgreSQL container and waits for it to accept connections.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		ImageName,
		postgres.WithDatabase(Database),
		postgres.WithUsername(Username),
		postgres.WithPassword(Password),
		postgres.WithSQLDriver("pgx"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	return &PostgresContainer{PostgresContainer: container}, nil
}

// PGConfig returns a pg config section pointing at the container.
func (p *PostgresContainer) PGConfig(ctx context.Context) (config.PGConfig, error) {
	host, err := p.Host(ctx)
	if err != nil {
		return config.PGConfig{}, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := p.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return config.PGConfig{}, fmt.Errorf("failed to get container port: %w", err)
	}

	return config.PGConfig{
		Host:              host,
		Port:              port.Int(),
		Database:          Database,
		SSLMode:           "disable",
		User:              Username,
		Password:          Password,
		Schema:            Schema,
		ReadyTimeout:      30 * time.Second,
		MaxConns:          5,
		MinConns:          0,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}, nil
}

// Terminate stops and removes the container.
func (p *PostgresContainer) Terminate(_ context.Context) error {
	return testcontainers.TerminateContainer(p.PostgresContainer)
}
