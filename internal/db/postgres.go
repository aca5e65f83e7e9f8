package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"github.com/zacaytion/fixturekit/internal/config"
	"github.com/zacaytion/fixturekit/internal/validation"
)

// Pool is the subset of *pgxpool.Pool the adapter needs. pgxmock pools satisfy it too.
type Pool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresOptions configures a Postgres adapter.
type PostgresOptions struct {
	// Database is the connected database name, checked by DropAll.
	Database string

	// Schema holds every resource table.
	Schema string

	// AllowDrop lets DropAll run on databases not named *_test.
	AllowDrop bool

	// ReadyTimeout bounds AwaitReady; PollInterval spaces its pings.
	ReadyTimeout time.Duration
	PollInterval time.Duration

	Logger *slog.Logger
}

// OptionsFromConfig derives adapter options from the pg config section.
func OptionsFromConfig(cfg config.PGConfig) PostgresOptions {
	return PostgresOptions{
		Database:     cfg.Database,
		Schema:       cfg.Schema,
		AllowDrop:    cfg.AllowDrop,
		ReadyTimeout: cfg.ReadyTimeout,
	}
}

// Postgres stores each resource as a table of jsonb documents keyed by _id.
type Postgres struct {
	pool   Pool
	models *Registry
	opts   PostgresOptions
	logger *slog.Logger
}

var _ Adapter = (*Postgres)(nil)

// NewPostgres returns an adapter over pool for the given models.
func NewPostgres(pool Pool, models []Model, opts PostgresOptions) (*Postgres, error) {
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if !validation.IsIdentifier(opts.Schema) {
		return nil, fmt.Errorf("invalid schema name %q", opts.Schema)
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	registry, err := NewRegistry(models...)
	if err != nil {
		return nil, err
	}

	return &Postgres{
		pool:   pool,
		models: registry,
		opts:   opts,
		logger: opts.Logger.With("component", "db.postgres"),
	}, nil
}

// Models lists the registered models in registration order.
func (p *Postgres) Models() []Model {
	return p.models.List()
}

// AwaitReady pings the server until it answers or ReadyTimeout elapses.
func (p *Postgres) AwaitReady(ctx context.Context) error {
	backoff := retry.WithMaxDuration(p.opts.ReadyTimeout, retry.NewConstant(p.opts.PollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.pool.Ping(ctx); err != nil {
			p.logger.DebugContext(ctx, "database not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("await database ready: %w", err)
	}
	return nil
}

// EnsureSchema creates the adapter's schema if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+p.schema()); err != nil {
		return fmt.Errorf("create schema %s: %w", p.opts.Schema, err)
	}
	return nil
}

// DropAll drops the schema with every table and index in it, then recreates it empty.
// It refuses to run unless the database name ends in _test or AllowDrop is set.
func (p *Postgres) DropAll(ctx context.Context) error {
	if !p.opts.AllowDrop && !strings.HasSuffix(p.opts.Database, "_test") {
		return fmt.Errorf("%w: %q", ErrUnsafeDrop, p.opts.Database)
	}

	if _, err := p.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+p.schema()+" CASCADE"); err != nil {
		return fmt.Errorf("drop schema %s: %w", p.opts.Schema, err)
	}
	if _, err := p.pool.Exec(ctx, "CREATE SCHEMA "+p.schema()); err != nil {
		return fmt.Errorf("create schema %s: %w", p.opts.Schema, err)
	}

	p.logger.InfoContext(ctx, "dropped database schema", "database", p.opts.Database, "schema", p.opts.Schema)
	return nil
}

// EnsureIndexes creates the model's table and its field indexes if missing.
func (p *Postgres) EnsureIndexes(ctx context.Context, m Model) error {
	if err := m.Validate(); err != nil {
		return err
	}

	table := p.table(m.Name)
	ddl := "CREATE TABLE IF NOT EXISTS " + table + " (" +
		"_id text PRIMARY KEY, " +
		"seq bigserial NOT NULL, " +
		"doc jsonb NOT NULL, " +
		"created_at timestamptz NOT NULL DEFAULT now())"
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", m.Name, err)
	}

	for _, ix := range m.Indexes {
		if _, err := p.pool.Exec(ctx, p.indexDDL(m, ix)); err != nil {
			return fmt.Errorf("create index %s: %w", m.IndexName(ix), err)
		}
	}

	p.logger.DebugContext(ctx, "ensured indexes", "model", m.Name, "indexes", len(m.Indexes))
	return nil
}

func (p *Postgres) indexDDL(m Model, ix Index) string {
	kind := "INDEX"
	if ix.Unique {
		kind = "UNIQUE INDEX"
	}
	// Field names are validated identifiers, so the literal needs no escaping.
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s ((doc->>'%s'))",
		kind, pgx.Identifier{m.IndexName(ix)}.Sanitize(), p.table(m.Name), ix.Field)
}

// Create inserts doc, assigning a UUID _id when it has none.
func (p *Postgres) Create(ctx context.Context, resource string, doc Document) (Document, error) {
	m, err := p.models.Lookup(resource)
	if err != nil {
		return nil, err
	}

	doc = doc.WithID()
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", resource, err)
	}

	var raw []byte
	err = p.pool.QueryRow(ctx,
		"INSERT INTO "+p.table(m.Name)+" (_id, doc) VALUES ($1, $2) RETURNING doc",
		doc.ID(), payload,
	).Scan(&raw)
	if err != nil {
		return nil, p.mapError(err, resource, doc.ID())
	}
	return decodeDocument(raw)
}

// Get returns the document with the given id.
func (p *Postgres) Get(ctx context.Context, resource, id string) (Document, error) {
	m, err := p.models.Lookup(resource)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = p.pool.QueryRow(ctx, "SELECT doc FROM "+p.table(m.Name)+" WHERE _id = $1", id).Scan(&raw)
	if err != nil {
		return nil, p.mapError(err, resource, id)
	}
	return decodeDocument(raw)
}

// List returns every document of resource in insertion order.
func (p *Postgres) List(ctx context.Context, resource string) ([]Document, error) {
	m, err := p.models.Lookup(resource)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, "SELECT doc FROM "+p.table(m.Name)+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}
	raws, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}

	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Replace overwrites the document with the given id.
func (p *Postgres) Replace(ctx context.Context, resource, id string, doc Document) (Document, error) {
	m, err := p.models.Lookup(resource)
	if err != nil {
		return nil, err
	}
	if m.Immutable {
		return nil, fmt.Errorf("%w: replace %s/%s", ErrImmutable, resource, id)
	}

	doc = doc.WithID()
	doc[IDField] = id
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", resource, err)
	}

	var raw []byte
	err = p.pool.QueryRow(ctx,
		"UPDATE "+p.table(m.Name)+" SET doc = $2 WHERE _id = $1 RETURNING doc",
		id, payload,
	).Scan(&raw)
	if err != nil {
		return nil, p.mapError(err, resource, id)
	}
	return decodeDocument(raw)
}

// Delete removes the document with the given id.
func (p *Postgres) Delete(ctx context.Context, resource, id string) error {
	m, err := p.models.Lookup(resource)
	if err != nil {
		return err
	}
	if m.Immutable {
		return fmt.Errorf("%w: delete %s/%s", ErrImmutable, resource, id)
	}

	tag, err := p.pool.Exec(ctx, "DELETE FROM "+p.table(m.Name)+" WHERE _id = $1", id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", resource, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, resource, id)
	}
	return nil
}

func (p *Postgres) schema() string {
	return pgx.Identifier{p.opts.Schema}.Sanitize()
}

func (p *Postgres) table(name string) string {
	return pgx.Identifier{p.opts.Schema, name}.Sanitize()
}

func (p *Postgres) mapError(err error, resource, id string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %s/%s", ErrNotFound, resource, id)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s/%s: %v", ErrDuplicate, resource, id, err)
	default:
		return fmt.Errorf("%s/%s: %w", resource, id, err)
	}
}

func decodeDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
