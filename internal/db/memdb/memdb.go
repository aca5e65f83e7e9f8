// Package memdb is a db.Adapter over an in-memory SQLite database. Each model
// is a table of JSON documents with json_extract expression indexes, so unique
// fields, immutable models and insertion order behave as in the Postgres
// adapter without a database server.
package memdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/zacaytion/fixturekit/internal/db"
)

// Store keeps every model's documents in one private in-memory database.
type Store struct {
	sqlDB  *sql.DB
	models *db.Registry
	logger *slog.Logger
}

var _ db.Adapter = (*Store)(nil)

// New opens an empty database and creates a table for each model. A nil
// logger uses slog.Default. Close releases the database.
func New(logger *slog.Logger, models ...db.Model) (*Store, error) {
	registry, err := db.NewRegistry(models...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database, so keep exactly one.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	s := &Store{
		sqlDB:  sqlDB,
		models: registry,
		logger: logger.With("component", "db.memdb"),
	}
	if err := db.EnsureAll(context.Background(), s); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Close discards the database and everything in it.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Models lists the registered models in registration order.
func (s *Store) Models() []db.Model {
	return s.models.List()
}

// AwaitReady pings the database once; it fails only when ctx is done.
func (s *Store) AwaitReady(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("await database ready: %w", err)
	}
	return nil
}

// DropAll drops every table and with it every index.
func (s *Store) DropAll(ctx context.Context) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drop all: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		"SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return fmt.Errorf("drop all: list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("drop all: list tables: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("drop all: list tables: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("drop all: list tables: %w", err)
	}

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+quote(table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop all: %w", err)
	}

	s.logger.DebugContext(ctx, "dropped all tables", "tables", len(tables))
	return nil
}

// EnsureIndexes creates the model's table and its field indexes if missing.
func (s *Store) EnsureIndexes(ctx context.Context, m db.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := s.models.Lookup(m.Name); err != nil {
		return err
	}

	ddl := "CREATE TABLE IF NOT EXISTS " + quote(m.Name) + " (" +
		"seq INTEGER PRIMARY KEY AUTOINCREMENT, " +
		"_id TEXT NOT NULL UNIQUE, " +
		"doc TEXT NOT NULL CHECK (json_valid(doc)), " +
		"created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP)"
	if _, err := s.sqlDB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", m.Name, err)
	}

	for _, ix := range m.Indexes {
		kind := "INDEX"
		if ix.Unique {
			kind = "UNIQUE INDEX"
		}
		// Field names are validated identifiers, so the path literal needs no escaping.
		stmt := fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (json_extract(doc, '$.%s'))",
			kind, quote(m.IndexName(ix)), quote(m.Name), ix.Field)
		if _, err := s.sqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index %s: %w", m.IndexName(ix), err)
		}
	}
	return nil
}

// Create inserts doc, assigning a UUID _id when it has none.
func (s *Store) Create(ctx context.Context, resource string, doc db.Document) (db.Document, error) {
	m, err := s.models.Lookup(resource)
	if err != nil {
		return nil, err
	}

	doc = doc.WithID()
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", resource, err)
	}

	var raw string
	err = s.sqlDB.QueryRowContext(ctx,
		"INSERT INTO "+quote(m.Name)+" (_id, doc) VALUES (?, ?) RETURNING doc",
		doc.ID(), string(payload),
	).Scan(&raw)
	if err != nil {
		return nil, mapError(err, resource, doc.ID())
	}
	return decode(raw)
}

// Get returns the document with the given id.
func (s *Store) Get(ctx context.Context, resource, id string) (db.Document, error) {
	m, err := s.models.Lookup(resource)
	if err != nil {
		return nil, err
	}

	var raw string
	err = s.sqlDB.QueryRowContext(ctx, "SELECT doc FROM "+quote(m.Name)+" WHERE _id = ?", id).Scan(&raw)
	if err != nil {
		return nil, mapError(err, resource, id)
	}
	return decode(raw)
}

// List returns every document of resource in insertion order.
func (s *Store) List(ctx context.Context, resource string) ([]db.Document, error) {
	m, err := s.models.Lookup(resource)
	if err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT doc FROM "+quote(m.Name)+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}
	defer rows.Close()

	docs := []db.Document{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list %s: %w", resource, err)
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}
	return docs, nil
}

// Replace overwrites the document with the given id.
func (s *Store) Replace(ctx context.Context, resource, id string, doc db.Document) (db.Document, error) {
	m, err := s.models.Lookup(resource)
	if err != nil {
		return nil, err
	}
	if m.Immutable {
		return nil, fmt.Errorf("%w: replace %s/%s", db.ErrImmutable, resource, id)
	}

	doc = doc.WithID()
	doc[db.IDField] = id
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", resource, err)
	}

	var raw string
	err = s.sqlDB.QueryRowContext(ctx,
		"UPDATE "+quote(m.Name)+" SET doc = ? WHERE _id = ? RETURNING doc",
		string(payload), id,
	).Scan(&raw)
	if err != nil {
		return nil, mapError(err, resource, id)
	}
	return decode(raw)
}

// Delete removes the document with the given id.
func (s *Store) Delete(ctx context.Context, resource, id string) error {
	m, err := s.models.Lookup(resource)
	if err != nil {
		return err
	}
	if m.Immutable {
		return fmt.Errorf("%w: delete %s/%s", db.ErrImmutable, resource, id)
	}

	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM "+quote(m.Name)+" WHERE _id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", resource, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", resource, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", db.ErrNotFound, resource, id)
	}
	return nil
}

// quote wraps a validated identifier in double quotes.
func quote(name string) string {
	return `"` + name + `"`
}

func mapError(err error, resource, id string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s/%s", db.ErrNotFound, resource, id)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s/%s: %v", db.ErrDuplicate, resource, id, err)
	default:
		return fmt.Errorf("%s/%s: %w", resource, id, err)
	}
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch code := sqliteErr.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case code&0xff == sqlite3.SQLITE_CONSTRAINT:
		// Without extended result codes only the message tells constraints apart.
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	default:
		return false
	}
}

func decode(raw string) (db.Document, error) {
	var doc db.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
