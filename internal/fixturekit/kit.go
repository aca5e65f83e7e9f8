// Package fixturekit provides test setup and HTTP assertion helpers for the
// resource API: loading fixture files, resetting and seeding the database,
// and issuing requests against the application's router with status checks.
//
// Usage:
//
//	a, _ := app.NewInMemory(nil)
//	kit := fixturekit.New(a, fixturekit.WithFixturesDir("testdata/fixtures"))
//	if err := kit.ResetDatabase(ctx); err != nil { ... }
//	if _, err := kit.InsertFixture(ctx, "widgets", "widgets"); err != nil { ... }
//	kit.Post(t, "/widgets", map[string]any{"name": "a"})
//	kit.ExpectImmutablePost(t, "/categories", map[string]any{"slug": "x"})
package fixturekit

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/zacaytion/fixturekit/internal/config"
	"github.com/zacaytion/fixturekit/internal/db"
	"github.com/zacaytion/fixturekit/internal/logging"
)

// Defaults used by New.
const (
	DefaultHost        = "localhost"
	DefaultFixturesDir = "fixtures"
)

// Kit binds the helpers to one application under test.
type Kit struct {
	app         App
	host        string
	port        int
	fixturesFS  fs.FS
	fixturesDir string
	loaders     map[string]Loader
	immutable   map[string]int
	logger      *slog.Logger
	uri         func(string) string
}

// Option configures a Kit.
type Option func(*Kit)

// WithPort sets the port URIs are built against.
func WithPort(port int) Option {
	return func(k *Kit) { k.port = port }
}

// WithHost sets the host URIs are built against.
func WithHost(host string) Option {
	return func(k *Kit) { k.host = host }
}

// WithFixturesDir reads fixtures from dir on disk.
func WithFixturesDir(dir string) Option {
	return func(k *Kit) {
		k.fixturesFS = nil
		k.fixturesDir = dir
	}
}

// WithFixturesFS reads fixtures from dir within fsys, typically an embed.FS.
func WithFixturesFS(fsys fs.FS, dir string) Option {
	return func(k *Kit) {
		k.fixturesFS = fsys
		k.fixturesDir = dir
	}
}

// WithLoader registers a loader for files with extension ext (".toml", say).
func WithLoader(ext string, load Loader) Option {
	return func(k *Kit) {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		k.loaders[ext] = load
	}
}

// WithLogger sets the logger for request and setup tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kit) { k.logger = logger }
}

// WithImmutableStatus overrides the status the ExpectImmutable helper for
// method asserts.
func WithImmutableStatus(method string, status int) Option {
	return func(k *Kit) { k.immutable[strings.ToUpper(method)] = status }
}

// New returns a Kit for app. Without options it targets localhost on
// config.DefaultPort and reads ./fixtures with the default loaders.
func New(app App, opts ...Option) *Kit {
	k := &Kit{
		app:         app,
		host:        DefaultHost,
		port:        config.DefaultPort,
		fixturesDir: DefaultFixturesDir,
		loaders:     DefaultLoaders(),
		immutable: map[string]int{
			http.MethodPut:    http.StatusBadRequest,
			http.MethodPost:   http.StatusMethodNotAllowed,
			http.MethodDelete: http.StatusInternalServerError,
		},
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.logger == nil {
		k.logger = logging.Discard()
	}
	k.uri = URIFunc(k.host, k.port)
	return k
}

// App returns the application under test.
func (k *Kit) App() App { return k.app }

// URI returns the absolute URL of path on the kit's host and port.
func (k *Kit) URI(path string) string { return k.uri(path) }

// Fixtures loads the fixtures directory. Each call reads the files again.
func (k *Kit) Fixtures() (Fixtures, error) {
	if k.fixturesFS != nil {
		return LoadFixturesFS(k.fixturesFS, k.fixturesDir, k.loaders)
	}
	fx, err := LoadFixturesFS(os.DirFS(k.fixturesDir), ".", k.loaders)
	if err != nil {
		return nil, fmt.Errorf("load fixtures from %s: %w", k.fixturesDir, err)
	}
	return fx, nil
}

// ResetDatabase empties the database and recreates every model's indexes.
func (k *Kit) ResetDatabase(ctx context.Context) error {
	if _, err := ResetDatabase(ctx, k.app); err != nil {
		return err
	}
	k.logger.DebugContext(ctx, "database reset", "models", len(k.app.Adapter().Models()))
	return nil
}

// Seed creates copies of docs in resource and returns the created documents.
func (k *Kit) Seed(ctx context.Context, resource string, docs []db.Document) ([]db.Document, error) {
	return Seed(ctx, k.app, resource, docs)
}

// InsertFixture loads the named fixture, normalises it and inserts it into
// resource. It returns the number of documents created.
func (k *Kit) InsertFixture(ctx context.Context, resource, name string) (int, error) {
	fx, err := k.Fixtures()
	if err != nil {
		return 0, err
	}
	fixture, err := fx.Get(name)
	if err != nil {
		return 0, err
	}
	docs, err := NormalizeFixtureDocs(fixture)
	if err != nil {
		return 0, err
	}

	n, err := InsertDocs(ctx, db.CollectionOf(k.app.Adapter(), resource), docs)
	if err != nil {
		return 0, fmt.Errorf("insert fixture %s into %s: %w", name, resource, err)
	}
	k.logger.DebugContext(ctx, "fixture inserted", "fixture", name, "resource", resource, "count", n)
	return n, nil
}
