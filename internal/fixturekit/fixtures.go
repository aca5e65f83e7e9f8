package fixturekit

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zacaytion/fixturekit/internal/db"
)

// Loader decodes the contents of one fixture file into a JSON-like value.
type Loader func(data []byte) (any, error)

// JSONLoader decodes a .json fixture.
func JSONLoader(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// YAMLLoader decodes a .yaml or .yml fixture. YAML lets fixture files carry comments.
func YAMLLoader(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return stringKeys(v), nil
}

// stringKeys rewrites map[any]any nodes, which yaml.v3 produces for
// non-string keys, into map[string]any.
func stringKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, inner := range v {
			v[k] = stringKeys(inner)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[fmt.Sprint(k)] = stringKeys(inner)
		}
		return out
	case []any:
		for i, inner := range v {
			v[i] = stringKeys(inner)
		}
		return v
	default:
		return v
	}
}

// DefaultLoaders returns the built-in loaders keyed by lower-case extension.
func DefaultLoaders() map[string]Loader {
	return map[string]Loader{
		".json": JSONLoader,
		".yaml": YAMLLoader,
		".yml":  YAMLLoader,
	}
}

// Fixture is the decoded content of one fixture file. It remembers whether the
// file held a single document or a list.
type Fixture struct {
	Name string
	docs []db.Document
	list bool
}

// IsList reports whether the file held a list of documents.
func (f Fixture) IsList() bool { return f.list }

// Len returns the number of documents in the fixture.
func (f Fixture) Len() int { return len(f.docs) }

// Docs returns the documents as fresh top-level maps; nested values are shared.
func (f Fixture) Docs() []db.Document {
	out := make([]db.Document, len(f.docs))
	for i, doc := range f.docs {
		out[i] = maps.Clone(doc)
	}
	return out
}

// Value returns the fixture as loaded: a db.Document for a single-document
// file, a []db.Document for a list.
func (f Fixture) Value() any {
	docs := f.Docs()
	if !f.list && len(docs) == 1 {
		return docs[0]
	}
	return docs
}

// Fixtures maps base file names to their decoded contents.
type Fixtures map[string]Fixture

// Names returns the fixture names in sorted order.
func (fx Fixtures) Names() []string {
	return slices.Sorted(maps.Keys(fx))
}

// Get returns the named fixture.
func (fx Fixtures) Get(name string) (Fixture, error) {
	f, ok := fx[name]
	if !ok {
		return Fixture{}, fmt.Errorf("%w: %q", ErrUnknownFixture, name)
	}
	return f, nil
}

// LoadFixtures reads every fixture file in dir with the default loaders. It
// blocks on filesystem reads and is meant for test setup.
func LoadFixtures(dir string) (Fixtures, error) {
	fx, err := LoadFixturesFS(os.DirFS(dir), ".", nil)
	if err != nil {
		return nil, fmt.Errorf("load fixtures from %s: %w", dir, err)
	}
	return fx, nil
}

// LoadFixturesFS reads every fixture file in dir within fsys, keyed by base
// name with the extension stripped. Dot-files and sub-directories are skipped.
// A nil loaders map uses DefaultLoaders.
func LoadFixturesFS(fsys fs.FS, dir string, loaders map[string]Loader) (Fixtures, error) {
	if loaders == nil {
		loaders = DefaultLoaders()
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	fixtures := make(Fixtures, len(entries))
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || strings.HasPrefix(fileName, ".") {
			continue
		}

		ext := strings.ToLower(path.Ext(fileName))
		load, ok := loaders[ext]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoLoader, fileName)
		}

		name := strings.TrimSuffix(fileName, path.Ext(fileName))
		if _, dup := fixtures[name]; dup {
			return nil, fmt.Errorf("%w: %q (%s)", ErrDuplicateFixture, name, fileName)
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, fileName))
		if err != nil {
			return nil, err
		}
		value, err := load(data)
		if err != nil {
			return nil, fmt.Errorf("decode fixture %s: %w", fileName, err)
		}
		fixture, err := toFixture(name, value)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", fileName, err)
		}
		fixtures[name] = fixture
	}
	return fixtures, nil
}

func toFixture(name string, value any) (Fixture, error) {
	switch v := value.(type) {
	case map[string]any:
		return Fixture{Name: name, docs: []db.Document{v}}, nil
	case []any:
		docs := make([]db.Document, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return Fixture{}, fmt.Errorf("%w: item %d is %T", ErrFixtureShape, i, item)
			}
			docs = append(docs, m)
		}
		return Fixture{Name: name, docs: docs, list: true}, nil
	default:
		return Fixture{}, fmt.Errorf("%w: got %T", ErrFixtureShape, value)
	}
}
