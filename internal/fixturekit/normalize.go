package fixturekit

import (
	"fmt"

	"github.com/zacaytion/fixturekit/internal/db"
)

// Fixture document keys rewritten by NormalizeFixtureDocs.
const (
	fixtureIDKey    = "id"
	fixtureLinksKey = "links"
)

// NormalizeFixtureDocs turns fixture documents into storage documents. A single
// document becomes a one-element list. In each document a non-nil "id" is
// renamed to "_id", and every entry of a "links" object is copied to the root
// before "links" is removed. Link entries win over root keys of the same name.
//
// The input is never mutated: each returned document is a new top-level map.
// v may be a Fixture, a db.Document or map[string]any, or a slice of either
// ([]db.Document, []map[string]any, []any).
func NormalizeFixtureDocs(v any) ([]db.Document, error) {
	switch v := v.(type) {
	case Fixture:
		return normalizeAll(v.docs), nil
	case *Fixture:
		return normalizeAll(v.docs), nil
	case db.Document:
		return []db.Document{normalizeDoc(v)}, nil
	case map[string]any:
		return []db.Document{normalizeDoc(v)}, nil
	case []db.Document:
		return normalizeAll(v), nil
	case []map[string]any:
		out := make([]db.Document, len(v))
		for i, doc := range v {
			out[i] = normalizeDoc(doc)
		}
		return out, nil
	case []any:
		out := make([]db.Document, len(v))
		for i, item := range v {
			switch doc := item.(type) {
			case db.Document:
				out[i] = normalizeDoc(doc)
			case map[string]any:
				out[i] = normalizeDoc(doc)
			default:
				return nil, fmt.Errorf("%w: item %d is %T", ErrUnsupportedDocs, i, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedDocs, v)
	}
}

func normalizeAll(docs []db.Document) []db.Document {
	out := make([]db.Document, len(docs))
	for i, doc := range docs {
		out[i] = normalizeDoc(doc)
	}
	return out
}

func normalizeDoc(in map[string]any) db.Document {
	out := make(db.Document, len(in))
	for k, v := range in {
		out[k] = v
	}

	if id, ok := out[fixtureIDKey]; ok && id != nil {
		out[db.IDField] = id
		delete(out, fixtureIDKey)
	}

	if links, ok := asObject(out[fixtureLinksKey]); ok {
		delete(out, fixtureLinksKey)
		for k, v := range links {
			out[k] = v
		}
	}
	return out
}

func asObject(v any) (map[string]any, bool) {
	switch v := v.(type) {
	case map[string]any:
		return v, true
	case db.Document:
		return v, true
	default:
		return nil, false
	}
}
