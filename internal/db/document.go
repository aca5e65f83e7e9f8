package db

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"
)

// IDField is the key holding a document's primary key.
const IDField = "_id"

// Document is a schemaless record as stored in a resource collection.
type Document map[string]any

// ID returns the document's _id as a string, or "" when it is unset.
func (d Document) ID() string {
	switch v := d[IDField].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a deep copy of the document. Nested maps and slices are copied
// so mutating the clone never reaches the original.
func (d Document) Clone() (Document, error) {
	if d == nil {
		return nil, nil
	}
	out, err := copystructure.Copy(map[string]any(d))
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	return Document(out.(map[string]any)), nil
}

// WithID returns a shallow copy of d whose _id is set, generating one when absent.
func (d Document) WithID() Document {
	out := make(Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	if out.ID() == "" {
		out[IDField] = uuid.NewString()
	} else {
		out[IDField] = out.ID()
	}
	return out
}
