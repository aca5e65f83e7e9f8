package db

import (
	"fmt"
	"slices"

	"github.com/zacaytion/fixturekit/internal/validation"
)

// Model registers a resource with the store.
type Model struct {
	// Name is the resource name; it doubles as the table name.
	Name string `validate:"required,identifier"`

	// Indexes are expression indexes on top-level document fields.
	Indexes []Index `validate:"dive"`

	// Immutable models reject deletes and replacements once created.
	Immutable bool
}

// Index is an index over one top-level document field.
type Index struct {
	Field  string `validate:"required,identifier"`
	Unique bool
}

// IndexName returns the name of the index on field for this model.
func (m Model) IndexName(ix Index) string {
	return fmt.Sprintf("%s_%s_idx", m.Name, ix.Field)
}

// Validate checks the model name and index fields are usable as identifiers.
func (m Model) Validate() error {
	if err := validation.Validate(m); err != nil {
		return fmt.Errorf("model %q: %w", m.Name, err)
	}
	return nil
}

// UniqueFields returns the fields covered by unique indexes.
func (m Model) UniqueFields() []string {
	var fields []string
	for _, ix := range m.Indexes {
		if ix.Unique {
			fields = append(fields, ix.Field)
		}
	}
	return fields
}

// Registry indexes models by name and preserves registration order.
type Registry struct {
	order  []string
	models map[string]Model
}

// NewRegistry validates models and indexes them. Names must be unique.
func NewRegistry(models ...Model) (*Registry, error) {
	r := &Registry{models: make(map[string]Model, len(models))}
	for _, m := range models {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, ok := r.models[m.Name]; ok {
			return nil, fmt.Errorf("model %q registered twice", m.Name)
		}
		r.order = append(r.order, m.Name)
		r.models[m.Name] = m
	}
	return r, nil
}

// Lookup returns the model registered for resource.
func (r *Registry) Lookup(resource string) (Model, error) {
	m, ok := r.models[resource]
	if !ok {
		return Model{}, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	return m, nil
}

// List returns the models in registration order.
func (r *Registry) List() []Model {
	out := make([]Model, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return slices.Clip(out)
}
