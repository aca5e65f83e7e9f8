package db

import "context"

// Store is the document API the HTTP handlers use.
type Store interface {
	Create(ctx context.Context, resource string, doc Document) (Document, error)
	Get(ctx context.Context, resource, id string) (Document, error)
	List(ctx context.Context, resource string) ([]Document, error)
	Replace(ctx context.Context, resource, id string, doc Document) (Document, error)
	Delete(ctx context.Context, resource, id string) error
}

// Adapter is a Store plus the lifecycle operations used when preparing a
// database for tests: readiness, a full drop, and per-model index creation.
type Adapter interface {
	Store

	// AwaitReady blocks until the backing database accepts queries.
	AwaitReady(ctx context.Context) error

	// DropAll removes every document, table and index.
	DropAll(ctx context.Context) error

	// Models lists the registered models in registration order.
	Models() []Model

	// EnsureIndexes creates the model's collection and indexes if missing.
	EnsureIndexes(ctx context.Context, m Model) error
}

// EnsureAll runs EnsureIndexes for every registered model, in order.
func EnsureAll(ctx context.Context, a Adapter) error {
	for _, m := range a.Models() {
		if err := a.EnsureIndexes(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Collection binds a Store to one resource.
type Collection struct {
	store    Store
	resource string
}

// CollectionOf returns the collection for resource in store.
func CollectionOf(store Store, resource string) *Collection {
	return &Collection{store: store, resource: resource}
}

// Resource returns the bound resource name.
func (c *Collection) Resource() string { return c.resource }

// Create inserts doc into the collection.
func (c *Collection) Create(ctx context.Context, doc Document) (Document, error) {
	return c.store.Create(ctx, c.resource, doc)
}

// Get fetches a document by id.
func (c *Collection) Get(ctx context.Context, id string) (Document, error) {
	return c.store.Get(ctx, c.resource, id)
}

// List returns every document in the collection.
func (c *Collection) List(ctx context.Context) ([]Document, error) {
	return c.store.List(ctx, c.resource)
}
