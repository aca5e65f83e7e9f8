package fixturekit

import "errors"

// Errors returned while loading and normalising fixtures. Check them with errors.Is.
var (
	// ErrNoLoader indicates a fixture file whose extension has no registered loader.
	ErrNoLoader = errors.New("no loader registered for fixture file")

	// ErrDuplicateFixture indicates two files that share a base name.
	ErrDuplicateFixture = errors.New("duplicate fixture name")

	// ErrFixtureShape indicates a fixture that is neither an object nor a list of objects.
	ErrFixtureShape = errors.New("fixture must be an object or a list of objects")

	// ErrUnknownFixture indicates a lookup of a fixture name that was not loaded.
	ErrUnknownFixture = errors.New("unknown fixture")

	// ErrUnsupportedDocs indicates a value NormalizeFixtureDocs cannot interpret as documents.
	ErrUnsupportedDocs = errors.New("unsupported fixture documents")
)
