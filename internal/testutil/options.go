//go:build integration

// Package testutil runs integration tests against a shared PostgreSQL container.
package testutil

// Option adjusts how RunIntegrationTests manages the container.
type Option func(*runOptions)

type runOptions struct {
	snapshot       bool
	skipIfNoDocker bool
}

// WithSnapshot snapshots the empty database so Restore can return to it.
func WithSnapshot() Option {
	return func(o *runOptions) { o.snapshot = true }
}

// SkipIfNoDocker exits cleanly, with a loud notice, when no container runtime is available.
func SkipIfNoDocker() Option {
	return func(o *runOptions) { o.skipIfNoDocker = true }
}

func applyOptions(opts []Option) runOptions {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
