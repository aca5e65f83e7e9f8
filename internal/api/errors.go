package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zacaytion/fixturekit/internal/db"
)

// storeError maps a store error onto an HTTP error. Anything the store did not
// classify is logged and reported as a 500.
func storeError(ctx context.Context, logger *slog.Logger, operation string, err error) error {
	switch {
	case db.IsNotFound(err):
		return huma.Error404NotFound("Document not found")
	case errors.Is(err, db.ErrDuplicate):
		return huma.Error409Conflict("Document conflicts with an existing one")
	case errors.Is(err, db.ErrImmutable):
		logger.WarnContext(ctx, "mutation refused by store", "operation", operation, "error", err)
		return huma.Error500InternalServerError("Resource is immutable")
	default:
		LogDBError(ctx, logger, operation, err)
		return huma.Error500InternalServerError("Database error")
	}
}
