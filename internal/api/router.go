package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/zacaytion/fixturekit/internal/db"
)

// HealthOutput is the response for the health check.
type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// NewRouter builds the HTTP handler for the API, wrapped in request logging.
func NewRouter(store db.Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	humaAPI := humago.New(mux, huma.DefaultConfig("fixturekit API", "1.0.0"))
	RegisterRoutes(humaAPI, store, logger)

	return LoggingMiddleware(logger)(mux)
}

// RegisterRoutes registers all API routes.
func RegisterRoutes(humaAPI huma.API, store db.Store, logger *slog.Logger) {
	huma.Get(humaAPI, "/health", func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})

	NewWidgetHandler(store, logger).RegisterRoutes(humaAPI)
	NewCategoryHandler(store, logger).RegisterRoutes(humaAPI)

	logger.Debug("routes registered")
}
