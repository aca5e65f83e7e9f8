package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/zacaytion/fixturekit/internal/api"
	"github.com/zacaytion/fixturekit/internal/config"
	"github.com/zacaytion/fixturekit/internal/logging"
)

func TestNewInMemory(t *testing.T) {
	a, err := NewInMemory(logging.Discard())
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	defer a.Close()

	if got := len(a.Adapter().Models()); got != len(api.Models()) {
		t.Errorf("Models() = %d, want %d", got, len(api.Models()))
	}

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
}

func TestFromPool_EnsuresSchema(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("pgxmock.NewPool() error = %v", err)
	}
	defer mock.Close()

	created := pgxmock.NewResult("CREATE", 0)
	mock.ExpectPing()
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "app"`).WillReturnResult(created)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "app"."categories" (_id text PRIMARY KEY, seq bigserial NOT NULL, doc jsonb NOT NULL, created_at timestamptz NOT NULL DEFAULT now())`).
		WillReturnResult(created)
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS "categories_slug_idx" ON "app"."categories" ((doc->>'slug'))`).
		WillReturnResult(created)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "app"."widgets" (_id text PRIMARY KEY, seq bigserial NOT NULL, doc jsonb NOT NULL, created_at timestamptz NOT NULL DEFAULT now())`).
		WillReturnResult(created)
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS "widgets_name_idx" ON "app"."widgets" ((doc->>'name'))`).
		WillReturnResult(created)
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "widgets_category_idx" ON "app"."widgets" ((doc->>'category'))`).
		WillReturnResult(created)

	cfg := config.PGConfig{Database: "fixturekit_test", Schema: "app"}
	a, err := FromPool(context.Background(), mock, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("FromPool() error = %v", err)
	}
	defer a.Close()

	if a.Router() == nil || a.Adapter() == nil {
		t.Fatal("FromPool() returned an incomplete app")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
