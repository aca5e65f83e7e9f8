package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zacaytion/fixturekit/internal/db"
	"github.com/zacaytion/fixturekit/internal/db/memdb"
)

type testSetup struct {
	store  *memdb.Store
	router http.Handler
}

func setupTest(t *testing.T) *testSetup {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := memdb.New(logger, Models()...)
	if err != nil {
		t.Fatalf("memdb.New() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return &testSetup{store: store, router: NewRouter(store, logger)}
}

func (s *testSetup) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testSetup) seed(t *testing.T, resource string, doc db.Document) db.Document {
	t.Helper()
	created, err := s.store.Create(context.Background(), resource, doc)
	if err != nil {
		t.Fatalf("seed %s: %v", resource, err)
	}
	return created
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["status"] != "ok" {
		t.Errorf("status = %v, want ok", got["status"])
	}
}

func TestWidgets_Lifecycle(t *testing.T) {
	s := setupTest(t)

	rec := s.do(t, http.MethodPost, "/widgets", map[string]any{"name": "  bolt ", "size": 3, "tags": []string{"m3"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /widgets = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	created := decode[WidgetDTO](t, rec)
	if created.ID == "" || created.Name != "bolt" || created.Size != 3 {
		t.Fatalf("created = %+v", created)
	}

	rec = s.do(t, http.MethodGet, "/widgets/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /widgets/{id} = %d, want 200", rec.Code)
	}

	rec = s.do(t, http.MethodPut, "/widgets/"+created.ID, map[string]any{"name": "washer", "color": "red"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /widgets/{id} = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	replaced := decode[WidgetDTO](t, rec)
	if replaced.ID != created.ID || replaced.Name != "washer" || replaced.Color != "red" || len(replaced.Tags) != 0 {
		t.Errorf("replaced = %+v", replaced)
	}

	rec = s.do(t, http.MethodGet, "/widgets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /widgets = %d, want 200", rec.Code)
	}
	if list := decode[[]WidgetDTO](t, rec); len(list) != 1 {
		t.Errorf("list = %+v, want one widget", list)
	}

	rec = s.do(t, http.MethodDelete, "/widgets/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /widgets/{id} = %d, want 204", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/widgets/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete = %d, want 404", rec.Code)
	}
}

func TestWidgets_Errors(t *testing.T) {
	s := setupTest(t)
	s.seed(t, ResourceWidgets, db.Document{db.IDField: "w1", "name": "Caf\u00e9"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		// "Cafe" plus a combining acute accent is the decomposed spelling of the seeded name.
		{"duplicate after normalisation", http.MethodPost, "/widgets", map[string]any{"name": "Cafe\u0301"}, http.StatusConflict},
		{"blank name", http.MethodPost, "/widgets", map[string]any{"name": "   "}, http.StatusUnprocessableEntity},
		{"missing name", http.MethodPost, "/widgets", map[string]any{"color": "red"}, http.StatusUnprocessableEntity},
		{"negative size", http.MethodPost, "/widgets", map[string]any{"name": "x", "size": -1}, http.StatusUnprocessableEntity},
		{"get missing", http.MethodGet, "/widgets/nope", nil, http.StatusNotFound},
		{"replace missing", http.MethodPut, "/widgets/nope", map[string]any{"name": "x"}, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/widgets/nope", nil, http.StatusNotFound},
		{"unrouted verb", http.MethodPatch, "/widgets/w1", map[string]any{"name": "x"}, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCategories_Immutable(t *testing.T) {
	s := setupTest(t)
	s.seed(t, ResourceCategories, db.Document{db.IDField: "c1", "slug": "tools", "name": "Tools"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"list", http.MethodGet, "/categories", nil, http.StatusOK},
		{"get", http.MethodGet, "/categories/c1", nil, http.StatusOK},
		{"get missing", http.MethodGet, "/categories/nope", nil, http.StatusNotFound},
		{"put", http.MethodPut, "/categories/c1", map[string]any{"name": "Hardware"}, http.StatusBadRequest},
		{"put with arbitrary body", http.MethodPut, "/categories/c1", []int{1, 2}, http.StatusBadRequest},
		{"post", http.MethodPost, "/categories", map[string]any{"slug": "new"}, http.StatusMethodNotAllowed},
		{"delete", http.MethodDelete, "/categories/c1", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	// The refused delete left the category in place.
	if _, err := s.store.Get(context.Background(), ResourceCategories, "c1"); err != nil {
		t.Errorf("category gone after refused delete: %v", err)
	}
}

func TestCategories_Get(t *testing.T) {
	s := setupTest(t)
	s.seed(t, ResourceCategories, db.Document{db.IDField: "c2", "slug": "bolts", "name": "Bolts", "parent": "c1"})

	rec := s.do(t, http.MethodGet, "/categories/c2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET = %d", rec.Code)
	}
	got := decode[CategoryDTO](t, rec)
	want := CategoryDTO{ID: "c2", Slug: "bolts", Name: "Bolts", Parent: "c1"}
	if got != want {
		t.Errorf("category = %+v, want %+v", got, want)
	}
}

func TestDecodeDTO(t *testing.T) {
	doc := db.Document{
		db.IDField: "w1",
		"name":     "bolt",
		"size":     float64(4),
		"tags":     []any{"a", "b"},
		"category": 7,
		"extra":    map[string]any{"ignored": true},
	}

	got, err := decodeDTO[WidgetDTO](doc)
	if err != nil {
		t.Fatalf("decodeDTO() error = %v", err)
	}
	if got.ID != "w1" || got.Size != 4 || len(got.Tags) != 2 || got.Category != "7" {
		t.Errorf("decodeDTO() = %+v", got)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := normalizeName(" Cafe\u0301 "); got != "Caf\u00e9" {
		t.Errorf("normalizeName() = %+q, want composed form", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.1.1.1:1", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.3"}, "1.1.1.1:1", "10.0.0.3"},
		{"remote addr", nil, "1.1.1.1:1", "1.1.1.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := getClientIP(r); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := getClientIP(nil); got != "unknown" {
		t.Errorf("getClientIP(nil) = %q", got)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	out := buf.String()
	for _, want := range []string{`"msg":"http request"`, `"status":418`, `"path":"/brew"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %s", out, want)
		}
	}
}
