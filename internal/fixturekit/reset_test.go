package fixturekit

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacaytion/fixturekit/internal/app"
	"github.com/zacaytion/fixturekit/internal/db"
	"github.com/zacaytion/fixturekit/internal/logging"
)

func newMemApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.NewInMemory(logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

// recordingAdapter wraps an adapter and records lifecycle calls in order.
type recordingAdapter struct {
	db.Adapter

	mu      sync.Mutex
	events  []string
	failOn  string
	failErr error
}

func (r *recordingAdapter) record(event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if event == r.failOn {
		return r.failErr
	}
	return nil
}

func (r *recordingAdapter) AwaitReady(ctx context.Context) error {
	if err := r.record("ready"); err != nil {
		return err
	}
	return r.Adapter.AwaitReady(ctx)
}

func (r *recordingAdapter) DropAll(ctx context.Context) error {
	if err := r.record("drop"); err != nil {
		return err
	}
	return r.Adapter.DropAll(ctx)
}

func (r *recordingAdapter) EnsureIndexes(ctx context.Context, m db.Model) error {
	if err := r.record("ensure:" + m.Name); err != nil {
		return err
	}
	return r.Adapter.EnsureIndexes(ctx, m)
}

type stubApp struct {
	adapter db.Adapter
}

func (s stubApp) Router() http.Handler { return http.NotFoundHandler() }
func (s stubApp) Adapter() db.Adapter { return s.adapter }

func TestResetDatabase_Order(t *testing.T) {
	rec := &recordingAdapter{Adapter: newMemApp(t).Adapter()}
	in := stubApp{adapter: rec}

	out, err := ResetDatabase(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out, "returns the same handle")

	require.Len(t, rec.events, 4)
	assert.Equal(t, []string{"ready", "drop"}, rec.events[:2])

	// Index steps run concurrently, so only their set is fixed.
	ensures := slices.Sorted(slices.Values(rec.events[2:]))
	assert.Equal(t, []string{"ensure:categories", "ensure:widgets"}, ensures)
}

func TestResetDatabase_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		failOn   string
		wantSeen []string
	}{
		{"ready", []string{"ready"}},
		{"drop", []string{"ready", "drop"}},
	}

	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			rec := &recordingAdapter{Adapter: newMemApp(t).Adapter(), failOn: tt.failOn, failErr: boom}

			_, err := ResetDatabase(context.Background(), stubApp{adapter: rec})
			require.ErrorIs(t, err, boom)
			assert.Equal(t, tt.wantSeen, rec.events)
		})
	}

	t.Run("ensure", func(t *testing.T) {
		rec := &recordingAdapter{Adapter: newMemApp(t).Adapter(), failOn: "ensure:widgets", failErr: boom}

		_, err := ResetDatabase(context.Background(), stubApp{adapter: rec})
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "widgets")
	})
}

func TestResetDatabase_Empties(t *testing.T) {
	a := newMemApp(t)
	ctx := context.Background()

	_, err := Seed(ctx, a, "widgets", []db.Document{{"name": "bolt"}, {"name": "nut"}})
	require.NoError(t, err)

	_, err = ResetDatabase(ctx, a)
	require.NoError(t, err)

	for _, m := range a.Adapter().Models() {
		docs, err := a.Adapter().List(ctx, m.Name)
		require.NoError(t, err)
		assert.Empty(t, docs, m.Name)
	}
}

func TestSeed(t *testing.T) {
	a := newMemApp(t)
	ctx := context.Background()

	input := []db.Document{
		{"name": "bolt", "tags": []any{"m3"}},
		{db.IDField: "n1", "name": "nut"},
		{"name": "washer"},
	}

	created, err := Seed(ctx, a, "widgets", input)
	require.NoError(t, err)
	require.Len(t, created, 3)

	for i, doc := range created {
		assert.NotEmpty(t, doc.ID())
		assert.Equal(t, input[i]["name"], doc["name"], "input order is kept")
	}
	assert.Equal(t, "n1", created[1].ID())

	assert.NotContains(t, input[0], db.IDField, "caller documents are not mutated")

	docs, err := a.Adapter().List(ctx, "widgets")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestSeed_Failure(t *testing.T) {
	a := newMemApp(t)

	_, err := Seed(context.Background(), a, "widgets", []db.Document{{"name": "dup"}, {"name": "dup"}})
	require.ErrorIs(t, err, db.ErrDuplicate)

	_, err = Seed(context.Background(), a, "gadgets", []db.Document{{"name": "x"}})
	require.ErrorIs(t, err, db.ErrUnknownResource)
}

// slowAdapter delays every creation except those named failName, which fail at once.
type slowAdapter struct {
	db.Adapter
	failName string
}

func (s slowAdapter) Create(ctx context.Context, resource string, doc db.Document) (db.Document, error) {
	if doc["name"] == s.failName {
		return nil, errCreate
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return s.Adapter.Create(ctx, resource, doc)
}

func TestSeed_FailureLetsOthersFinish(t *testing.T) {
	a := newMemApp(t)
	ctx := context.Background()
	slow := stubApp{adapter: slowAdapter{Adapter: a.Adapter(), failName: "bad"}}

	_, err := Seed(ctx, slow, "widgets", []db.Document{{"name": "bolt"}, {"name": "bad"}, {"name": "nut"}})
	require.ErrorIs(t, err, errCreate)

	docs, err := a.Adapter().List(ctx, "widgets")
	require.NoError(t, err)
	assert.Len(t, docs, 2, "the other documents are still written")
}
