package fixturekit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Request sends method to endpoint on the app's router and returns the
// recorded response without checking it. body may be nil, a []byte, a string
// or any JSON-marshalable value; non-nil bodies are sent as application/json.
func (k *Kit) Request(t testing.TB, method, endpoint string, body any) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequestWithContext(t.Context(), method, endpoint, encodeBody(t, body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	k.app.Router().ServeHTTP(rec, req)

	k.logger.Debug("fixture request", "method", method, "endpoint", endpoint, "status", rec.Code)
	return rec
}

// Expect sends the request and fails the test unless the response has status.
func (k *Kit) Expect(t testing.TB, method, endpoint string, body any, status int) *httptest.ResponseRecorder {
	t.Helper()

	rec := k.Request(t, method, endpoint, body)
	require.Equalf(t, status, rec.Code, "%s %s returned %d, want %d; body: %s",
		method, endpoint, rec.Code, status, rec.Body.String())
	return rec
}

// Get asserts GET endpoint returns 200.
func (k *Kit) Get(t testing.TB, endpoint string) *httptest.ResponseRecorder {
	t.Helper()
	return k.Expect(t, http.MethodGet, endpoint, nil, http.StatusOK)
}

// Put asserts PUT endpoint returns 200.
func (k *Kit) Put(t testing.TB, endpoint string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return k.Expect(t, http.MethodPut, endpoint, body, http.StatusOK)
}

// Post asserts POST endpoint returns 201.
func (k *Kit) Post(t testing.TB, endpoint string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return k.Expect(t, http.MethodPost, endpoint, body, http.StatusCreated)
}

// Delete asserts DELETE endpoint returns 204.
func (k *Kit) Delete(t testing.TB, endpoint string) *httptest.ResponseRecorder {
	t.Helper()
	return k.Expect(t, http.MethodDelete, endpoint, nil, http.StatusNoContent)
}

// ExpectImmutablePut asserts PUT endpoint is rejected, with 400 unless overridden.
func (k *Kit) ExpectImmutablePut(t testing.TB, endpoint string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return k.Expect(t, http.MethodPut, endpoint, body, k.immutable[http.MethodPut])
}

// ExpectImmutablePost asserts POST endpoint is rejected, with 405 unless overridden.
func (k *Kit) ExpectImmutablePost(t testing.TB, endpoint string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return k.Expect(t, http.MethodPost, endpoint, body, k.immutable[http.MethodPost])
}

// ExpectImmutableDelete asserts DELETE endpoint is rejected, with 500 unless overridden.
func (k *Kit) ExpectImmutableDelete(t testing.TB, endpoint string) *httptest.ResponseRecorder {
	t.Helper()
	return k.Expect(t, http.MethodDelete, endpoint, nil, k.immutable[http.MethodDelete])
}

// DecodeJSON unmarshals the recorded body into v or fails the test.
func DecodeJSON(t testing.TB, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoErrorf(t, json.Unmarshal(rec.Body.Bytes(), v), "decode body %q", rec.Body.String())
}

func encodeBody(t testing.TB, body any) io.Reader {
	t.Helper()

	switch b := body.(type) {
	case nil:
		return nil
	case []byte:
		return bytes.NewReader(b)
	case string:
		return bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err, "encode request body")
		return bytes.NewReader(data)
	}
}
