package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/cwa-forecast-etl/internal/adapter/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoDocument = errors.New("no document written yet")

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockDocuments map[string][]byte

func (m mockDocuments) Latest(kind string) ([]byte, error) {
	if kind == "broken" {
		return nil, fmt.Errorf("permission denied")
	}
	data, ok := m[kind]
	if !ok {
		return nil, errNoDocument
	}
	return data, nil
}

func newTestServer(readyErr error) *httpadapter.Server {
	docs := mockDocuments{"forecast": []byte(`{"timestamp":1,"source_url":"","cities":{"臺北市":{"weather":"多雲"}}}`)}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, docs, errNoDocument, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503BeforeFirstSuccessfulRun(t *testing.T) {
	srv := newTestServer(fmt.Errorf("no successful run yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no successful run yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDocumentsEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		wantCode int
		wantBody string
	}{
		{name: "latest forecast", kind: "forecast", wantCode: http.StatusOK, wantBody: "臺北市"},
		{name: "not written yet", kind: "marine", wantCode: http.StatusNotFound, wantBody: "no document written yet"},
		{name: "read failure", kind: "broken", wantCode: http.StatusInternalServerError, wantBody: "read failed"},
	}

	srv := newTestServer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/documents/"+tt.kind, nil)

			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestDocumentsEndpointDisabledWithoutStore(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, nil, nil, slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/documents/forecast", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
