package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStats struct {
	counts map[string]int
	err    error
}

func (s stubStats) Stats(context.Context) (map[string]int, error) {
	return s.counts, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_Health(t *testing.T) {
	s := New(":0", "file", stubStats{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.HTTPServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Stats(t *testing.T) {
	t.Run("aggregates scope counts", func(t *testing.T) {
		stats := stubStats{counts: map[string]int{"10": 2, "20": 3}}
		s := New(":0", "sqlite", stats, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		rec := httptest.NewRecorder()
		s.HTTPServer.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Backend    string         `json:"backend"`
			Scopes     map[string]int `json:"scopes"`
			TotalRules int            `json:"total_rules"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "sqlite", body.Backend)
		assert.Equal(t, 5, body.TotalRules)
		assert.Equal(t, map[string]int{"10": 2, "20": 3}, body.Scopes)
	})

	t.Run("storage error maps to 500", func(t *testing.T) {
		s := New(":0", "file", stubStats{err: errors.New("disk gone")}, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		rec := httptest.NewRecorder()
		s.HTTPServer.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServer_UnknownRoute(t *testing.T) {
	s := New(":0", "file", stubStats{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	s.HTTPServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
