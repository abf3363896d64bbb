package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealth_Liveness(t *testing.T) {
	h := NewHealthHandler(nil)
	rr := httptest.NewRecorder()
	h.Liveness(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", decodeBody(t, rr)["status"])
}

func TestHealth_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("no reachable servers") }

	t.Run("all healthy", func(t *testing.T) {
		h := NewHealthHandler(map[string]Check{"mongo": ok, "redis": ok})
		rr := httptest.NewRecorder()
		h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		require.Equal(t, "healthy", body["status"])
		require.Equal(t, map[string]any{"mongo": "healthy", "redis": "healthy"}, body["checks"])
	})

	t.Run("one down", func(t *testing.T) {
		h := NewHealthHandler(map[string]Check{"mongo": down, "redis": ok})
		rr := httptest.NewRecorder()
		h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		body := decodeBody(t, rr)
		require.Equal(t, "unhealthy", body["status"])
		require.Equal(t, "unhealthy: no reachable servers", body["checks"].(map[string]any)["mongo"])
	})
}
