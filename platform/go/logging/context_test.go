package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zap.InfoLevel)
	base := zap.New(core)

	router := chi.NewRouter()
	router.Use(RequestLogger(base))
	router.Get("/tenants/{tenantID}", func(w http.ResponseWriter, r *http.Request) {
		// The request-scoped logger must be reachable from the handler.
		_, ok := FromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/tenants/123", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := observed.FilterMessage("request completed").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	require.Equal(t, "/tenants/{tenantID}", fields["route"])
	require.Equal(t, int64(http.StatusOK), fields["status"])
	require.Equal(t, "/tenants/123", fields["path"])
}

func TestFromRequestFallsBack(t *testing.T) {
	t.Parallel()

	fallback := zap.NewNop()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Same(t, fallback, FromRequest(req, fallback))
}
