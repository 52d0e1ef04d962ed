package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loomworks/agencydesk/domains/maintenance/be/service"
	"github.com/loomworks/agencydesk/platform/go/persistence"
)

type fakeSweeper struct {
	result persistence.CleanupResult
	calls  int
}

func (f *fakeSweeper) Sweep(_ context.Context, _ time.Duration) (persistence.CleanupResult, error) {
	f.calls++
	return f.result, nil
}

func newRouter(sweeper *fakeSweeper) chi.Router {
	h := New(service.New(sweeper), "sweep-secret", zap.NewNop())
	r := chi.NewRouter()
	r.Route("/internal", h.Routes)
	return r
}

func TestCleanupRequiresSecret(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{}
	router := newRouter(sweeper)

	// No header at all.
	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong secret.
	req = httptest.NewRequest(http.MethodPost, "/internal/cleanup", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	require.Zero(t, sweeper.calls)
}

func TestCleanupReturnsCounts(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{result: persistence.CleanupResult{
		OTPCodes:       3,
		RateLimits:     7,
		PortalSessions: 2,
	}}
	router := newRouter(sweeper)

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup", nil)
	req.Header.Set("Authorization", "Bearer sweep-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, sweeper.calls)

	var body map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, int64(3), body["otpCodes"])
	require.Equal(t, int64(7), body["rateLimits"])
	require.Equal(t, int64(2), body["portalSessions"])
}
