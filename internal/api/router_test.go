package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/endorhq/endor/internal/auth"
	"github.com/endorhq/endor/internal/database/testutil"
	"github.com/endorhq/endor/internal/middleware"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/internal/vault"
)

func newTestServices(t *testing.T) Services {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	gateway, err := store.New(db)
	require.NoError(t, err)

	cipher, err := vault.NewCipher([]byte("router-test-master-key"),
		vault.WithKDFParams(vault.KDFParams{Time: 1, Memory: 64, Threads: 1}))
	require.NoError(t, err)

	svc, err := BuildServices(gateway, cipher, nil)
	require.NoError(t, err)
	return svc
}

func newTestOptions(t *testing.T) Options {
	t.Helper()

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-test-secret", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	return Options{
		JWT:  jwt,
		Ping: func(context.Context) error { return nil },
	}
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestServices(t)
	opts := newTestOptions(t)

	_, err := NewRouter(Services{}, opts)
	require.Error(t, err)

	noJWT := opts
	noJWT.JWT = nil
	_, err = NewRouter(svc, noJWT)
	require.Error(t, err)

	noPing := opts
	noPing.Ping = nil
	_, err = NewRouter(svc, noPing)
	require.Error(t, err)
}

func TestBuildServicesRequiresStore(t *testing.T) {
	_, err := BuildServices(nil, nil, nil)
	require.Error(t, err)
}

func TestRouterRateLimitsAuthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	opts := newTestOptions(t)
	opts.RateStore = middleware.NewMemoryRateStore()
	opts.AuthRateLimit = 2
	opts.AuthRateWindow = time.Minute

	router, err := NewRouter(newTestServices(t), opts)
	require.NoError(t, err)

	login := func() *httptest.ResponseRecorder {
		body := bytes.NewBufferString(`{"identifier":"nobody","password":"whatever"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusUnauthorized, login().Code)
	require.Equal(t, http.StatusUnauthorized, login().Code)

	limited := login()
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.NotEmpty(t, limited.Header().Get("Retry-After"))

	// other routes are not limited
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRouterMetricsAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	opts := newTestOptions(t)
	router, err := NewRouter(newTestServices(t), opts)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code, "metrics are off without a path")

	opts.MetricsPath = "/internal/metrics"
	router, err = NewRouter(newTestServices(t), opts)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "endor_api_latency_seconds")
}
