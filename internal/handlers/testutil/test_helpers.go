package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/endorhq/endor/internal/api"
	iauth "github.com/endorhq/endor/internal/auth"
	"github.com/endorhq/endor/internal/database"
	sharedtestutil "github.com/endorhq/endor/internal/database/testutil"
	"github.com/endorhq/endor/internal/integrations"
	"github.com/endorhq/endor/internal/middleware"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/internal/vault"
	"github.com/endorhq/endor/pkg/response"
)

const testPassword = "correct-horse-battery"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Services api.Services
}

// EnvOption customises NewEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	providers *integrations.Registry
	ping      func(ctx context.Context) error
}

// WithProviders registers integration providers on the environment.
func WithProviders(providers ...integrations.Provider) EnvOption {
	return func(cfg *envConfig) {
		cfg.providers = integrations.NewRegistry(providers...)
	}
}

// WithPing replaces the database health check.
func WithPing(ping func(ctx context.Context) error) EnvOption {
	return func(cfg *envConfig) {
		cfg.ping = ping
	}
}

// NewEnv provisions a fresh handler test environment with migrations and the tool
// catalogue applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := envConfig{
		ping: func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	gateway, err := store.New(db)
	require.NoError(t, err)

	cipher, err := vault.NewCipher([]byte("0123456789abcdef0123456789abcdef"),
		vault.WithKDFParams(vault.KDFParams{Time: 1, Memory: 64, Threads: 1}))
	require.NoError(t, err)

	svc, err := api.BuildServices(gateway, cipher, cfg.providers)
	require.NoError(t, err)

	router, err := api.NewRouter(svc, api.Options{
		JWT:           jwtSvc,
		Ping:          cfg.ping,
		RateStore:     middleware.NewMemoryRateStore(),
		AuthRateLimit: 1000,
		MetricsPath:   "/metrics",
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Services: svc,
	}
}

// UserPayload captures the user fields returned by the API.
type UserPayload struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Session bundles the JSON response from the register and login endpoints.
type Session struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserPayload `json:"user"`
}

// Register creates an account through POST /api/auth/register. An empty username
// picks a random one.
func (e *Env) Register(username string) Session {
	e.T.Helper()

	if username == "" {
		username = "user-" + uuid.NewString()[:8]
	}
	payload := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	}

	w := e.Request(http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var session Session
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &session)
	require.NotEmpty(e.T, session.AccessToken)
	require.Equal(e.T, username, session.User.Username)
	return session
}

// Login authenticates with the password used by Register.
func (e *Env) Login(identifier string) Session {
	e.T.Helper()

	payload := map[string]string{
		"identifier": identifier,
		"password":   testPassword,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var session Session
	DecodeInto(e.T, resp.Data, &session)
	require.NotEmpty(e.T, session.AccessToken)
	require.True(e.T, session.ExpiresAt.After(time.Now()))
	return session
}

// Password returns the password accounts created by Register use.
func Password() string { return testPassword }

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and
// the bearer token automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// ErrorCode returns the error code of a failed response.
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success, w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}
