package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"gho_123","token_type":"bearer","scope":"repo"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"login":"leo","email":"leo@example.com"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func githubConfig(server *httptest.Server) Config {
	return Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		APIBaseURL:   server.URL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   server.URL + "/login/oauth/authorize",
			TokenURL:  server.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestGitHubProviderExchangeAndIdentity(t *testing.T) {
	server := newGitHubServer(t)
	provider := NewGitHubProvider(githubConfig(server), DefaultBreakerSettings())
	ctx := context.Background()

	authURL, err := provider.AuthURL("state-1")
	require.NoError(t, err)
	require.Contains(t, authURL, "state=state-1")
	require.True(t, strings.HasPrefix(authURL, server.URL))

	token, err := provider.Exchange(ctx, "good-code")
	require.NoError(t, err)
	require.Equal(t, "gho_123", token.AccessToken)

	identity, err := provider.Identity(ctx, token)
	require.NoError(t, err)
	require.Equal(t, &Identity{ID: "42", Username: "leo", Email: "leo@example.com"}, identity)
}

func TestGitHubProviderRejectedCodeDoesNotTripBreaker(t *testing.T) {
	server := newGitHubServer(t)
	provider := NewGitHubProvider(githubConfig(server), BreakerSettings{FailureThreshold: 1, OpenTimeout: time.Minute, Interval: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := provider.Exchange(ctx, "bad-code")
		require.ErrorIs(t, err, ErrRejected)
	}

	_, err := provider.Exchange(ctx, "good-code")
	require.NoError(t, err)
}

func TestBreakerOpensAfterUpstreamFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	provider := NewTravisProvider(Config{APIBaseURL: server.URL}, BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute, Interval: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := provider.Exchange(ctx, "gho_123")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrUnavailable)
	}

	_, err := provider.Exchange(ctx, "gho_123")
	require.ErrorIs(t, err, ErrUnavailable)
	require.EqualValues(t, 2, hits.Load())
}

func TestTravisProviderExchangeAndIdentity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/github", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "gho_123", body["github_token"])
		_, _ = w.Write([]byte(`{"access_token":"travis_abc"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "token travis_abc", r.Header.Get("Authorization"))
		require.Equal(t, "3", r.Header.Get("Travis-API-Version"))
		_, _ = w.Write([]byte(`{"id":7,"login":"leo"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	provider := NewTravisProvider(Config{APIBaseURL: server.URL}, DefaultBreakerSettings())
	require.Equal(t, GitHub, provider.Requires())

	_, err := provider.AuthURL("state")
	require.ErrorIs(t, err, ErrNoBrowserFlow)

	token, err := provider.Exchange(context.Background(), "gho_123")
	require.NoError(t, err)
	require.Equal(t, "travis_abc", token.AccessToken)

	identity, err := provider.Identity(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "7", identity.ID)
	require.Equal(t, "leo", identity.Username)
}

func TestHerokuProviderIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/account", r.URL.Path)
		require.Equal(t, "application/vnd.heroku+json; version=3", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"id":"01234567-89ab","email":"leo@example.com"}`))
	}))
	t.Cleanup(server.Close)

	provider := NewHerokuProvider(Config{APIBaseURL: server.URL}, DefaultBreakerSettings())
	identity, err := provider.Identity(context.Background(), &oauth2.Token{AccessToken: "h-token"})
	require.NoError(t, err)
	require.Equal(t, "01234567-89ab", identity.ID)
	require.Equal(t, "leo@example.com", identity.Email)

	authURL, err := provider.AuthURL("xyz")
	require.NoError(t, err)
	require.Contains(t, authURL, "id.heroku.com")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(
		NewTravisProvider(Config{}, DefaultBreakerSettings()),
		NewGitHubProvider(Config{}, DefaultBreakerSettings()),
	)

	require.Equal(t, []string{GitHub, Travis}, registry.Names())

	provider, err := registry.Get(GitHub)
	require.NoError(t, err)
	require.Equal(t, GitHub, provider.Name())

	_, err = registry.Get("bitbucket")
	require.ErrorIs(t, err, ErrProviderNotFound)
}
