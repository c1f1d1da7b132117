// Package integrations exchanges authorization grants for third-party access tokens and
// resolves the account behind a token.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Provider names.
const (
	GitHub = "github"
	Heroku = "heroku"
	Travis = "travis"
)

var (
	// ErrProviderNotFound is returned by Registry.Get for unknown names.
	ErrProviderNotFound = errors.New("integrations: provider not found")
	// ErrUnavailable is returned while a provider's circuit breaker is open.
	ErrUnavailable = errors.New("integrations: provider temporarily unavailable")
	// ErrRejected is returned when the provider refuses a grant or token (4xx).
	ErrRejected = errors.New("integrations: provider rejected the credentials")
	// ErrNoBrowserFlow is returned by AuthURL for providers without an authorize step.
	ErrNoBrowserFlow = errors.New("integrations: provider has no browser authorization step")
)

// Identity is the third-party account behind an access token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Provider defines the behaviour shared by every integration.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// AuthURL returns the URL a user visits to grant access.
	AuthURL(state string) (string, error)

	// Exchange turns a grant into an access token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Identity resolves the account that owns token.
	Identity(ctx context.Context, token *oauth2.Token) (*Identity, error)
}

// Chained is implemented by providers whose grant is another provider's access token
// rather than an authorization code.
type Chained interface {
	Requires() string
}

// Config holds OAuth client configuration for a provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// APIBaseURL overrides the REST API root. Empty selects the public endpoint.
	APIBaseURL string
	// Endpoint overrides the OAuth endpoints. Zero selects the public endpoint.
	Endpoint oauth2.Endpoint
	Timeout  time.Duration
}

func (c Config) oauth(defaultEndpoint oauth2.Endpoint, defaultScopes []string) *oauth2.Config {
	endpoint := c.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = defaultEndpoint
	}
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

// Registry manages the configured providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return provider, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
