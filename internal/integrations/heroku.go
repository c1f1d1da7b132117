package integrations

import (
	"context"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/heroku"
)

const herokuAPI = "https://api.heroku.com"

// HerokuProvider connects Heroku accounts through the OAuth web flow.
type HerokuProvider struct {
	config  *oauth2.Config
	apiBase string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
}

// NewHerokuProvider creates a Heroku provider.
func NewHerokuProvider(cfg Config, breaker BreakerSettings) *HerokuProvider {
	return &HerokuProvider{
		config:  cfg.oauth(heroku.Endpoint, []string{"read", "write"}),
		apiBase: strings.TrimRight(valueOr(cfg.APIBaseURL, herokuAPI), "/"),
		client:  newHTTPClient(cfg.Timeout),
		breaker: newBreaker(Heroku, breaker),
	}
}

// Name returns the provider name.
func (p *HerokuProvider) Name() string { return Heroku }

// AuthURL returns the Heroku authorization URL.
func (p *HerokuProvider) AuthURL(state string) (string, error) {
	return p.config.AuthCodeURL(state), nil
}

// Exchange swaps an authorization code for an access token.
func (p *HerokuProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return guarded(p.breaker, func() (*oauth2.Token, error) {
		token, err := p.config.Exchange(withClient(ctx, p.client), code)
		if err != nil {
			return nil, classifyExchange(err)
		}
		return token, nil
	})
}

// Identity fetches the authenticated Heroku account.
func (p *HerokuProvider) Identity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	return guarded(p.breaker, func() (*Identity, error) {
		client := p.config.Client(withClient(ctx, p.client), token)

		var account struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		}
		headers := map[string]string{"Accept": "application/vnd.heroku+json; version=3"}
		if err := getJSON(ctx, client, p.apiBase+"/account", headers, &account); err != nil {
			return nil, err
		}
		return &Identity{ID: account.ID, Username: account.Email, Email: account.Email}, nil
	})
}
