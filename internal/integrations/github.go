package integrations

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

// GitHubProvider connects GitHub accounts through the OAuth web flow.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
}

// NewGitHubProvider creates a GitHub provider.
func NewGitHubProvider(cfg Config, breaker BreakerSettings) *GitHubProvider {
	return &GitHubProvider{
		config:  cfg.oauth(github.Endpoint, []string{"read:user", "user:email", "repo"}),
		apiBase: strings.TrimRight(valueOr(cfg.APIBaseURL, githubAPI), "/"),
		client:  newHTTPClient(cfg.Timeout),
		breaker: newBreaker(GitHub, breaker),
	}
}

// Name returns the provider name.
func (p *GitHubProvider) Name() string { return GitHub }

// AuthURL returns the GitHub authorization URL.
func (p *GitHubProvider) AuthURL(state string) (string, error) {
	return p.config.AuthCodeURL(state), nil
}

// Exchange swaps an authorization code for an access token.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return guarded(p.breaker, func() (*oauth2.Token, error) {
		token, err := p.config.Exchange(withClient(ctx, p.client), code)
		if err != nil {
			return nil, classifyExchange(err)
		}
		return token, nil
	})
}

// Identity fetches the authenticated GitHub user.
func (p *GitHubProvider) Identity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	return guarded(p.breaker, func() (*Identity, error) {
		client := p.config.Client(withClient(ctx, p.client), token)

		var user struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Email string `json:"email"`
		}
		headers := map[string]string{"Accept": "application/vnd.github+json"}
		if err := getJSON(ctx, client, p.apiBase+"/user", headers, &user); err != nil {
			return nil, err
		}
		return &Identity{ID: strconv.FormatInt(user.ID, 10), Username: user.Login, Email: user.Email}, nil
	})
}
