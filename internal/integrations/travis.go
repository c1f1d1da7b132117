package integrations

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

const travisAPI = "https://api.travis-ci.com"

// TravisProvider obtains Travis CI tokens by presenting the user's GitHub token.
type TravisProvider struct {
	apiBase string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
}

// NewTravisProvider creates a Travis CI provider. Only APIBaseURL and Timeout are read
// from cfg.
func NewTravisProvider(cfg Config, breaker BreakerSettings) *TravisProvider {
	return &TravisProvider{
		apiBase: strings.TrimRight(valueOr(cfg.APIBaseURL, travisAPI), "/"),
		client:  newHTTPClient(cfg.Timeout),
		breaker: newBreaker(Travis, breaker),
	}
}

// Name returns the provider name.
func (p *TravisProvider) Name() string { return Travis }

// Requires reports that Travis grants are GitHub access tokens.
func (p *TravisProvider) Requires() string { return GitHub }

// AuthURL is not supported; Travis piggybacks on the GitHub connection.
func (p *TravisProvider) AuthURL(string) (string, error) {
	return "", ErrNoBrowserFlow
}

// Exchange trades a GitHub access token for a Travis token.
func (p *TravisProvider) Exchange(ctx context.Context, githubToken string) (*oauth2.Token, error) {
	return guarded(p.breaker, func() (*oauth2.Token, error) {
		var out struct {
			AccessToken string `json:"access_token"`
		}
		body := map[string]string{"github_token": githubToken}
		if err := postJSON(ctx, p.client, p.apiBase+"/auth/github", travisHeaders(""), body, &out); err != nil {
			return nil, err
		}
		if out.AccessToken == "" {
			return nil, ErrRejected
		}
		return &oauth2.Token{AccessToken: out.AccessToken, TokenType: "token"}, nil
	})
}

// Identity fetches the Travis user owning token.
func (p *TravisProvider) Identity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	return guarded(p.breaker, func() (*Identity, error) {
		var user struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Email string `json:"email"`
		}
		if err := getJSON(ctx, p.client, p.apiBase+"/user", travisHeaders(token.AccessToken), &user); err != nil {
			return nil, err
		}
		return &Identity{ID: strconv.FormatInt(user.ID, 10), Username: user.Login, Email: user.Email}, nil
	})
}

func travisHeaders(token string) map[string]string {
	headers := map[string]string{
		"Travis-API-Version": "3",
		"User-Agent":         "Endor",
	}
	if token != "" {
		headers["Authorization"] = "token " + token
	}
	return headers
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
