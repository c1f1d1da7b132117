package app

import (
	"strings"

	"github.com/endorhq/endor/internal/integrations"
)

// BreakerSettings converts BreakerConfig, using the integration defaults when the
// threshold is unset.
func (c IntegrationsConfig) BreakerSettings() integrations.BreakerSettings {
	if c.Breaker.FailureThreshold == 0 {
		return integrations.DefaultBreakerSettings()
	}
	defaults := integrations.DefaultBreakerSettings()
	settings := integrations.BreakerSettings{
		FailureThreshold: c.Breaker.FailureThreshold,
		OpenTimeout:      c.Breaker.OpenTimeout,
		Interval:         c.Breaker.Interval,
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = defaults.OpenTimeout
	}
	if settings.Interval <= 0 {
		settings.Interval = defaults.Interval
	}
	return settings
}

// Registry builds the provider registry from the enabled providers.
func (c IntegrationsConfig) Registry() *integrations.Registry {
	registry := integrations.NewRegistry()
	breaker := c.BreakerSettings()

	if c.GitHub.Enabled {
		registry.Register(integrations.NewGitHubProvider(c.providerConfig(c.GitHub), breaker))
	}
	if c.Heroku.Enabled {
		registry.Register(integrations.NewHerokuProvider(c.providerConfig(c.Heroku), breaker))
	}
	if c.Travis.Enabled {
		registry.Register(integrations.NewTravisProvider(c.providerConfig(c.Travis), breaker))
	}
	return registry
}

func (c IntegrationsConfig) providerConfig(p ProviderConfig) integrations.Config {
	scopes := make([]string, 0, len(p.Scopes))
	for _, scope := range p.Scopes {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return integrations.Config{
		ClientID:     strings.TrimSpace(p.ClientID),
		ClientSecret: strings.TrimSpace(p.ClientSecret),
		RedirectURL:  strings.TrimSpace(p.RedirectURL),
		Scopes:       scopes,
		APIBaseURL:   strings.TrimSpace(p.APIBaseURL),
		Timeout:      c.Timeout,
	}
}
