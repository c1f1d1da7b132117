// Package security evaluates the deployment configuration against baseline hardening
// rules. The audit runs at startup and its findings are logged.
package security

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/endorhq/endor/internal/app"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const (
	minSecretBytes       = 32
	recommendedJWTBytes  = 48
	maxRecommendedJWTTTL = 7 * 24 * time.Hour
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
}

// Result aggregates all checks with a per-status count.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Failed reports whether any check failed.
func (r Result) Failed() bool {
	return r.Summary[string(StatusFail)] > 0
}

// AuditService evaluates the loaded configuration.
type AuditService struct {
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service. A nil cfg fails every check.
func NewAuditService(cfg *app.Config) *AuditService {
	return &AuditService{cfg: cfg, now: time.Now}
}

// WithClock overrides the clock used in results (primarily for testing).
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks. Secrets must already be resolved.
func (s *AuditService) Run() Result {
	var checks []Check
	if s.cfg == nil {
		checks = []Check{{
			ID:          "configuration",
			Status:      StatusFail,
			Message:     "Configuration not loaded.",
			Remediation: "Load configuration before running the security audit.",
		}}
	} else {
		checks = []Check{
			s.checkJWTSecret(),
			s.checkTokenTTL(),
			s.checkVaultKey(),
			s.checkTransport(),
			s.checkRedirects(),
		}
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{CheckedAt: s.now().UTC(), Checks: checks, Summary: summary}
}

func (s *AuditService) checkJWTSecret() Check {
	length := len(s.cfg.Auth.JWT.Secret)
	switch {
	case length == 0:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     "Missing JWT signing secret.",
			Remediation: "Set ENDOR_AUTH_JWT_SECRET or let the server generate one.",
		}
	case length < minSecretBytes:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < recommendedJWTBytes:
		return Check{
			ID:          "jwt_secret_strength",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider 48+ bytes.", length),
			Remediation: "Increase the length of ENDOR_AUTH_JWT_SECRET.",
		}
	}
	return Check{
		ID:      "jwt_secret_strength",
		Status:  StatusPass,
		Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
	}
}

func (s *AuditService) checkTokenTTL() Check {
	ttl := s.cfg.Auth.JWT.TTL
	if ttl > maxRecommendedJWTTTL {
		return Check{
			ID:          "access_token_ttl",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Access token TTL (%s) exceeds %s.", ttl, maxRecommendedJWTTTL),
			Remediation: "Shorten auth.jwt.access_token_ttl; tokens cannot be revoked before they expire.",
		}
	}
	return Check{
		ID:      "access_token_ttl",
		Status:  StatusPass,
		Message: fmt.Sprintf("Access token TTL is %s.", ttl),
	}
}

func (s *AuditService) checkVaultKey() Check {
	raw := strings.TrimSpace(s.cfg.Vault.MasterKey)
	if raw == "" {
		return Check{
			ID:          "vault_master_key",
			Status:      StatusFail,
			Message:     "Vault master key is not configured.",
			Remediation: "Set ENDOR_VAULT_MASTER_KEY or let the server generate one.",
		}
	}

	key, err := app.DecodeKey(raw)
	if err != nil {
		return Check{
			ID:          "vault_master_key",
			Status:      StatusFail,
			Message:     fmt.Sprintf("Vault master key cannot be decoded: %v", err),
			Remediation: "Provide the key as hex or base64.",
		}
	}
	if len(key) < minSecretBytes {
		return Check{
			ID:          "vault_master_key",
			Status:      StatusFail,
			Message:     fmt.Sprintf("Vault master key is too short (%d bytes).", len(key)),
			Remediation: "Use a master key of at least 32 random bytes.",
		}
	}
	return Check{
		ID:      "vault_master_key",
		Status:  StatusPass,
		Message: "Vault master key configured.",
	}
}

func (s *AuditService) checkTransport() Check {
	if !s.cfg.Server.HSTS {
		return Check{
			ID:          "strict_transport_security",
			Status:      StatusWarn,
			Message:     "Strict-Transport-Security is disabled.",
			Remediation: "Enable server.hsts when the API is served over TLS.",
		}
	}
	return Check{
		ID:      "strict_transport_security",
		Status:  StatusPass,
		Message: "Strict-Transport-Security is enabled.",
	}
}

// checkRedirects flags OAuth redirect URLs that would carry authorization codes in clear text.
func (s *AuditService) checkRedirects() Check {
	providers := map[string]app.ProviderConfig{
		"github": s.cfg.Integrations.GitHub,
		"heroku": s.cfg.Integrations.Heroku,
		"travis": s.cfg.Integrations.Travis,
	}

	var insecure []string
	for _, name := range []string{"github", "heroku", "travis"} {
		provider := providers[name]
		if !provider.Enabled || strings.TrimSpace(provider.RedirectURL) == "" {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(provider.RedirectURL))
		if err != nil || (u.Scheme != "https" && !isLoopback(u.Hostname())) {
			insecure = append(insecure, name)
		}
	}

	if len(insecure) > 0 {
		return Check{
			ID:          "oauth_redirect_urls",
			Status:      StatusWarn,
			Message:     "OAuth redirect URLs without TLS: " + strings.Join(insecure, ", "),
			Remediation: "Use https redirect URLs outside local development.",
		}
	}
	return Check{
		ID:      "oauth_redirect_urls",
		Status:  StatusPass,
		Message: "OAuth redirect URLs use TLS.",
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
