package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/endorhq/endor/internal/integrations"
	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/internal/vault"
	"github.com/endorhq/endor/pkg/crypto"
	apperrors "github.com/endorhq/endor/pkg/errors"
)

const oauthStateBytes = 24

var (
	// ErrIntegrationNotFound indicates the provider name is not configured.
	ErrIntegrationNotFound = apperrors.New("INTEGRATION_NOT_FOUND", "Integration provider not configured", http.StatusNotFound)
	// ErrIntegrationRejected indicates the provider refused the supplied grant.
	ErrIntegrationRejected = apperrors.New("INTEGRATION_REJECTED", "The provider rejected the supplied authorization", http.StatusBadRequest)
	// ErrIntegrationUnavailable indicates the provider's circuit breaker is open.
	ErrIntegrationUnavailable = apperrors.New("INTEGRATION_UNAVAILABLE", "The provider is temporarily unavailable", http.StatusServiceUnavailable)
)

// TokenCipher encrypts tokens at rest, binding each ciphertext to a scope.
type TokenCipher interface {
	EncryptToken(token, scope string) (string, error)
	DecryptToken(ciphertext, scope string) (string, error)
}

// CredentialOption customises CredentialService behaviour.
type CredentialOption func(*CredentialService)

// WithCredentialClock injects a custom clock primarily for testing.
func WithCredentialClock(clock func() time.Time) CredentialOption {
	return func(s *CredentialService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// CredentialService connects users to third-party providers and stores their tokens.
type CredentialService struct {
	credentials CredentialStore
	providers   *integrations.Registry
	cipher      TokenCipher
	now         func() time.Time
}

// NewCredentialService constructs a CredentialService instance.
func NewCredentialService(credentials CredentialStore, providers *integrations.Registry, cipher TokenCipher, opts ...CredentialOption) (*CredentialService, error) {
	switch {
	case credentials == nil:
		return nil, errors.New("credential service: store is required")
	case providers == nil:
		return nil, errors.New("credential service: provider registry is required")
	case cipher == nil:
		return nil, errors.New("credential service: cipher is required")
	}

	service := &CredentialService{
		credentials: credentials,
		providers:   providers,
		cipher:      cipher,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Providers lists the configured provider names.
func (s *CredentialService) Providers() []string {
	return s.providers.Names()
}

// AuthorizeURL returns the provider's consent URL and the state value embedded in it.
func (s *CredentialService) AuthorizeURL(provider string) (string, string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", "", err
	}

	state, err := crypto.GenerateToken(oauthStateBytes)
	if err != nil {
		return "", "", fmt.Errorf("credential service: generate state: %w", err)
	}
	url, err := p.AuthURL(state)
	if errors.Is(err, integrations.ErrNoBrowserFlow) {
		return "", "", invalidField("provider", fmt.Sprintf("%s is connected through %s; call connect directly", p.Name(), requiredProvider(p)))
	}
	if err != nil {
		return "", "", fmt.Errorf("credential service: authorize url: %w", err)
	}
	return url, state, nil
}

// Connect exchanges code with provider, stores the encrypted token and returns the
// credential. Chained providers ignore code and use the stored upstream token instead.
func (s *CredentialService) Connect(ctx context.Context, userID, provider, code string) (*models.Credential, error) {
	ctx = ensureContext(ctx)

	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}

	grant := strings.TrimSpace(code)
	if upstream := requiredProvider(p); upstream != "" {
		grant, err = s.Token(ctx, userID, upstream)
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, invalidField("provider", fmt.Sprintf("connect %s before %s", upstream, p.Name()))
		}
		if err != nil {
			return nil, err
		}
	} else if grant == "" {
		return nil, invalidField("code", "code is required")
	}

	token, err := p.Exchange(ctx, grant)
	if err != nil {
		return nil, integrationError(err)
	}
	identity, err := p.Identity(ctx, token)
	if err != nil {
		return nil, integrationError(err)
	}

	ciphertext, err := s.cipher.EncryptToken(token.AccessToken, vault.Scope(userID, p.Name()))
	if err != nil {
		return nil, fmt.Errorf("credential service: encrypt token: %w", err)
	}

	credential := &models.Credential{
		UserID:           userID,
		Provider:         p.Name(),
		EncryptedToken:   ciphertext,
		ExternalUsername: identity.Username,
		ConnectedAt:      s.now().UTC(),
		ExpiresAt:        tokenExpiry(token),
	}
	if err := s.credentials.UpsertCredential(ctx, credential); err != nil {
		if errors.Is(err, store.ErrForeignKeyViolation) {
			return nil, ErrUserNotFound.WithInternal(err)
		}
		return nil, fmt.Errorf("credential service: store credential: %w", err)
	}

	stored, err := s.credentials.GetCredential(ctx, userID, p.Name())
	if err != nil {
		return nil, fmt.Errorf("credential service: reload credential: %w", err)
	}
	return stored, nil
}

// List returns the user's connected providers.
func (s *CredentialService) List(ctx context.Context, userID string) ([]models.Credential, error) {
	credentials, err := s.credentials.ListCredentials(ensureContext(ctx), userID)
	if err != nil {
		return nil, fmt.Errorf("credential service: list credentials: %w", err)
	}
	if credentials == nil {
		credentials = []models.Credential{}
	}
	return credentials, nil
}

// Token returns the decrypted access token the user holds for provider.
func (s *CredentialService) Token(ctx context.Context, userID, provider string) (string, error) {
	credential, err := s.credentials.GetCredential(ensureContext(ctx), userID, provider)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credential service: load credential: %w", err)
	}

	token, err := s.cipher.DecryptToken(credential.EncryptedToken, vault.Scope(userID, provider))
	if err != nil {
		return "", fmt.Errorf("credential service: decrypt token: %w", err)
	}
	return token, nil
}

// Disconnect removes the user's credential for provider.
func (s *CredentialService) Disconnect(ctx context.Context, userID, provider string) error {
	err := s.credentials.DeleteCredential(ensureContext(ctx), userID, provider)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCredentialNotFound
	}
	if err != nil {
		return fmt.Errorf("credential service: delete credential: %w", err)
	}
	return nil
}

func (s *CredentialService) provider(name string) (integrations.Provider, error) {
	p, err := s.providers.Get(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, ErrIntegrationNotFound.WithInternal(err)
	}
	return p, nil
}

func requiredProvider(p integrations.Provider) string {
	if chained, ok := p.(integrations.Chained); ok {
		return chained.Requires()
	}
	return ""
}

func integrationError(err error) error {
	switch {
	case errors.Is(err, integrations.ErrRejected):
		return ErrIntegrationRejected.WithInternal(err)
	case errors.Is(err, integrations.ErrUnavailable):
		return ErrIntegrationUnavailable.WithInternal(err)
	default:
		return apperrors.ErrBadGateway.WithInternal(err)
	}
}

func tokenExpiry(token *oauth2.Token) *time.Time {
	if token == nil || token.Expiry.IsZero() {
		return nil
	}
	expiry := token.Expiry.UTC()
	return &expiry
}
