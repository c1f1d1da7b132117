package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/endorhq/endor/internal/integrations"
	"github.com/endorhq/endor/internal/vault"
	apperrors "github.com/endorhq/endor/pkg/errors"
)

type stubProvider struct {
	name     string
	requires string
	grants   []string
	err      error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) AuthURL(state string) (string, error) {
	if p.requires != "" {
		return "", integrations.ErrNoBrowserFlow
	}
	return "https://auth.example.com/" + p.name + "?state=" + state, nil
}

func (p *stubProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	p.grants = append(p.grants, code)
	if p.err != nil {
		return nil, p.err
	}
	return &oauth2.Token{AccessToken: p.name + "-token-for-" + code}, nil
}

func (p *stubProvider) Identity(context.Context, *oauth2.Token) (*integrations.Identity, error) {
	return &integrations.Identity{ID: "42", Username: "octo-" + p.name}, nil
}

type chainedStub struct{ *stubProvider }

func (c chainedStub) Requires() string { return c.requires }

func newCredentialFixture(t *testing.T) (*memStore, *CredentialService, *stubProvider, *stubProvider, string) {
	t.Helper()

	s := newMemStore()
	user := s.seedUser("casey")

	cipher, err := vault.NewCipher([]byte("0123456789abcdef0123456789abcdef"),
		vault.WithKDFParams(vault.KDFParams{Time: 1, Memory: 64, Threads: 1}))
	require.NoError(t, err)

	github := &stubProvider{name: integrations.GitHub}
	travis := &stubProvider{name: integrations.Travis, requires: integrations.GitHub}
	registry := integrations.NewRegistry(github, chainedStub{travis})

	connected := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewCredentialService(s, registry, cipher, WithCredentialClock(func() time.Time { return connected }))
	require.NoError(t, err)
	return s, svc, github, travis, user.ID
}

func TestCredentialConnectStoresEncryptedToken(t *testing.T) {
	s, svc, _, _, userID := newCredentialFixture(t)
	ctx := context.Background()

	credential, err := svc.Connect(ctx, userID, "GitHub", "code-1")
	require.NoError(t, err)
	require.Equal(t, integrations.GitHub, credential.Provider)
	require.Equal(t, "octo-github", credential.ExternalUsername)
	require.NotContains(t, credential.EncryptedToken, "github-token-for-code-1")

	stored := s.credentials[userID+"|"+integrations.GitHub]
	require.Equal(t, credential.ID, stored.ID)

	token, err := svc.Token(ctx, userID, integrations.GitHub)
	require.NoError(t, err)
	require.Equal(t, "github-token-for-code-1", token)

	again, err := svc.Connect(ctx, userID, integrations.GitHub, "code-2")
	require.NoError(t, err)
	require.Equal(t, credential.ID, again.ID)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCredentialConnectChainedProvider(t *testing.T) {
	_, svc, _, travis, userID := newCredentialFixture(t)
	ctx := context.Background()

	_, err := svc.Connect(ctx, userID, integrations.Travis, "")
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Empty(t, travis.grants)

	_, err = svc.Connect(ctx, userID, integrations.GitHub, "code-1")
	require.NoError(t, err)

	credential, err := svc.Connect(ctx, userID, integrations.Travis, "ignored")
	require.NoError(t, err)
	require.Equal(t, integrations.Travis, credential.Provider)
	require.Equal(t, []string{"github-token-for-code-1"}, travis.grants)
}

func TestCredentialConnectErrors(t *testing.T) {
	_, svc, github, _, userID := newCredentialFixture(t)
	ctx := context.Background()

	_, err := svc.Connect(ctx, userID, "bitbucket", "code")
	require.ErrorIs(t, err, ErrIntegrationNotFound)

	_, err = svc.Connect(ctx, userID, integrations.GitHub, " ")
	require.ErrorIs(t, err, ErrInvalidRequest)

	github.err = fmt.Errorf("exchange: %w", integrations.ErrRejected)
	_, err = svc.Connect(ctx, userID, integrations.GitHub, "bad")
	require.ErrorIs(t, err, ErrIntegrationRejected)

	github.err = integrations.ErrUnavailable
	_, err = svc.Connect(ctx, userID, integrations.GitHub, "code")
	require.ErrorIs(t, err, ErrIntegrationUnavailable)

	github.err = fmt.Errorf("dial tcp: connection refused")
	_, err = svc.Connect(ctx, userID, integrations.GitHub, "code")
	require.ErrorIs(t, err, apperrors.ErrBadGateway)
}

func TestCredentialAuthorizeURL(t *testing.T) {
	_, svc, _, _, _ := newCredentialFixture(t)

	url, state, err := svc.AuthorizeURL(integrations.GitHub)
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.Contains(t, url, "state="+state)

	_, _, err = svc.AuthorizeURL(integrations.Travis)
	require.ErrorIs(t, err, ErrInvalidRequest)

	require.Equal(t, []string{integrations.GitHub, integrations.Travis}, svc.Providers())
}

func TestCredentialDisconnect(t *testing.T) {
	_, svc, _, _, userID := newCredentialFixture(t)
	ctx := context.Background()

	_, err := svc.Connect(ctx, userID, integrations.GitHub, "code")
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect(ctx, userID, integrations.GitHub))
	require.ErrorIs(t, svc.Disconnect(ctx, userID, integrations.GitHub), ErrCredentialNotFound)

	_, err = svc.Token(ctx, userID, integrations.GitHub)
	require.ErrorIs(t, err, ErrCredentialNotFound)
}
