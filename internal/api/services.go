package api

import (
	"errors"

	"github.com/endorhq/endor/internal/integrations"
	"github.com/endorhq/endor/internal/services"
	"github.com/endorhq/endor/internal/store"
)

// BuildServices constructs every application service over a single gateway.
func BuildServices(gateway *store.GormStore, cipher services.TokenCipher, providers *integrations.Registry, inviteOpts ...services.InviteOption) (Services, error) {
	if gateway == nil {
		return Services{}, errors.New("api: store is required")
	}
	if providers == nil {
		providers = integrations.NewRegistry()
	}

	var (
		svc Services
		err error
	)

	if svc.Users, err = services.NewUserService(gateway); err != nil {
		return Services{}, err
	}
	policy, err := services.NewMembershipPolicy(gateway)
	if err != nil {
		return Services{}, err
	}
	if svc.Projects, err = services.NewProjectService(gateway, gateway, gateway, policy); err != nil {
		return Services{}, err
	}
	if svc.Invites, err = services.NewInviteService(gateway, inviteOpts...); err != nil {
		return Services{}, err
	}
	if svc.Tools, err = services.NewToolService(gateway); err != nil {
		return Services{}, err
	}
	if svc.Credentials, err = services.NewCredentialService(gateway, providers, cipher); err != nil {
		return Services{}, err
	}
	return svc, nil
}
