package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/pkg/metrics"
)

// MembershipPolicy guards the owner and contributor relations of projects. Checks are
// read-then-write; the composite keys on the join tables back them up under concurrency.
type MembershipPolicy struct {
	members MembershipStore
}

// NewMembershipPolicy constructs a MembershipPolicy.
func NewMembershipPolicy(members MembershipStore) (*MembershipPolicy, error) {
	if members == nil {
		return nil, errors.New("membership policy: store is required")
	}
	return &MembershipPolicy{members: members}, nil
}

// AddOwner grants userID ownership of projectID.
func (p *MembershipPolicy) AddOwner(ctx context.Context, projectID, userID string) error {
	return p.add(ensureContext(ctx), projectID, userID, models.RoleOwner)
}

// AddContributor grants userID contributor access to projectID.
func (p *MembershipPolicy) AddContributor(ctx context.Context, projectID, userID string) error {
	return p.add(ensureContext(ctx), projectID, userID, models.RoleContributor)
}

// RemoveOwner revokes ownership unless userID is the last remaining owner.
func (p *MembershipPolicy) RemoveOwner(ctx context.Context, projectID, userID string) error {
	ctx = ensureContext(ctx)

	owners, err := p.members.Members(ctx, projectID, models.RoleOwner)
	if err != nil {
		return fmt.Errorf("membership policy: list owners: %w", err)
	}
	if !containsUserID(owners, userID) {
		return ErrMembershipNotFound
	}
	if len(owners) <= 1 {
		return ErrLastOwner
	}

	return p.remove(ctx, projectID, userID, models.RoleOwner)
}

// RemoveContributor revokes contributor access. There is no minimum contributor count.
func (p *MembershipPolicy) RemoveContributor(ctx context.Context, projectID, userID string) error {
	return p.remove(ensureContext(ctx), projectID, userID, models.RoleContributor)
}

// IsOwner reports whether identifier (an id or username) is an owner of projectID.
func (p *MembershipPolicy) IsOwner(ctx context.Context, projectID, identifier string) (bool, error) {
	return p.holds(ensureContext(ctx), projectID, identifier, models.RoleOwner)
}

// IsContributor reports whether identifier (an id or username) contributes to projectID.
func (p *MembershipPolicy) IsContributor(ctx context.Context, projectID, identifier string) (bool, error) {
	return p.holds(ensureContext(ctx), projectID, identifier, models.RoleContributor)
}

// Members lists the users holding role on projectID.
func (p *MembershipPolicy) Members(ctx context.Context, projectID string, role models.ProjectRole) ([]models.User, error) {
	users, err := p.members.Members(ensureContext(ctx), projectID, role)
	if err != nil {
		return nil, fmt.Errorf("membership policy: list %ss: %w", role, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (p *MembershipPolicy) add(ctx context.Context, projectID, userID string, role models.ProjectRole) error {
	current, err := p.members.Members(ctx, projectID, role)
	if err != nil {
		return fmt.Errorf("membership policy: list %ss: %w", role, err)
	}
	if containsUserID(current, userID) {
		return ErrMembershipDuplicate
	}

	if err := p.members.AddMember(ctx, projectID, userID, role); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return ErrMembershipDuplicate.WithInternal(err)
		case errors.Is(err, store.ErrForeignKeyViolation):
			return invalidField("membership", msgInviteReferenceMissing).WithInternal(err)
		}
		return fmt.Errorf("membership policy: add %s: %w", role, err)
	}

	metrics.MembershipChanges.WithLabelValues(string(role), "add").Inc()
	return nil
}

func (p *MembershipPolicy) remove(ctx context.Context, projectID, userID string, role models.ProjectRole) error {
	if err := p.members.RemoveMember(ctx, projectID, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("membership policy: remove %s: %w", role, err)
	}

	metrics.MembershipChanges.WithLabelValues(string(role), "remove").Inc()
	return nil
}

func (p *MembershipPolicy) holds(ctx context.Context, projectID, identifier string, role models.ProjectRole) (bool, error) {
	users, err := p.members.Members(ctx, projectID, role)
	if err != nil {
		return false, fmt.Errorf("membership policy: list %ss: %w", role, err)
	}
	return HasMember(users, identifier), nil
}

// HasMember reports whether identifier exactly matches the id or username of any user.
func HasMember(users []models.User, identifier string) bool {
	for i := range users {
		if users[i].Matches(identifier) {
			return true
		}
	}
	return false
}

func containsUserID(users []models.User, id string) bool {
	for i := range users {
		if users[i].ID == id {
			return true
		}
	}
	return false
}
