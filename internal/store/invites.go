package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/endorhq/endor/internal/models"
)

// InviteFilter narrows ListInvites. Empty fields are ignored.
type InviteFilter struct {
	ProjectID string
	UserID    string
	Status    models.InviteStatus
}

// CreateInvite persists an invite in a single insert. A missing user or project yields
// ErrForeignKeyViolation.
func (s *GormStore) CreateInvite(ctx context.Context, invite *models.Invite) error {
	return translate(s.conn(ctx).Omit("ProjectInvitedTo", "UserInvited").Create(invite).Error)
}

// liveInvites restricts a query to invites whose project has not been soft deleted.
func liveInvites(tx *gorm.DB) *gorm.DB {
	return tx.Joins("JOIN projects ON projects.id = invites.project_invited_to_id AND projects.deleted_at IS NULL")
}

// GetInvite loads an invite by id. Invites of soft deleted projects are reported as missing.
func (s *GormStore) GetInvite(ctx context.Context, id string) (*models.Invite, error) {
	var invite models.Invite
	if err := liveInvites(s.conn(ctx)).Take(&invite, "invites.id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &invite, nil
}

// ListInvites returns matching invites of live projects, oldest first.
func (s *GormStore) ListInvites(ctx context.Context, filter InviteFilter) ([]models.Invite, error) {
	tx := liveInvites(s.conn(ctx)).Order("invites.created_at, invites.id")
	if filter.ProjectID != "" {
		tx = tx.Where("invites.project_invited_to_id = ?", filter.ProjectID)
	}
	if filter.UserID != "" {
		tx = tx.Where("invites.user_invited_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		tx = tx.Where("invites.status = ?", filter.Status)
	}

	var invites []models.Invite
	if err := tx.Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

// UpdateInviteStatus moves an invite from one status to another in a single conditional
// update. It reports false when the invite was not in the from status.
func (s *GormStore) UpdateInviteStatus(ctx context.Context, id string, from, to models.InviteStatus) (bool, error) {
	res := s.conn(ctx).Model(&models.Invite{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AcceptInvite moves an open invite to accepted and seats the invitee as a contributor in
// one transaction. An invitee who already contributes keeps the existing row. It reports
// false when the invite was no longer open, and ErrNotFound when the invite or its live
// project is missing; in both cases nothing is written.
func (s *GormStore) AcceptInvite(ctx context.Context, id string) (bool, error) {
	accepted := false
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var invite models.Invite
		if err := liveInvites(tx).Take(&invite, "invites.id = ?", id).Error; err != nil {
			return translate(err)
		}

		res := tx.Model(&models.Invite{}).
			Where("id = ? AND status = ?", invite.ID, models.InviteOpen).
			Update("status", models.InviteAccepted)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		member := projectMember{ProjectID: invite.ProjectInvitedToID, UserID: invite.UserInvitedID}
		err := tx.Table(models.RoleContributor.JoinTable()).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&member).Error
		if err != nil {
			return translate(err)
		}
		accepted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}
