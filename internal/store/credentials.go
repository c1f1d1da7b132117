package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/endorhq/endor/internal/models"
)

// UpsertCredential inserts a credential or replaces the token of the existing one for
// the same user and provider.
func (s *GormStore) UpsertCredential(ctx context.Context, credential *models.Credential) error {
	err := s.conn(ctx).Omit("User").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"encrypted_token", "external_username", "connected_at", "expires_at", "updated_at"}),
	}).Create(credential).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

// GetCredential loads the credential a user holds for provider.
func (s *GormStore) GetCredential(ctx context.Context, userID, provider string) (*models.Credential, error) {
	var credential models.Credential
	err := s.conn(ctx).Where("user_id = ? AND provider = ?", userID, provider).Take(&credential).Error
	if err != nil {
		return nil, translate(err)
	}
	return &credential, nil
}

// ListCredentials returns a user's credentials ordered by provider.
func (s *GormStore) ListCredentials(ctx context.Context, userID string) ([]models.Credential, error) {
	var credentials []models.Credential
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("provider").Find(&credentials).Error; err != nil {
		return nil, err
	}
	return credentials, nil
}

// DeleteCredential removes a user's credential for provider.
func (s *GormStore) DeleteCredential(ctx context.Context, userID, provider string) error {
	res := s.conn(ctx).Where("user_id = ? AND provider = ?", userID, provider).Delete(&models.Credential{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
