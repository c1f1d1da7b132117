package store

import (
	"context"
	"fmt"

	"github.com/endorhq/endor/internal/models"
)

// projectMember mirrors a row of either membership join table.
type projectMember struct {
	ProjectID string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
}

// Members lists the users holding role on projectID, ordered by username.
func (s *GormStore) Members(ctx context.Context, projectID string, role models.ProjectRole) ([]models.User, error) {
	table := role.JoinTable()
	var users []models.User
	err := s.conn(ctx).
		Joins(fmt.Sprintf("JOIN %s ON %s.user_id = users.id", table, table)).
		Where(table+".project_id = ?", projectID).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// AddMember inserts a membership row. An existing row yields ErrDuplicate and a missing
// user or project yields ErrForeignKeyViolation.
func (s *GormStore) AddMember(ctx context.Context, projectID, userID string, role models.ProjectRole) error {
	member := projectMember{ProjectID: projectID, UserID: userID}
	return translate(s.conn(ctx).Table(role.JoinTable()).Create(&member).Error)
}

// RemoveMember deletes a membership row, returning ErrNotFound when none existed.
func (s *GormStore) RemoveMember(ctx context.Context, projectID, userID string, role models.ProjectRole) error {
	res := s.conn(ctx).Table(role.JoinTable()).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&projectMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
