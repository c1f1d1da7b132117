package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/endorhq/endor/internal/models"
)

// CreateUser inserts a user. Username or email collisions yield ErrDuplicate.
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.conn(ctx).Create(user).Error)
}

// GetUser loads a user by id.
func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Take(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ResolveUser finds a user whose id or username equals identifier exactly.
func (s *GormStore) ResolveUser(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}

	var user models.User
	err := s.conn(ctx).
		Where("id = ? OR username = ?", identifier, identifier).
		Order("username").
		Take(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindUserByLogin looks a user up by username or email for authentication.
func (s *GormStore) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		Take(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ListUsers returns a page of users ordered by username along with the total user count.
func (s *GormStore) ListUsers(ctx context.Context, opts ListOptions) ([]models.User, int64, error) {
	var total int64
	if err := s.conn(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := opts.apply(s.conn(ctx).Order("username")).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateUser applies column updates and returns the reloaded user.
func (s *GormStore) UpdateUser(ctx context.Context, id string, updates map[string]any) (*models.User, error) {
	if len(updates) > 0 {
		res := s.conn(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes a user and every membership row referencing them.
func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		for _, role := range []models.ProjectRole{models.RoleOwner, models.RoleContributor} {
			if err := tx.Table(role.JoinTable()).Where("user_id = ?", id).Delete(&projectMember{}).Error; err != nil {
				return fmt.Errorf("clear %s memberships: %w", role, err)
			}
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ProjectsFor returns the live projects on which the user holds role.
func (s *GormStore) ProjectsFor(ctx context.Context, userID string, role models.ProjectRole) ([]models.Project, error) {
	table := role.JoinTable()
	var projects []models.Project
	err := s.conn(ctx).
		Joins(fmt.Sprintf("JOIN %s ON %s.project_id = projects.id", table, table)).
		Where(table+".user_id = ?", userID).
		Order("projects.name").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// SoleOwnedProjects returns the live projects whose only owner is userID.
func (s *GormStore) SoleOwnedProjects(ctx context.Context, userID string) ([]models.Project, error) {
	conn := s.conn(ctx)
	owned := conn.Table("project_owners").Select("project_id").Where("user_id = ?", userID)

	var ids []string
	err := conn.Table("project_owners").
		Select("project_id").
		Where("project_id IN (?)", owned).
		Group("project_id").
		Having("COUNT(*) = 1").
		Pluck("project_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var projects []models.Project
	if err := conn.Where("id IN ?", ids).Order("name").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// IsNotFound reports whether err wraps ErrNotFound or gorm's not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
