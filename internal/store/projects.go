package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/endorhq/endor/internal/models"
)

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	// Name matches projects whose name contains the value, case-insensitively.
	Name string
	ListOptions
}

// CreateProject inserts project and records ownerID as its first owner atomically.
func (s *GormStore) CreateProject(ctx context.Context, project *models.Project, ownerID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Owners", "Contributors").Create(project).Error; err != nil {
			return translate(err)
		}
		member := projectMember{ProjectID: project.ID, UserID: ownerID}
		if err := tx.Table(models.RoleOwner.JoinTable()).Create(&member).Error; err != nil {
			return translate(err)
		}
		return nil
	})
}

// GetProject loads a live project by id.
func (s *GormStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := s.conn(ctx).Take(&project, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// ListProjects returns live projects ordered by name.
func (s *GormStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	tx := s.conn(ctx).Order("name")
	if name := strings.TrimSpace(filter.Name); name != "" {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	var projects []models.Project
	if err := filter.apply(tx).Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateProject applies column updates to a live project and returns it reloaded.
func (s *GormStore) UpdateProject(ctx context.Context, id string, updates map[string]any) (*models.Project, error) {
	if len(updates) > 0 {
		res := s.conn(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetProject(ctx, id)
}

// DeleteProject soft deletes a project, or removes it and its membership rows when hard is set.
func (s *GormStore) DeleteProject(ctx context.Context, id string, hard bool) error {
	if !hard {
		res := s.conn(ctx).Delete(&models.Project{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}

	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Unscoped().Take(&project, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		return purgeProjects(tx, []string{project.ID})
	})
}

// PurgeDeletedProjects permanently removes projects soft deleted before cutoff.
func (s *GormStore) PurgeDeletedProjects(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Unscoped().Model(&models.Project{}).
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		purged = int64(len(ids))
		return purgeProjects(tx, ids)
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

func purgeProjects(tx *gorm.DB, ids []string) error {
	for _, role := range []models.ProjectRole{models.RoleOwner, models.RoleContributor} {
		if err := tx.Table(role.JoinTable()).Where("project_id IN ?", ids).Delete(&projectMember{}).Error; err != nil {
			return fmt.Errorf("clear %s memberships: %w", role, err)
		}
	}
	if err := tx.Where("project_invited_to_id IN ?", ids).Delete(&models.Invite{}).Error; err != nil {
		return fmt.Errorf("clear invites: %w", err)
	}
	return tx.Unscoped().Where("id IN ?", ids).Delete(&models.Project{}).Error
}
