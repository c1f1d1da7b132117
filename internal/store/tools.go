package store

import (
	"context"

	"github.com/endorhq/endor/internal/models"
)

// ListTools returns the catalogue, optionally restricted to one category.
func (s *GormStore) ListTools(ctx context.Context, category models.ToolCategory) ([]models.Tool, error) {
	tx := s.conn(ctx).Order("category, name")
	if category != "" {
		tx = tx.Where("category = ?", category)
	}
	var tools []models.Tool
	if err := tx.Find(&tools).Error; err != nil {
		return nil, err
	}
	return tools, nil
}

// GetTool loads a catalogue entry by slug.
func (s *GormStore) GetTool(ctx context.Context, id string) (*models.Tool, error) {
	var tool models.Tool
	if err := s.conn(ctx).Take(&tool, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tool, nil
}

// MissingTools returns the ids from ids that have no catalogue entry.
func (s *GormStore) MissingTools(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []string
	if err := s.conn(ctx).Model(&models.Tool{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
