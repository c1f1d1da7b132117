package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/store"
)

// ToolService exposes the read-only tool catalogue.
type ToolService struct {
	tools ToolStore
}

// NewToolService constructs a ToolService instance.
func NewToolService(tools ToolStore) (*ToolService, error) {
	if tools == nil {
		return nil, errors.New("tool service: store is required")
	}
	return &ToolService{tools: tools}, nil
}

// List returns catalogue entries, optionally limited to one category.
func (s *ToolService) List(ctx context.Context, category string) ([]models.Tool, error) {
	tools, err := s.tools.ListTools(ensureContext(ctx), models.ToolCategory(strings.TrimSpace(category)))
	if err != nil {
		return nil, fmt.Errorf("tool service: list tools: %w", err)
	}
	if tools == nil {
		tools = []models.Tool{}
	}
	return tools, nil
}

// GetByID loads a catalogue entry by slug.
func (s *ToolService) GetByID(ctx context.Context, id string) (*models.Tool, error) {
	tool, err := s.tools.GetTool(ensureContext(ctx), strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrToolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tool service: load tool: %w", err)
	}
	return tool, nil
}
