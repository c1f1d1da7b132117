package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/services"
	"github.com/endorhq/endor/pkg/response"
)

// ToolHandler exposes the tool catalogue.
type ToolHandler struct {
	tools *services.ToolService
}

// NewToolHandler constructs a ToolHandler.
func NewToolHandler(tools *services.ToolService) (*ToolHandler, error) {
	if tools == nil {
		return nil, errors.New("tool handler: tool service is required")
	}
	return &ToolHandler{tools: tools}, nil
}

// GET /api/tools?category=
func (h *ToolHandler) List(c *gin.Context) {
	tools, err := h.tools.List(requestContext(c), c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tools)
}

// GET /api/tools/:id
func (h *ToolHandler) Get(c *gin.Context) {
	tool, err := h.tools.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tool)
}
