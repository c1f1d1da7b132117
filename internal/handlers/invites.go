package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/services"
	apperrors "github.com/endorhq/endor/pkg/errors"
	"github.com/endorhq/endor/pkg/response"
)

// InviteHandler exposes the invite lifecycle. Project owners create and rescind
// invites; the invited user accepts or declines them.
type InviteHandler struct {
	invites  *services.InviteService
	projects *services.ProjectService
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(invites *services.InviteService, projects *services.ProjectService) (*InviteHandler, error) {
	if invites == nil || projects == nil {
		return nil, errors.New("invite handler: invite and project services are required")
	}
	return &InviteHandler{invites: invites, projects: projects}, nil
}

type createInviteRequest struct {
	ProjectInvitedToID string `json:"project_invited_to_id"`
	UserInvitedID      string `json:"user_invited_id"`
	ProjectName        string `json:"project_name"`
	// Left untyped so the service can reject strings and booleans itself.
	DaysFromCreationUntilExpiration any `json:"days_from_creation_until_expiration"`
}

type updateInviteRequest struct {
	Status *string `json:"status"`
}

// POST /api/invites
func (h *InviteHandler) Create(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return
	}

	ctx := requestContext(c)
	projectID := strings.TrimSpace(req.ProjectInvitedToID)
	if projectID != "" {
		project, err := h.projects.Get(ctx, projectID)
		if errors.Is(err, services.ErrProjectNotFound) {
			response.Error(c, services.InviteReferenceMissing())
			return
		}
		if err != nil {
			response.Error(c, err)
			return
		}
		owner, err := h.projects.IsOwner(ctx, project.ID, callerID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		if !owner {
			response.Error(c, apperrors.ErrForbidden)
			return
		}
		if strings.TrimSpace(req.ProjectName) == "" {
			req.ProjectName = project.Name
		}
	}

	invite, err := h.invites.Create(ctx, projectID, req.UserInvitedID, req.DaysFromCreationUntilExpiration, req.ProjectName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, mapInvite(invite))
}

// GET /api/invites/:id
func (h *InviteHandler) Get(c *gin.Context) {
	invite, err := h.invites.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorize(c, invite, ""); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapInvite(invite))
}

// PATCH /api/invites/:id
func (h *InviteHandler) Update(c *gin.Context) {
	var req updateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return
	}
	if errs := h.invites.Validate(services.InviteFields{Status: req.Status}, false); len(errs) > 0 {
		response.Error(c, services.NewInvalidRequest(errs))
		return
	}

	ctx := requestContext(c)
	invite, err := h.invites.GetByID(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	target := models.InviteStatus(*req.Status)
	if err := h.authorize(c, invite, target); err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.invites.Update(ctx, invite.ID, string(target))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapInvite(updated))
}

// authorize decides whether the caller may see invite or move it to target. An empty
// target means read access, which the invitee and project owners both have.
func (h *InviteHandler) authorize(c *gin.Context, invite *models.Invite, target models.InviteStatus) error {
	caller := callerID(c)
	isInvitee := invite.UserInvitedID == caller

	switch target {
	case models.InviteAccepted, models.InviteDeclined:
		if isInvitee {
			return nil
		}
		return apperrors.ErrForbidden
	case "":
		if isInvitee {
			return nil
		}
	}

	owner, err := h.projects.IsOwner(requestContext(c), invite.ProjectInvitedToID, caller)
	if err != nil {
		return err
	}
	if !owner {
		return apperrors.ErrForbidden
	}
	return nil
}
