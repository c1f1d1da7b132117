package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/services"
	"github.com/endorhq/endor/internal/store"
	apperrors "github.com/endorhq/endor/pkg/errors"
	"github.com/endorhq/endor/pkg/response"
)

// UserHandler serves account lookups and the caller's own profile mutations.
type UserHandler struct {
	users   *services.UserService
	invites *services.InviteService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *services.UserService, invites *services.InviteService) (*UserHandler, error) {
	if users == nil || invites == nil {
		return nil, errors.New("user handler: user and invite services are required")
	}
	return &UserHandler{users: users, invites: invites}, nil
}

type updateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=128"`
	LastName  *string `json:"last_name" validate:"omitempty,max=128"`
	Password  *string `json:"password" validate:"omitempty,min=8"`
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	opts := store.ListOptions{
		Limit:  pageLimit(c),
		Offset: parseIntQuery(c, "offset", 0),
	}
	users, total, err := h.users.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, mapUsers(users), pageMeta(opts, total))
}

// GET /api/users/:id accepts an id or a username.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetByIdentifier(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapUser(user))
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	if !h.isSelf(c) {
		return
	}

	var req updateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Update(requestContext(c), callerID(c), services.UpdateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapUser(user))
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if !h.isSelf(c) {
		return
	}

	if err := h.users.Delete(requestContext(c), callerID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/users/:id/projects/owned
func (h *UserHandler) ProjectsOwned(c *gin.Context) {
	projects, err := h.users.ProjectsOwned(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, projects)
}

// GET /api/users/:id/projects/contributed
func (h *UserHandler) ProjectsContributed(c *gin.Context) {
	projects, err := h.users.ProjectsContributed(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, projects)
}

// GET /api/users/:id/invites?status=
func (h *UserHandler) Invites(c *gin.Context) {
	if !h.isSelf(c) {
		return
	}

	invites, err := h.invites.ListByUser(requestContext(c), callerID(c), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapInvites(invites))
}

// isSelf resolves the :id parameter and writes 403 unless it names the caller.
func (h *UserHandler) isSelf(c *gin.Context) bool {
	user, err := h.users.GetByIdentifier(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return false
	}
	if user.ID != callerID(c) {
		response.Error(c, apperrors.ErrForbidden)
		return false
	}
	return true
}
