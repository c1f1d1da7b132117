package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/services"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/pkg/response"
)

// ProjectHandler serves project CRUD and membership routes. Ownership of mutating
// routes is enforced by middleware.RequireProjectOwner in the router.
type ProjectHandler struct {
	projects *services.ProjectService
	invites  *services.InviteService
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(projects *services.ProjectService, invites *services.InviteService) (*ProjectHandler, error) {
	if projects == nil || invites == nil {
		return nil, errors.New("project handler: project and invite services are required")
	}
	return &ProjectHandler{projects: projects, invites: invites}, nil
}

type projectToolsRequest struct {
	CIToolID            *string `json:"ci_tool_id"`
	DeploymentToolID    *string `json:"deployment_tool_id"`
	ContainerToolID     *string `json:"container_tool_id"`
	WebFrameworkToolID  *string `json:"web_framework_tool_id"`
	ORMToolID           *string `json:"orm_tool_id"`
	TestToolID          *string `json:"test_tool_id"`
	SourceControlToolID *string `json:"source_control_tool_id"`
}

func (r projectToolsRequest) tools() services.ProjectTools {
	return services.ProjectTools{
		CI:            r.CIToolID,
		Deployment:    r.DeploymentToolID,
		Container:     r.ContainerToolID,
		WebFramework:  r.WebFrameworkToolID,
		ORM:           r.ORMToolID,
		Test:          r.TestToolID,
		SourceControl: r.SourceControlToolID,
	}
}

type createProjectRequest struct {
	projectToolsRequest
	Name           string   `json:"name" validate:"required,max=255"`
	Description    string   `json:"description"`
	Version        string   `json:"version"`
	License        string   `json:"license" validate:"omitempty,max=64"`
	Authors        []string `json:"authors"`
	GitHubRepoID   *int64   `json:"github_repo_id"`
	GitHubRepoName string   `json:"github_repo_name"`
	TravisRepoID   *int64   `json:"travis_repo_id"`
	HerokuAppID    string   `json:"heroku_app_id"`
}

type updateProjectRequest struct {
	projectToolsRequest
	Name           *string   `json:"name" validate:"omitempty,max=255"`
	Description    *string   `json:"description"`
	Version        *string   `json:"version"`
	License        *string   `json:"license" validate:"omitempty,max=64"`
	Authors        *[]string `json:"authors"`
	GitHubRepoID   *int64    `json:"github_repo_id"`
	GitHubRepoName *string   `json:"github_repo_name"`
	TravisRepoID   *int64    `json:"travis_repo_id"`
	HerokuAppID    *string   `json:"heroku_app_id"`
}

type memberRequest struct {
	User string `json:"user" validate:"required"`
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Create(requestContext(c), callerID(c), services.CreateProjectInput{
		Name:           req.Name,
		Description:    req.Description,
		Version:        req.Version,
		License:        req.License,
		Authors:        req.Authors,
		Tools:          req.tools(),
		GitHubRepoID:   req.GitHubRepoID,
		GitHubRepoName: req.GitHubRepoName,
		TravisRepoID:   req.TravisRepoID,
		HerokuAppID:    req.HerokuAppID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, project)
}

// GET /api/projects?name=
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(requestContext(c), store.ProjectFilter{
		Name: strings.TrimSpace(c.Query("name")),
		ListOptions: store.ListOptions{
			Limit:  pageLimit(c),
			Offset: parseIntQuery(c, "offset", 0),
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, projects)
}

// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// PATCH /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Update(requestContext(c), c.Param("id"), services.UpdateProjectInput{
		Name:           req.Name,
		Description:    req.Description,
		Version:        req.Version,
		License:        req.License,
		Authors:        req.Authors,
		Tools:          req.tools(),
		GitHubRepoID:   req.GitHubRepoID,
		GitHubRepoName: req.GitHubRepoName,
		TravisRepoID:   req.TravisRepoID,
		HerokuAppID:    req.HerokuAppID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// DELETE /api/projects/:id?hard=true
func (h *ProjectHandler) Delete(c *gin.Context) {
	hard := queryBool(c, "hard")
	if err := h.projects.Delete(requestContext(c), c.Param("id"), hard); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "hard": hard})
}

// GET /api/projects/:id/owners
func (h *ProjectHandler) ListOwners(c *gin.Context) {
	h.respondMembers(c, h.projects.ListOwners)
}

// GET /api/projects/:id/contributors
func (h *ProjectHandler) ListContributors(c *gin.Context) {
	h.respondMembers(c, h.projects.ListContributors)
}

// POST /api/projects/:id/owners
func (h *ProjectHandler) AddOwner(c *gin.Context) {
	h.addMember(c, models.RoleOwner)
}

// POST /api/projects/:id/contributors
func (h *ProjectHandler) AddContributor(c *gin.Context) {
	h.addMember(c, models.RoleContributor)
}

// DELETE /api/projects/:id/owners/:user
func (h *ProjectHandler) RemoveOwner(c *gin.Context) {
	users, err := h.projects.RemoveOwner(requestContext(c), c.Param("id"), c.Param("user"))
	h.respondMutation(c, http.StatusOK, users, err)
}

// DELETE /api/projects/:id/contributors/:user
func (h *ProjectHandler) RemoveContributor(c *gin.Context) {
	users, err := h.projects.RemoveContributor(requestContext(c), c.Param("id"), c.Param("user"))
	h.respondMutation(c, http.StatusOK, users, err)
}

// GET /api/projects/:id/invites?status=
func (h *ProjectHandler) Invites(c *gin.Context) {
	invites, err := h.invites.ListByProject(requestContext(c), c.Param("id"), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapInvites(invites))
}

func (h *ProjectHandler) addMember(c *gin.Context, role models.ProjectRole) {
	var req memberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	add := h.projects.AddContributor
	if role == models.RoleOwner {
		add = h.projects.AddOwner
	}
	users, err := add(requestContext(c), c.Param("id"), strings.TrimSpace(req.User))
	h.respondMutation(c, http.StatusCreated, users, err)
}

func (h *ProjectHandler) respondMembers(c *gin.Context, list func(ctx context.Context, projectID string) ([]models.User, error)) {
	users, err := list(requestContext(c), c.Param("id"))
	h.respondMutation(c, http.StatusOK, users, err)
}

func (h *ProjectHandler) respondMutation(c *gin.Context, status int, users []models.User, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status, mapUsers(users))
}
