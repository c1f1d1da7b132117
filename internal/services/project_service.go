package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/pkg/validator"
)

// DefaultProjectVersion is assigned when a project is created without a version.
const DefaultProjectVersion = "0.1.0"

// ProjectTools selects catalogue entries for each project slot. Nil leaves a slot
// untouched on update; an empty string clears it.
type ProjectTools struct {
	CI            *string
	Deployment    *string
	Container     *string
	WebFramework  *string
	ORM           *string
	Test          *string
	SourceControl *string
}

func (t ProjectTools) columns() map[string]*string {
	return map[string]*string{
		"ci_tool_id":             t.CI,
		"deployment_tool_id":     t.Deployment,
		"container_tool_id":      t.Container,
		"web_framework_tool_id":  t.WebFramework,
		"orm_tool_id":            t.ORM,
		"test_tool_id":           t.Test,
		"source_control_tool_id": t.SourceControl,
	}
}

// CreateProjectInput captures new project metadata.
type CreateProjectInput struct {
	Name           string
	Description    string
	Version        string
	License        string
	Authors        []string
	Tools          ProjectTools
	GitHubRepoID   *int64
	GitHubRepoName string
	TravisRepoID   *int64
	HerokuAppID    string
}

// UpdateProjectInput describes mutable project fields. Nil pointers are left unchanged.
type UpdateProjectInput struct {
	Name           *string
	Description    *string
	Version        *string
	License        *string
	Authors        *[]string
	Tools          ProjectTools
	GitHubRepoID   *int64
	GitHubRepoName *string
	TravisRepoID   *int64
	HerokuAppID    *string
}

// ProjectService orchestrates project CRUD and membership changes.
type ProjectService struct {
	projects ProjectStore
	users    UserStore
	tools    ToolStore
	policy   *MembershipPolicy
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(projects ProjectStore, users UserStore, tools ToolStore, policy *MembershipPolicy) (*ProjectService, error) {
	switch {
	case projects == nil:
		return nil, errors.New("project service: project store is required")
	case users == nil:
		return nil, errors.New("project service: user store is required")
	case tools == nil:
		return nil, errors.New("project service: tool store is required")
	case policy == nil:
		return nil, errors.New("project service: membership policy is required")
	}
	return &ProjectService{projects: projects, users: users, tools: tools, policy: policy}, nil
}

// Create registers a project with creatorID as its first owner.
func (s *ProjectService) Create(ctx context.Context, creatorID string, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	version := strings.TrimSpace(input.Version)
	if version == "" {
		version = DefaultProjectVersion
	}

	var errs ValidationErrors
	name := strings.TrimSpace(input.Name)
	if name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required"})
	}
	errs = append(errs, checkVersion(version)...)
	toolErrs, err := s.checkTools(ctx, input.Tools)
	if err != nil {
		return nil, err
	}
	errs = append(errs, toolErrs...)
	if len(errs) > 0 {
		return nil, NewInvalidRequest(errs)
	}

	creator, err := s.users.GetUser(ctx, creatorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: load creator: %w", err)
	}

	authors, err := encodeAuthors(input.Authors)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		Version:        version,
		License:        strings.TrimSpace(input.License),
		Authors:        authors,
		GitHubRepoID:   input.GitHubRepoID,
		GitHubRepoName: strings.TrimSpace(input.GitHubRepoName),
		TravisRepoID:   input.TravisRepoID,
		HerokuAppID:    strings.TrimSpace(input.HerokuAppID),
	}
	assignTools(project, input.Tools)

	if err := s.projects.CreateProject(ctx, project, creator.ID); err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}
	return project, nil
}

// Get loads a live project.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.projects.GetProject(ensureContext(ctx), strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: load project: %w", err)
	}
	return project, nil
}

// List returns live projects matching filter.
func (s *ProjectService) List(ctx context.Context, filter store.ProjectFilter) ([]models.Project, error) {
	projects, err := s.projects.ListProjects(ensureContext(ctx), filter)
	if err != nil {
		return nil, fmt.Errorf("project service: list projects: %w", err)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// Update modifies project metadata.
func (s *ProjectService) Update(ctx context.Context, id string, input UpdateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	var errs ValidationErrors

	if name := trimmedPtr(input.Name); name != nil {
		if *name == "" {
			errs = append(errs, ValidationError{Field: "name", Message: "name cannot be empty"})
		} else if *name != project.Name {
			updates["name"] = *name
		}
	}
	if version := trimmedPtr(input.Version); version != nil {
		if verrs := checkVersion(*version); len(verrs) > 0 {
			errs = append(errs, verrs...)
		} else {
			updates["version"] = *version
		}
	}
	if v := trimmedPtr(input.Description); v != nil {
		updates["description"] = *v
	}
	if v := trimmedPtr(input.License); v != nil {
		updates["license"] = *v
	}
	if input.Authors != nil {
		authors, err := encodeAuthors(*input.Authors)
		if err != nil {
			return nil, err
		}
		updates["authors"] = authors
	}
	if input.GitHubRepoID != nil {
		updates["github_repo_id"] = *input.GitHubRepoID
	}
	if v := trimmedPtr(input.GitHubRepoName); v != nil {
		updates["github_repo_name"] = *v
	}
	if input.TravisRepoID != nil {
		updates["travis_repo_id"] = *input.TravisRepoID
	}
	if v := trimmedPtr(input.HerokuAppID); v != nil {
		updates["heroku_app_id"] = *v
	}

	toolErrs, err := s.checkTools(ctx, input.Tools)
	if err != nil {
		return nil, err
	}
	errs = append(errs, toolErrs...)
	for column, ref := range input.Tools.columns() {
		if ref == nil {
			continue
		}
		if value := strings.TrimSpace(*ref); value != "" {
			updates[column] = value
		} else {
			updates[column] = nil
		}
	}

	if len(errs) > 0 {
		return nil, NewInvalidRequest(errs)
	}
	if len(updates) == 0 {
		return project, nil
	}

	updated, err := s.projects.UpdateProject(ctx, project.ID, updates)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: update project: %w", err)
	}
	return updated, nil
}

// Delete soft deletes a project, or removes it permanently when hard is set.
func (s *ProjectService) Delete(ctx context.Context, id string, hard bool) error {
	err := s.projects.DeleteProject(ensureContext(ctx), strings.TrimSpace(id), hard)
	if errors.Is(err, store.ErrNotFound) {
		return ErrProjectNotFound
	}
	if err != nil {
		return fmt.Errorf("project service: delete project: %w", err)
	}
	return nil
}

// PurgeDeleted permanently removes projects soft deleted more than retention ago.
func (s *ProjectService) PurgeDeleted(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	purged, err := s.projects.PurgeDeletedProjects(ensureContext(ctx), now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("project service: purge projects: %w", err)
	}
	return purged, nil
}

// ListOwners returns the owners of a project.
func (s *ProjectService) ListOwners(ctx context.Context, projectID string) ([]models.User, error) {
	return s.members(ensureContext(ctx), projectID, models.RoleOwner)
}

// ListContributors returns the contributors of a project.
func (s *ProjectService) ListContributors(ctx context.Context, projectID string) ([]models.User, error) {
	return s.members(ensureContext(ctx), projectID, models.RoleContributor)
}

// AddOwner grants ownership to the user named by identifier and returns the new owner list.
func (s *ProjectService) AddOwner(ctx context.Context, projectID, identifier string) ([]models.User, error) {
	return s.mutate(ensureContext(ctx), projectID, identifier, models.RoleOwner, s.policy.AddOwner)
}

// RemoveOwner revokes ownership and returns the remaining owners.
func (s *ProjectService) RemoveOwner(ctx context.Context, projectID, identifier string) ([]models.User, error) {
	return s.mutate(ensureContext(ctx), projectID, identifier, models.RoleOwner, s.policy.RemoveOwner)
}

// AddContributor grants contributor access and returns the new contributor list.
func (s *ProjectService) AddContributor(ctx context.Context, projectID, identifier string) ([]models.User, error) {
	return s.mutate(ensureContext(ctx), projectID, identifier, models.RoleContributor, s.policy.AddContributor)
}

// RemoveContributor revokes contributor access and returns the remaining contributors.
func (s *ProjectService) RemoveContributor(ctx context.Context, projectID, identifier string) ([]models.User, error) {
	return s.mutate(ensureContext(ctx), projectID, identifier, models.RoleContributor, s.policy.RemoveContributor)
}

// IsOwner reports whether identifier owns the project. A missing project yields
// ErrProjectNotFound rather than false.
func (s *ProjectService) IsOwner(ctx context.Context, projectID, identifier string) (bool, error) {
	ctx = ensureContext(ctx)
	if _, err := s.Get(ctx, projectID); err != nil {
		return false, err
	}
	return s.policy.IsOwner(ctx, projectID, identifier)
}

// IsContributor reports whether identifier contributes to the project.
func (s *ProjectService) IsContributor(ctx context.Context, projectID, identifier string) (bool, error) {
	return s.policy.IsContributor(ctx, projectID, identifier)
}

func (s *ProjectService) members(ctx context.Context, projectID string, role models.ProjectRole) ([]models.User, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.policy.Members(ctx, project.ID, role)
}

func (s *ProjectService) mutate(
	ctx context.Context,
	projectID, identifier string,
	role models.ProjectRole,
	apply func(ctx context.Context, projectID, userID string) error,
) ([]models.User, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.ResolveUser(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: resolve user: %w", err)
	}

	if err := apply(ctx, project.ID, user.ID); err != nil {
		return nil, err
	}
	return s.policy.Members(ctx, project.ID, role)
}

func (s *ProjectService) checkTools(ctx context.Context, tools ProjectTools) (ValidationErrors, error) {
	byID := map[string][]string{}
	for column, ref := range tools.columns() {
		if ref == nil || strings.TrimSpace(*ref) == "" {
			continue
		}
		id := strings.TrimSpace(*ref)
		byID[id] = append(byID[id], column)
	}
	if len(byID) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	missing, err := s.tools.MissingTools(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("project service: check tools: %w", err)
	}

	var errs ValidationErrors
	for _, id := range missing {
		columns := byID[id]
		sort.Strings(columns)
		for _, column := range columns {
			errs = append(errs, ValidationError{Field: column, Message: describeMissing("tool", []string{id})})
		}
	}
	return errs, nil
}

func checkVersion(version string) ValidationErrors {
	if err := validator.Var("version", version, "required,semver"); err != nil {
		return ValidationErrors{{Field: "version", Message: "version must be a semantic version such as 1.2.3"}}
	}
	return nil
}

func assignTools(project *models.Project, tools ProjectTools) {
	project.CIToolID = nonEmpty(tools.CI)
	project.DeploymentToolID = nonEmpty(tools.Deployment)
	project.ContainerToolID = nonEmpty(tools.Container)
	project.WebFrameworkToolID = nonEmpty(tools.WebFramework)
	project.ORMToolID = nonEmpty(tools.ORM)
	project.TestToolID = nonEmpty(tools.Test)
	project.SourceControlToolID = nonEmpty(tools.SourceControl)
}

func nonEmpty(value *string) *string {
	if value = trimmedPtr(value); value == nil || *value == "" {
		return nil
	}
	return value
}

func encodeAuthors(authors []string) (datatypes.JSON, error) {
	cleaned := make([]string, 0, len(authors))
	for _, author := range authors {
		if author = strings.TrimSpace(author); author != "" {
			cleaned = append(cleaned, author)
		}
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("project service: encode authors: %w", err)
	}
	return datatypes.JSON(raw), nil
}
