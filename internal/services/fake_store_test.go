package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/store"
)

// memStore is an in-memory stand-in for store.GormStore. It mirrors the gateway's
// error translation so services can be exercised without a database.
type memStore struct {
	mu sync.Mutex

	users       map[string]models.User
	projects    map[string]models.Project
	members     map[models.ProjectRole]map[string][]string
	invites     map[string]models.Invite
	inviteOrder []string
	tools       map[string]models.Tool
	credentials map[string]models.Credential

	listInviteCalls int
	failAccept      error
}

func newMemStore() *memStore {
	s := &memStore{
		users:       map[string]models.User{},
		projects:    map[string]models.Project{},
		members:     map[models.ProjectRole]map[string][]string{models.RoleOwner: {}, models.RoleContributor: {}},
		invites:     map[string]models.Invite{},
		tools:       map[string]models.Tool{},
		credentials: map[string]models.Credential{},
	}
	for _, id := range []string{"travis", "heroku", "docker", "gin", "gorm", "jest", "github"} {
		s.tools[id] = models.Tool{ID: id, Name: id, Category: models.ToolCategoryCI}
	}
	s.tools["heroku"] = models.Tool{ID: "heroku", Name: "Heroku", Category: models.ToolCategoryDeployment}
	return s
}

func (s *memStore) seedUser(username string) models.User {
	user := models.User{Username: username, Email: username + "@example.com"}
	if err := s.CreateUser(context.Background(), &user); err != nil {
		panic(err)
	}
	return user
}

func (s *memStore) seedProject(name, ownerID string) models.Project {
	project := models.Project{Name: name, Version: DefaultProjectVersion}
	if err := s.CreateProject(context.Background(), &project, ownerID); err != nil {
		panic(err)
	}
	return project
}

// users

func (s *memStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *memStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *memStore) ResolveUser(_ context.Context, identifier string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Matches(identifier) {
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) FindUserByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == login || user.Email == strings.ToLower(login) {
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) ListUsers(_ context.Context, opts store.ListOptions) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	total := int64(len(out))
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, total, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total, nil
}

func (s *memStore) UpdateUser(_ context.Context, id string, updates map[string]any) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for column, value := range updates {
		switch column {
		case "email":
			user.Email = value.(string)
		case "first_name":
			user.FirstName = value.(string)
		case "last_name":
			user.LastName = value.(string)
		case "password":
			user.Password = value.(string)
		}
	}
	s.users[id] = user
	return &user, nil
}

func (s *memStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	for _, byProject := range s.members {
		for projectID, ids := range byProject {
			byProject[projectID] = without(ids, id)
		}
	}
	return nil
}

func (s *memStore) ProjectsFor(_ context.Context, userID string, role models.ProjectRole) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Project
	for projectID, ids := range s.members[role] {
		project, ok := s.projects[projectID]
		if !ok || project.DeletedAt.Valid {
			continue
		}
		for _, id := range ids {
			if id == userID {
				out = append(out, project)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) SoleOwnedProjects(_ context.Context, userID string) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Project
	for projectID, ids := range s.members[models.RoleOwner] {
		project, ok := s.projects[projectID]
		if ok && !project.DeletedAt.Valid && len(ids) == 1 && ids[0] == userID {
			out = append(out, project)
		}
	}
	return out, nil
}

// projects

func (s *memStore) CreateProject(_ context.Context, project *models.Project, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ownerID]; !ok {
		return store.ErrForeignKeyViolation
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.CreatedAt = time.Now().UTC()
	s.projects[project.ID] = *project
	s.members[models.RoleOwner][project.ID] = []string{ownerID}
	return nil
}

func (s *memStore) GetProject(_ context.Context, id string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[id]
	if !ok || project.DeletedAt.Valid {
		return nil, store.ErrNotFound
	}
	return &project, nil
}

func (s *memStore) ListProjects(_ context.Context, filter store.ProjectFilter) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Project
	for _, project := range s.projects {
		if project.DeletedAt.Valid {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(project.Name), strings.ToLower(filter.Name)) {
			continue
		}
		out = append(out, project)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) UpdateProject(_ context.Context, id string, updates map[string]any) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[id]
	if !ok || project.DeletedAt.Valid {
		return nil, store.ErrNotFound
	}
	tools := map[string]**string{
		"ci_tool_id":             &project.CIToolID,
		"deployment_tool_id":     &project.DeploymentToolID,
		"container_tool_id":      &project.ContainerToolID,
		"web_framework_tool_id":  &project.WebFrameworkToolID,
		"orm_tool_id":            &project.ORMToolID,
		"test_tool_id":           &project.TestToolID,
		"source_control_tool_id": &project.SourceControlToolID,
	}
	for column, value := range updates {
		if ref, ok := tools[column]; ok {
			if value == nil {
				*ref = nil
			} else {
				v := value.(string)
				*ref = &v
			}
			continue
		}
		switch column {
		case "name":
			project.Name = value.(string)
		case "version":
			project.Version = value.(string)
		case "description":
			project.Description = value.(string)
		case "license":
			project.License = value.(string)
		case "authors":
			project.Authors = value.(datatypes.JSON)
		case "github_repo_name":
			project.GitHubRepoName = value.(string)
		case "heroku_app_id":
			project.HerokuAppID = value.(string)
		case "github_repo_id":
			v := value.(int64)
			project.GitHubRepoID = &v
		case "travis_repo_id":
			v := value.(int64)
			project.TravisRepoID = &v
		}
	}
	s.projects[id] = project
	return &project, nil
}

func (s *memStore) DeleteProject(_ context.Context, id string, hard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[id]
	if !ok || (!hard && project.DeletedAt.Valid) {
		return store.ErrNotFound
	}
	if hard {
		s.purge(id)
		return nil
	}
	project.DeletedAt = gorm.DeletedAt{Time: time.Now().UTC(), Valid: true}
	s.projects[id] = project
	return nil
}

func (s *memStore) PurgeDeletedProjects(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, project := range s.projects {
		if project.DeletedAt.Valid && project.DeletedAt.Time.Before(cutoff) {
			s.purge(id)
			purged++
		}
	}
	return purged, nil
}

func (s *memStore) purge(projectID string) {
	delete(s.projects, projectID)
	for _, byProject := range s.members {
		delete(byProject, projectID)
	}
	for id, invite := range s.invites {
		if invite.ProjectInvitedToID == projectID {
			delete(s.invites, id)
			s.inviteOrder = without(s.inviteOrder, id)
		}
	}
}

// membership

func (s *memStore) Members(_ context.Context, projectID string, role models.ProjectRole) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.User
	for _, id := range s.members[role][projectID] {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *memStore) AddMember(_ context.Context, projectID, userID string, role models.ProjectRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return store.ErrForeignKeyViolation
	}
	if _, ok := s.users[userID]; !ok {
		return store.ErrForeignKeyViolation
	}
	for _, id := range s.members[role][projectID] {
		if id == userID {
			return store.ErrDuplicate
		}
	}
	s.members[role][projectID] = append(s.members[role][projectID], userID)
	return nil
}

func (s *memStore) RemoveMember(_ context.Context, projectID, userID string, role models.ProjectRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.members[role][projectID]
	remaining := without(ids, userID)
	if len(remaining) == len(ids) {
		return store.ErrNotFound
	}
	s.members[role][projectID] = remaining
	return nil
}

// invites

func (s *memStore) CreateInvite(_ context.Context, invite *models.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[invite.ProjectInvitedToID]; !ok {
		return store.ErrForeignKeyViolation
	}
	if _, ok := s.users[invite.UserInvitedID]; !ok {
		return store.ErrForeignKeyViolation
	}
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	s.invites[invite.ID] = *invite
	s.inviteOrder = append(s.inviteOrder, invite.ID)
	return nil
}

func (s *memStore) GetInvite(_ context.Context, id string) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[id]
	if !ok || !s.liveProject(invite.ProjectInvitedToID) {
		return nil, store.ErrNotFound
	}
	return &invite, nil
}

func (s *memStore) liveProject(id string) bool {
	project, ok := s.projects[id]
	return ok && !project.DeletedAt.Valid
}

func (s *memStore) ListInvites(_ context.Context, filter store.InviteFilter) ([]models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listInviteCalls++
	var out []models.Invite
	for _, id := range s.inviteOrder {
		invite := s.invites[id]
		if !s.liveProject(invite.ProjectInvitedToID) {
			continue
		}
		if filter.ProjectID != "" && invite.ProjectInvitedToID != filter.ProjectID {
			continue
		}
		if filter.UserID != "" && invite.UserInvitedID != filter.UserID {
			continue
		}
		if filter.Status != "" && invite.Status != filter.Status {
			continue
		}
		out = append(out, invite)
	}
	return out, nil
}

func (s *memStore) UpdateInviteStatus(_ context.Context, id string, from, to models.InviteStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[id]
	if !ok || invite.Status != from {
		return false, nil
	}
	invite.Status = to
	s.invites[id] = invite
	return true, nil
}

func (s *memStore) AcceptInvite(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[id]
	if !ok || !s.liveProject(invite.ProjectInvitedToID) {
		return false, store.ErrNotFound
	}
	if invite.Status != models.InviteOpen {
		return false, nil
	}
	if s.failAccept != nil {
		return false, s.failAccept
	}

	invite.Status = models.InviteAccepted
	s.invites[id] = invite
	contributors := s.members[models.RoleContributor][invite.ProjectInvitedToID]
	for _, userID := range contributors {
		if userID == invite.UserInvitedID {
			return true, nil
		}
	}
	s.members[models.RoleContributor][invite.ProjectInvitedToID] = append(contributors, invite.UserInvitedID)
	return true, nil
}

// tools

func (s *memStore) ListTools(_ context.Context, category models.ToolCategory) ([]models.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Tool
	for _, tool := range s.tools {
		if category == "" || tool.Category == category {
			out = append(out, tool)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetTool(_ context.Context, id string) (*models.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tool, ok := s.tools[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &tool, nil
}

func (s *memStore) MissingTools(_ context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	for _, id := range ids {
		if _, ok := s.tools[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// credentials

func (s *memStore) UpsertCredential(_ context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[credential.UserID]; !ok {
		return store.ErrForeignKeyViolation
	}
	key := credential.UserID + "|" + credential.Provider
	if existing, ok := s.credentials[key]; ok {
		credential.ID = existing.ID
	} else if credential.ID == "" {
		credential.ID = uuid.NewString()
	}
	s.credentials[key] = *credential
	return nil
}

func (s *memStore) GetCredential(_ context.Context, userID, provider string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	credential, ok := s.credentials[userID+"|"+provider]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &credential, nil
}

func (s *memStore) ListCredentials(_ context.Context, userID string) ([]models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Credential
	for _, credential := range s.credentials {
		if credential.UserID == userID {
			out = append(out, credential)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (s *memStore) DeleteCredential(_ context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "|" + provider
	if _, ok := s.credentials[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.credentials, key)
	return nil
}

func without(ids []string, target string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

var (
	_ InviteStore     = (*memStore)(nil)
	_ MembershipStore = (*memStore)(nil)
	_ UserStore       = (*memStore)(nil)
	_ ProjectStore    = (*memStore)(nil)
	_ ToolStore       = (*memStore)(nil)
	_ CredentialStore = (*memStore)(nil)
)
