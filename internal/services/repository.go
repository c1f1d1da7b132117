package services

import (
	"context"
	"time"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/store"
)

// InviteStore persists invites. Implementations translate missing rows to
// store.ErrNotFound and broken references to store.ErrForeignKeyViolation. Invites of
// soft deleted projects are treated as missing.
type InviteStore interface {
	CreateInvite(ctx context.Context, invite *models.Invite) error
	GetInvite(ctx context.Context, id string) (*models.Invite, error)
	ListInvites(ctx context.Context, filter store.InviteFilter) ([]models.Invite, error)
	UpdateInviteStatus(ctx context.Context, id string, from, to models.InviteStatus) (bool, error)
	AcceptInvite(ctx context.Context, id string) (bool, error)
}

// MembershipStore manages the owner and contributor relations of a project.
type MembershipStore interface {
	Members(ctx context.Context, projectID string, role models.ProjectRole) ([]models.User, error)
	AddMember(ctx context.Context, projectID, userID string, role models.ProjectRole) error
	RemoveMember(ctx context.Context, projectID, userID string, role models.ProjectRole) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ResolveUser(ctx context.Context, identifier string) (*models.User, error)
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	ListUsers(ctx context.Context, opts store.ListOptions) ([]models.User, int64, error)
	UpdateUser(ctx context.Context, id string, updates map[string]any) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	ProjectsFor(ctx context.Context, userID string, role models.ProjectRole) ([]models.Project, error)
	SoleOwnedProjects(ctx context.Context, userID string) ([]models.Project, error)
}

// ProjectStore persists projects.
type ProjectStore interface {
	CreateProject(ctx context.Context, project *models.Project, ownerID string) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, filter store.ProjectFilter) ([]models.Project, error)
	UpdateProject(ctx context.Context, id string, updates map[string]any) (*models.Project, error)
	DeleteProject(ctx context.Context, id string, hard bool) error
	PurgeDeletedProjects(ctx context.Context, cutoff time.Time) (int64, error)
}

// ToolStore reads the tool catalogue.
type ToolStore interface {
	ListTools(ctx context.Context, category models.ToolCategory) ([]models.Tool, error)
	GetTool(ctx context.Context, id string) (*models.Tool, error)
	MissingTools(ctx context.Context, ids []string) ([]string, error)
}

// CredentialStore persists encrypted integration tokens.
type CredentialStore interface {
	UpsertCredential(ctx context.Context, credential *models.Credential) error
	GetCredential(ctx context.Context, userID, provider string) (*models.Credential, error)
	ListCredentials(ctx context.Context, userID string) ([]models.Credential, error)
	DeleteCredential(ctx context.Context, userID, provider string) error
}

var (
	_ InviteStore     = (*store.GormStore)(nil)
	_ MembershipStore = (*store.GormStore)(nil)
	_ UserStore       = (*store.GormStore)(nil)
	_ ProjectStore    = (*store.GormStore)(nil)
	_ ToolStore       = (*store.GormStore)(nil)
	_ CredentialStore = (*store.GormStore)(nil)
)
