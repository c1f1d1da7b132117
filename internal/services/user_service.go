package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/pkg/crypto"
	apperrors "github.com/endorhq/endor/pkg/errors"
	"github.com/endorhq/endor/pkg/metrics"
)

const minPasswordLength = 8

// RegisterUserInput describes the fields accepted when registering a user.
type RegisterUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateUserInput enumerates mutable user attributes.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Password  *string
}

// UserService manages user accounts and their project relationships.
type UserService struct {
	users UserStore
}

// NewUserService constructs a UserService instance.
func NewUserService(users UserStore) (*UserService, error) {
	if users == nil {
		return nil, errors.New("user service: store is required")
	}
	return &UserService{users: users}, nil
}

// Register provisions a new user with a hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var errs ValidationErrors
	if username == "" {
		errs = append(errs, ValidationError{Field: "username", Message: "username is required"})
	}
	if email == "" {
		errs = append(errs, ValidationError{Field: "email", Message: "email is required"})
	}
	if len(input.Password) < minPasswordLength {
		errs = append(errs, ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
	}
	if len(errs) > 0 {
		return nil, NewInvalidRequest(errs)
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserDuplicate.WithInternal(err)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies a username or email and password pair.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.users.FindUserByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, store.ErrNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}
	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// GetByID loads a user by id.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUser(ensureContext(ctx), strings.TrimSpace(id))
	return userResult(user, err)
}

// GetByIdentifier loads a user by id or username.
func (s *UserService) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	user, err := s.users.ResolveUser(ensureContext(ctx), identifier)
	return userResult(user, err)
}

// List returns users ordered by username.
func (s *UserService) List(ctx context.Context, opts store.ListOptions) ([]models.User, int64, error) {
	users, total, err := s.users.ListUsers(ensureContext(ctx), opts)
	if err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, total, nil
}

// Update modifies profile fields and optionally the password.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if email := trimmedPtr(input.Email); email != nil {
		if *email == "" {
			return nil, invalidField("email", "email cannot be empty")
		}
		updates["email"] = strings.ToLower(*email)
	}
	if v := trimmedPtr(input.FirstName); v != nil {
		updates["first_name"] = *v
	}
	if v := trimmedPtr(input.LastName); v != nil {
		updates["last_name"] = *v
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, invalidField("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		}
		hashed, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		updates["password"] = hashed
	}
	if len(updates) == 0 {
		return user, nil
	}

	updated, err := s.users.UpdateUser(ctx, user.ID, updates)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrUserDuplicate.WithInternal(err)
	}
	return userResult(updated, err)
}

// Delete removes a user unless they are the only owner of a live project.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	sole, err := s.users.SoleOwnedProjects(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("user service: check ownership: %w", err)
	}
	if len(sole) > 0 {
		names := make([]string, len(sole))
		for i := range sole {
			names[i] = sole[i].Name
		}
		return ErrLastOwner.WithDetails(apperrors.FieldError{
			Field:   "projects",
			Message: "user is the only owner of: " + strings.Join(names, ", "),
		})
	}

	if err := s.users.DeleteUser(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("user service: delete user: %w", err)
	}
	return nil
}

// ProjectsOwned lists the live projects the user owns.
func (s *UserService) ProjectsOwned(ctx context.Context, id string) ([]models.Project, error) {
	return s.projects(ensureContext(ctx), id, models.RoleOwner)
}

// ProjectsContributed lists the live projects the user contributes to.
func (s *UserService) ProjectsContributed(ctx context.Context, id string) ([]models.Project, error) {
	return s.projects(ensureContext(ctx), id, models.RoleContributor)
}

func (s *UserService) projects(ctx context.Context, identifier string, role models.ProjectRole) ([]models.Project, error) {
	user, err := s.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	projects, err := s.users.ProjectsFor(ctx, user.ID, role)
	if err != nil {
		return nil, fmt.Errorf("user service: list %s projects: %w", role, err)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

func userResult(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return user, nil
}
