package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/endorhq/endor/internal/models"
	"github.com/endorhq/endor/internal/store"
	"github.com/endorhq/endor/pkg/logger"
	"github.com/endorhq/endor/pkg/mail"
	"github.com/endorhq/endor/pkg/metrics"
)

// ExpirationDateLayout renders dates as "27 November 2017".
const ExpirationDateLayout = "2 January 2006"

const msgOnlyOpenTransitions = "Only an OPEN invite can be accepted, rescinded, or declined."

const msgInviteReferenceMissing = "either the user or the project supplied does not exist"

// InviteNotifier delivers the notification sent when an invite is created.
type InviteNotifier interface {
	SendInviteEmail(ctx context.Context, user *models.User, project *models.Project, invite *models.Invite) error
}

// UserLookup loads a user by id.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// ProjectLookup loads a project by id.
type ProjectLookup interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
}

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteNotifier sends a notification after every successful create. users and
// projects supply the records handed to the notifier.
func WithInviteNotifier(notifier InviteNotifier, users UserLookup, projects ProjectLookup) InviteOption {
	return func(s *InviteService) {
		s.notifier = notifier
		s.users = users
		s.projects = projects
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInviteLogger overrides the logger used for notification failures.
func WithInviteLogger(log *zap.Logger) InviteOption {
	return func(s *InviteService) {
		if log != nil {
			s.log = log
		}
	}
}

// InviteService validates, creates, queries and transitions invites. It keeps no state
// between calls; every operation re-reads from the store.
type InviteService struct {
	invites  InviteStore
	notifier InviteNotifier
	users    UserLookup
	projects ProjectLookup
	now      func() time.Time
	log      *zap.Logger
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(invites InviteStore, opts ...InviteOption) (*InviteService, error) {
	if invites == nil {
		return nil, errors.New("invite service: store is required")
	}

	service := &InviteService{
		invites: invites,
		now:     time.Now,
		log:     logger.WithModule("invites"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// ComputeExpirationDate returns the calendar date days after createdAt, in UTC.
func ComputeExpirationDate(createdAt time.Time, days int) string {
	return createdAt.UTC().AddDate(0, 0, days).Format(ExpirationDateLayout)
}

// ExpirationDate renders the date on which invite lapses.
func (s *InviteService) ExpirationDate(invite *models.Invite) string {
	return ComputeExpirationDate(invite.CreatedAt, invite.DaysFromCreationUntilExpiration)
}

// Validate applies ValidateInvite.
func (s *InviteService) Validate(fields InviteFields, asNewInvite bool) ValidationErrors {
	return ValidateInvite(fields, asNewInvite)
}

// Create persists a new invite. days may be nil for the default window; zero creates
// the invite already expired.
func (s *InviteService) Create(ctx context.Context, projectID, userID string, days any, projectName string) (*models.Invite, error) {
	ctx = ensureContext(ctx)

	if days == nil {
		days = models.DefaultInviteExpirationDays
	}

	fields := InviteFields{
		UserInvitedID:                   strings.TrimSpace(userID),
		ProjectInvitedToID:              strings.TrimSpace(projectID),
		ProjectName:                     strings.TrimSpace(projectName),
		DaysFromCreationUntilExpiration: days,
	}
	if errs := ValidateInvite(fields, true); len(errs) > 0 {
		return nil, NewInvalidRequest(errs)
	}

	n, _ := ExpirationDays(days)
	status := models.InviteOpen
	if n == 0 {
		status = models.InviteExpired
	}

	invite := &models.Invite{
		ProjectInvitedToID:              fields.ProjectInvitedToID,
		UserInvitedID:                   fields.UserInvitedID,
		ProjectName:                     fields.ProjectName,
		Status:                          status,
		DaysFromCreationUntilExpiration: n,
		CreatedAt:                       s.now().UTC(),
	}

	if err := s.invites.CreateInvite(ctx, invite); err != nil {
		if errors.Is(err, store.ErrForeignKeyViolation) {
			return nil, InviteReferenceMissing().WithInternal(err)
		}
		return nil, fmt.Errorf("invite service: create invite: %w", err)
	}
	metrics.InvitesCreated.Inc()

	s.notify(ctx, invite)
	return invite, nil
}

// notify runs after the invite is durable; failures are logged and never returned.
func (s *InviteService) notify(ctx context.Context, invite *models.Invite) {
	if s.notifier == nil || s.users == nil || s.projects == nil {
		return
	}

	fields := []zap.Field{zap.String("invite_id", invite.ID)}

	user, err := s.users.GetUser(ctx, invite.UserInvitedID)
	if err != nil {
		metrics.InviteNotifications.WithLabelValues("failed").Inc()
		s.log.Warn("invite notification skipped: load user", append(fields, zap.Error(err))...)
		return
	}
	project, err := s.projects.GetProject(ctx, invite.ProjectInvitedToID)
	if err != nil {
		metrics.InviteNotifications.WithLabelValues("failed").Inc()
		s.log.Warn("invite notification skipped: load project", append(fields, zap.Error(err))...)
		return
	}

	err = s.notifier.SendInviteEmail(ctx, user, project, invite)
	switch {
	case err == nil:
		metrics.InviteNotifications.WithLabelValues("sent").Inc()
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.InviteNotifications.WithLabelValues("skipped").Inc()
	default:
		metrics.InviteNotifications.WithLabelValues("failed").Inc()
		s.log.Warn("invite notification failed", append(fields, zap.Error(err))...)
	}
}

// Update transitions an open invite to newStatus. Accepting also seats the invitee as a
// contributor in the same transaction, so an invite is never accepted without its membership.
func (s *InviteService) Update(ctx context.Context, inviteID, newStatus string) (*models.Invite, error) {
	ctx = ensureContext(ctx)

	status, err := models.ParseInviteStatus(newStatus)
	if err != nil {
		return nil, NewInvalidRequest(ValidationErrors{invalidStatusError()}).WithInternal(err)
	}

	invite, err := s.GetByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite.Status.Terminal() {
		return nil, invalidField(FieldStatus, msgOnlyOpenTransitions)
	}

	var changed bool
	if status == models.InviteAccepted {
		changed, err = s.invites.AcceptInvite(ctx, invite.ID)
	} else {
		changed, err = s.invites.UpdateInviteStatus(ctx, invite.ID, models.InviteOpen, status)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: update status: %w", err)
	}
	if !changed {
		// Another request moved the invite out of open between the read and the write.
		return nil, invalidField(FieldStatus, msgOnlyOpenTransitions)
	}
	if status != models.InviteOpen {
		metrics.InviteTransitions.WithLabelValues(string(status)).Inc()
	}

	return s.GetByID(ctx, invite.ID)
}

// GetByID loads an invite or fails with ErrInviteNotFound.
func (s *InviteService) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	ctx = ensureContext(ctx)

	invite, err := s.invites.GetInvite(ctx, strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: load invite: %w", err)
	}
	return invite, nil
}

// ListByProject returns a project's invites, optionally narrowed to one status.
func (s *InviteService) ListByProject(ctx context.Context, projectID, status string) ([]models.Invite, error) {
	filterStatus, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.list(ensureContext(ctx), store.InviteFilter{ProjectID: projectID, Status: filterStatus})
}

// ListByUser returns a user's invites, optionally narrowed to one status.
func (s *InviteService) ListByUser(ctx context.Context, userID, status string) ([]models.Invite, error) {
	filterStatus, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.list(ensureContext(ctx), store.InviteFilter{UserID: userID, Status: filterStatus})
}

func (s *InviteService) list(ctx context.Context, filter store.InviteFilter) ([]models.Invite, error) {
	if filter.ProjectID == "" && filter.UserID == "" {
		return []models.Invite{}, nil
	}
	invites, err := s.invites.ListInvites(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("invite service: list invites: %w", err)
	}
	if invites == nil {
		invites = []models.Invite{}
	}
	return invites, nil
}

// ExpireLapsed moves every open invite whose window closed before now to expired and
// returns how many were transitioned.
func (s *InviteService) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	ctx = ensureContext(ctx)

	open, err := s.invites.ListInvites(ctx, store.InviteFilter{Status: models.InviteOpen})
	if err != nil {
		return 0, fmt.Errorf("invite service: list open invites: %w", err)
	}

	expired := 0
	for i := range open {
		if !open[i].ExpiresAt().Before(now) {
			continue
		}
		changed, err := s.invites.UpdateInviteStatus(ctx, open[i].ID, models.InviteOpen, models.InviteExpired)
		if err != nil {
			return expired, fmt.Errorf("invite service: expire invite %s: %w", open[i].ID, err)
		}
		if changed {
			expired++
			metrics.InviteTransitions.WithLabelValues(string(models.InviteExpired)).Inc()
		}
	}
	return expired, nil
}
