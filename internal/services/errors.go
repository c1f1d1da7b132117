package services

import (
	"net/http"

	apperrors "github.com/endorhq/endor/pkg/errors"
)

var (
	// ErrInvalidRequest is the kind shared by every caller-data error. Instances carry the
	// individual violations in Details.
	ErrInvalidRequest = apperrors.New("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)

	// ErrInviteNotFound indicates no invite matches the provided id.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invite not found", http.StatusNotFound)
	// ErrProjectNotFound indicates the requested project does not exist or was deleted.
	ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrToolNotFound indicates the requested catalogue entry does not exist.
	ErrToolNotFound = apperrors.New("TOOL_NOT_FOUND", "Tool not found", http.StatusNotFound)
	// ErrCredentialNotFound indicates the user has not connected the provider.
	ErrCredentialNotFound = apperrors.New("CREDENTIAL_NOT_FOUND", "Integration not connected", http.StatusNotFound)
	// ErrMembershipNotFound indicates the user does not hold the role being removed.
	ErrMembershipNotFound = apperrors.New("MEMBERSHIP_NOT_FOUND", "User does not hold this role on the project", http.StatusNotFound)

	// ErrMembershipDuplicate signals the user already holds the role being granted.
	ErrMembershipDuplicate = apperrors.New("MEMBERSHIP_DUPLICATE", "User already holds this role on the project", http.StatusConflict)
	// ErrUserDuplicate signals a username or email collision.
	ErrUserDuplicate = apperrors.New("USER_DUPLICATE", "Username or email already registered", http.StatusConflict)
	// ErrLastOwner prevents a project from losing its final owner.
	ErrLastOwner = apperrors.New("PROJECT_LAST_OWNER", "A project must retain at least one owner", http.StatusConflict)
)

// NewInvalidRequest builds an InvalidRequest error carrying every violation.
func NewInvalidRequest(errs ValidationErrors) *apperrors.AppError {
	details := make([]apperrors.FieldError, 0, len(errs))
	for _, e := range errs {
		details = append(details, apperrors.FieldError{Field: e.Field, Message: e.Message})
	}

	err := ErrInvalidRequest.WithDetails(details...)
	if len(errs) == 1 {
		err.Message = errs[0].Message
	} else if len(errs) > 1 {
		err.Message = errs.Error()
	}
	return err
}

func invalidField(field, message string) *apperrors.AppError {
	return NewInvalidRequest(ValidationErrors{{Field: field, Message: message}})
}

// InviteReferenceMissing is the InvalidRequest returned when an invite names a user or
// project that does not exist.
func InviteReferenceMissing() *apperrors.AppError {
	return invalidField("invite", msgInviteReferenceMissing)
}
