package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/endorhq/endor/internal/models"
)

// Invite field names as they appear in validation results and request payloads.
const (
	FieldStatus             = "status"
	FieldUserInvitedID      = "user_invited_id"
	FieldProjectInvitedToID = "project_invited_to_id"
	FieldProjectName        = "project_name"
	FieldDaysUntilExpiry    = "days_from_creation_until_expiration"
)

// ValidationError is a single violation found while checking caller data.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every violation found in one pass.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Has reports whether any violation concerns field.
func (errs ValidationErrors) Has(field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

// InviteFields is the loosely typed invite shape being validated. Absent values are nil
// or empty. DaysFromCreationUntilExpiration stays untyped because it arrives straight
// from decoded JSON and its type is part of what is checked.
type InviteFields struct {
	UserInvitedID                   string
	ProjectInvitedToID              string
	ProjectName                     string
	Status                          *string
	DaysFromCreationUntilExpiration any
}

// ValidateInvite checks fields and returns every violation. asNewInvite selects the
// creation rules; otherwise the update rules apply.
func ValidateInvite(fields InviteFields, asNewInvite bool) ValidationErrors {
	var errs ValidationErrors

	if asNewInvite {
		if strings.TrimSpace(fields.UserInvitedID) == "" {
			errs = append(errs, ValidationError{Field: FieldUserInvitedID, Message: "user_invited_id is required"})
		}
		if strings.TrimSpace(fields.ProjectInvitedToID) == "" {
			errs = append(errs, ValidationError{Field: FieldProjectInvitedToID, Message: "project_invited_to_id is required"})
		}
		if strings.TrimSpace(fields.ProjectName) == "" {
			errs = append(errs, ValidationError{Field: FieldProjectName, Message: "project_name is required"})
		}
	} else if fields.Status == nil {
		errs = append(errs, ValidationError{Field: FieldStatus, Message: "status is required"})
	}

	if fields.DaysFromCreationUntilExpiration != nil {
		if _, ok := ExpirationDays(fields.DaysFromCreationUntilExpiration); !ok {
			errs = append(errs, ValidationError{
				Field:   FieldDaysUntilExpiry,
				Message: "days_from_creation_until_expiration must be a non-negative integer",
			})
		}
	}

	if fields.Status != nil && !models.InviteStatus(*fields.Status).Valid() {
		errs = append(errs, invalidStatusError())
	}

	return errs
}

func invalidStatusError() ValidationError {
	return ValidationError{
		Field:   FieldStatus,
		Message: "status must be one of: " + models.InviteStatusList(),
	}
}

// ExpirationDays converts a decoded value into a day count. Only whole, non-negative
// numbers are accepted; booleans and strings are rejected even when numeric-looking.
func ExpirationDays(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, v >= 0 && v <= math.MaxInt32
	case int8:
		return int(v), v >= 0
	case int16:
		return int(v), v >= 0
	case int32:
		return int(v), v >= 0
	case int64:
		return int(v), v >= 0 && v <= math.MaxInt32
	case uint:
		return int(v), v <= math.MaxInt32
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), v <= math.MaxInt32
	case uint64:
		return int(v), v <= math.MaxInt32
	case float32:
		return floatDays(float64(v))
	case float64:
		return floatDays(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), n >= 0 && n <= math.MaxInt32
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatDays(f)
	default:
		return 0, false
	}
}

func floatDays(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// statusFilter parses an optional list filter. Empty means unfiltered.
func statusFilter(raw string) (models.InviteStatus, error) {
	if raw == "" {
		return "", nil
	}
	status, err := models.ParseInviteStatus(raw)
	if err != nil {
		return "", NewInvalidRequest(ValidationErrors{invalidStatusError()}).WithInternal(err)
	}
	return status, nil
}

func describeMissing(kind string, ids []string) string {
	return fmt.Sprintf("unknown %s: %s", kind, strings.Join(ids, ", "))
}
