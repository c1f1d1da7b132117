package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/store"
	appErrors "github.com/endorhq/endor/pkg/errors"
	"github.com/endorhq/endor/pkg/response"
	appValidator "github.com/endorhq/endor/pkg/validator"
)

const maxPageSize = 200

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationFailure(err))
		return false
	}

	return true
}

func validationFailure(err error) *appErrors.AppError {
	ve, ok := err.(appValidator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return appErrors.NewBadRequest("invalid request payload")
	}

	messages := make([]string, 0, len(ve))
	details := make([]appErrors.FieldError, 0, len(ve))
	for _, failure := range ve {
		msg := describeFailure(failure)
		messages = append(messages, msg)
		details = append(details, appErrors.FieldError{Field: failure.Field, Message: msg})
	}

	appErr := appErrors.NewBadRequest(strings.Join(messages, "; "))
	appErr.Details = details
	return appErr
}

func describeFailure(failure appValidator.ValidationError) string {
	field := failure.Field
	if field == "" {
		field = "field"
	}
	switch failure.Tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, failure.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, failure.Param)
	case "alphanumunicode", "alphanum":
		return fmt.Sprintf("%s may only contain letters and digits", field)
	case "semver":
		return fmt.Sprintf("%s must be a semantic version", field)
	default:
		if failure.Param != "" {
			return fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param)
		}
		return fmt.Sprintf("%s failed validation: %s", field, failure.Tag)
	}
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func pageLimit(c *gin.Context) int {
	limit := parseIntQuery(c, "limit", 0)
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// pageMeta describes the page opts selected out of total rows. An unbounded limit is
// reported as a single page.
func pageMeta(opts store.ListOptions, total int64) *response.Meta {
	perPage := opts.Limit
	if perPage <= 0 {
		perPage = int(total)
	}
	meta := &response.Meta{Page: 1, PerPage: perPage, Total: int(total)}
	if perPage > 0 {
		meta.Page = opts.Offset/perPage + 1
		meta.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return meta
}
