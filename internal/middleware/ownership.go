package middleware

import (
	"context"
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endorhq/endor/pkg/errors"
	"github.com/endorhq/endor/pkg/logger"
	"github.com/endorhq/endor/pkg/metrics"
	"github.com/endorhq/endor/pkg/response"
)

// OwnershipChecker reports whether a user owns a project.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, projectID, identifier string) (bool, error)
}

// RequireProjectOwner lets the request through only when the authenticated user owns
// the project named by the param route parameter.
func RequireProjectOwner(checker OwnershipChecker, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		projectID := c.Param(param)
		allowed, err := checker.IsOwner(c.Request.Context(), projectID, userID)
		if err != nil {
			metrics.OwnershipChecks.WithLabelValues("error").Inc()
			var appErr *errors.AppError
			if stderrors.As(err, &appErr) && appErr.StatusCode < 500 {
				response.Error(c, appErr)
				c.Abort()
				return
			}
			logger.WithModule("http").Error("ownership check failed",
				zap.String("project_id", projectID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}
		if !allowed {
			metrics.OwnershipChecks.WithLabelValues("denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.OwnershipChecks.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
