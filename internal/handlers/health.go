package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/endorhq/endor/internal/monitoring"
	"github.com/endorhq/endor/pkg/errors"
	"github.com/endorhq/endor/pkg/logger"
	"github.com/endorhq/endor/pkg/response"
)

const healthCheckTimeout = 5 * time.Second

// ErrUnavailable is returned by /health when a required dependency is down.
var ErrUnavailable = errors.New("SERVICE_UNAVAILABLE", "Service unavailable", http.StatusServiceUnavailable)

// Health evaluates the readiness probes. A down component yields 503 without probe
// details; degraded components are reported with 200.
func Health(probes *monitoring.Manager) gin.HandlerFunc {
	if probes == nil {
		probes = monitoring.NewManager()
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthCheckTimeout)
		defer cancel()

		report := probes.Evaluate(ctx)
		if !report.Ready() {
			log := logger.WithModule("health")
			for _, check := range report.Checks {
				if check.Status != monitoring.StatusUp {
					log.Warn("health probe failed",
						zap.String("component", check.Component),
						zap.String("status", string(check.Status)),
						zap.String("details", check.Details),
					)
				}
			}
			response.Error(c, ErrUnavailable)
			return
		}
		response.Success(c, http.StatusOK, report)
	}
}
