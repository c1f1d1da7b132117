package checks

import (
	"context"
	"time"

	"github.com/endorhq/endor/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database returns a probe that calls ping under timeout. A nil ping reports down.
func Database(ping func(ctx context.Context) error, timeout time.Duration) monitoring.Probe {
	return monitoring.NewProbe("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if ping == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDatabaseTimeout))
		defer cancel()

		return monitoring.ResultFromError(ping(probeCtx), time.Since(start))
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
