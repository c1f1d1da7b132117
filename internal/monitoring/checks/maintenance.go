package checks

import (
	"context"
	"strings"
	"time"

	"github.com/endorhq/endor/internal/monitoring"
)

const defaultMaintenanceMaxAge = 48 * time.Hour

// Maintenance degrades when a tracked job keeps failing or has not run within maxAge.
// It never reports down.
func Maintenance(tracker *monitoring.JobTracker, maxAge time.Duration, now func() time.Time) monitoring.Probe {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}
	if now == nil {
		now = time.Now
	}

	return monitoring.NewProbe("maintenance", func(context.Context) monitoring.ProbeResult {
		if tracker == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		status := monitoring.StatusUp
		var notes []string
		current := now()

		for _, job := range tracker.Jobs() {
			switch {
			case job.TotalRuns == 0:
				notes = append(notes, job.Job+": pending first run")
			case job.ConsecutiveFailures > 0:
				status = monitoring.StatusDegraded
				notes = append(notes, job.Job+": "+job.LastError)
			case current.Sub(job.LastRunAt) > maxAge:
				status = monitoring.StatusDegraded
				notes = append(notes, job.Job+": last run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(notes, "; ")}
	})
}
