// Package monitoring evaluates the readiness probes behind /health and tracks the
// outcome of background jobs.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

func (s ProbeStatus) rank() int {
	switch s {
	case StatusDown:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of two statuses.
func Worse(a, b ProbeStatus) ProbeStatus {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Report aggregates probe results. Status is the worst individual status.
type Report struct {
	Status ProbeStatus   `json:"status"`
	Checks []ProbeResult `json:"checks"`
}

// Ready reports whether no probe is down. Degraded components still serve traffic.
func (r Report) Ready() bool {
	return r.Status != StatusDown
}

// Probe is a named dependency check.
type Probe struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewProbe constructs a probe. A nil fn always reports down.
func NewProbe(name string, fn func(ctx context.Context) ProbeResult) Probe {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Probe{Name: name, Run: fn}
}

// Manager runs the registered probes in order.
type Manager struct {
	probes []Probe
}

// NewManager constructs a Manager with the given probes.
func NewManager(probes ...Probe) *Manager {
	m := &Manager{}
	for _, probe := range probes {
		m.Register(probe)
	}
	return m
}

// Register appends a probe. Unnamed probes are ignored.
func (m *Manager) Register(probe Probe) {
	if probe.Name == "" {
		return
	}
	m.probes = append(m.probes, probe)
}

// Evaluate runs every probe and folds the results into a Report.
func (m *Manager) Evaluate(ctx context.Context) Report {
	if ctx == nil {
		ctx = context.Background()
	}

	report := Report{Status: StatusUp, Checks: make([]ProbeResult, 0, len(m.probes))}
	for _, probe := range m.probes {
		result := run(ctx, probe)
		report.Checks = append(report.Checks, result)
		report.Status = Worse(report.Status, result.Status)
	}
	return report
}

func run(ctx context.Context, probe Probe) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = probe.Name
	}()

	return probe.Run(ctx)
}

// ResultFromError converts an error into a ProbeResult. Timeouts degrade rather than
// fail the component.
func ResultFromError(err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return ProbeResult{Status: status, Details: err.Error(), Duration: duration}
}
