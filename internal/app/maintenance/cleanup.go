package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/endorhq/endor/internal/monitoring"
	"github.com/endorhq/endor/pkg/logger"
	"github.com/endorhq/endor/pkg/metrics"
)

const (
	defaultInviteSpec    = "@hourly"
	defaultProjectSpec   = "@daily"
	defaultRateSpec      = "@every 10m"
	defaultRetentionDays = 30

	jobInvites  = "expire_invites"
	jobProjects = "purge_projects"
	jobCounters = "purge_rate_counters"
)

// InviteExpirer moves lapsed open invites to expired.
type InviteExpirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int, error)
}

// ProjectPurger permanently removes projects soft deleted longer than retention ago.
type ProjectPurger interface {
	PurgeDeleted(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

// CounterPurger drops rate counters whose window has closed.
type CounterPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner runs the periodic maintenance jobs: expiring lapsed invites, purging
// soft-deleted projects and pruning rate counters.
type Cleaner struct {
	invites  InviteExpirer
	projects ProjectPurger
	counters CounterPurger
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	tracker  *monitoring.JobTracker

	retention time.Duration

	inviteSchedule  string
	projectSchedule string
	counterSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock passed to every job.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithTracker reports every run to tracker.
func WithTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// WithProjectPurger enables the purge of soft-deleted projects older than retentionDays.
func WithProjectPurger(projects ProjectPurger, retentionDays int) Option {
	return func(cleaner *Cleaner) {
		cleaner.projects = projects
		if retentionDays > 0 {
			cleaner.retention = time.Duration(retentionDays) * 24 * time.Hour
		}
	}
}

// WithCounterPurger enables pruning of expired rate counters.
func WithCounterPurger(counters CounterPurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.counters = counters
	}
}

// WithSchedules overrides the cron specifications. Empty values keep the defaults.
func WithSchedules(invites, projects, counters string) Option {
	return func(cleaner *Cleaner) {
		if invites != "" {
			cleaner.inviteSchedule = invites
		}
		if projects != "" {
			cleaner.projectSchedule = projects
		}
		if counters != "" {
			cleaner.counterSchedule = counters
		}
	}
}

// NewCleaner constructs a Cleaner. A nil invites argument disables invite expiry.
func NewCleaner(invites InviteExpirer, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invites:         invites,
		now:             time.Now,
		retention:       defaultRetentionDays * 24 * time.Hour,
		inviteSchedule:  defaultInviteSpec,
		projectSchedule: defaultProjectSpec,
		counterSchedule: defaultRateSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the enabled jobs with the scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.invites == nil && c.projects == nil && c.counters == nil {
		return nil
	}

	c.expect()

	if c.invites != nil {
		if _, err := c.cron.AddFunc(c.inviteSchedule, func() { _ = c.expireInvites(context.Background()) }); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", jobInvites, err)
		}
	}
	if c.projects != nil {
		if _, err := c.cron.AddFunc(c.projectSchedule, func() { _ = c.purgeProjects(context.Background()) }); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", jobProjects, err)
		}
	}
	if c.counters != nil {
		if _, err := c.cron.AddFunc(c.counterSchedule, func() { _ = c.purgeCounters(context.Background()) }); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", jobCounters, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every enabled job sequentially and combines their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.invites != nil {
		errs = multierr.Append(errs, c.expireInvites(ctx))
	}
	if c.projects != nil {
		errs = multierr.Append(errs, c.purgeProjects(ctx))
	}
	if c.counters != nil {
		errs = multierr.Append(errs, c.purgeCounters(ctx))
	}
	return errs
}

func (c *Cleaner) expireInvites(ctx context.Context) error {
	expired, err := c.invites.ExpireLapsed(ctx, c.now())
	return c.record(jobInvites, int64(expired), err)
}

func (c *Cleaner) purgeProjects(ctx context.Context) error {
	purged, err := c.projects.PurgeDeleted(ctx, c.now(), c.retention)
	return c.record(jobProjects, purged, err)
}

func (c *Cleaner) purgeCounters(ctx context.Context) error {
	purged, err := c.counters.PurgeExpired(ctx, c.now())
	return c.record(jobCounters, purged, err)
}

func (c *Cleaner) expect() {
	if c.tracker == nil {
		return
	}
	if c.invites != nil {
		c.tracker.Expect(jobInvites)
	}
	if c.projects != nil {
		c.tracker.Expect(jobProjects)
	}
	if c.counters != nil {
		c.tracker.Expect(jobCounters)
	}
}

func (c *Cleaner) record(job string, affected int64, err error) error {
	if c.tracker != nil {
		c.tracker.Record(job, c.now(), err)
	}
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues(job, "failure").Inc()
		c.log.Warn("maintenance job failed", zap.String("job", job), zap.Error(err))
		return fmt.Errorf("maintenance: %s: %w", job, err)
	}
	metrics.MaintenanceRuns.WithLabelValues(job, "success").Inc()
	if affected > 0 {
		c.log.Info("maintenance job completed", zap.String("job", job), zap.Int64("affected", affected))
	}
	return nil
}
