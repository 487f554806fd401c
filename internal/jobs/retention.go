package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type AuditPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob deletes audit entries older than the retention window on a
// cron schedule.
type RetentionJob struct {
	audit     AuditPruner
	retention time.Duration
	schedule  string
	now       func() time.Time
}

func NewRetentionJob(audit AuditPruner, retention time.Duration, schedule string) *RetentionJob {
	return &RetentionJob{
		audit:     audit,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
	}
}

func (j *RetentionJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		log.Info().Msg("audit retention disabled")
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(j.schedule, func() { j.Prune(ctx) }); err != nil {
		return fmt.Errorf("invalid audit retention schedule %q: %w", j.schedule, err)
	}

	c.Start()
	log.Info().Str("schedule", j.schedule).Dur("retention", j.retention).Msg("audit retention job started")

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("audit retention job stopped")
	return nil
}

func (j *RetentionJob) Prune(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)

	count, err := j.audit.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("failed to prune audit log")
		return 0, err
	}
	if count > 0 {
		log.Info().Int64("count", count).Time("cutoff", cutoff).Msg("pruned audit log")
	}
	return count, nil
}
