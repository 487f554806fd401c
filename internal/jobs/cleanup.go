package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type PairingExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// CleanupJob marks pending pairings whose code window has passed as expired.
// Claims already refuse stale codes; this keeps the stored status honest.
type CleanupJob struct {
	pairings PairingExpirer
	interval time.Duration
}

func NewCleanupJob(pairings PairingExpirer, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		pairings: pairings,
		interval: interval,
	}
}

func (j *CleanupJob) Run(ctx context.Context) error {
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cleanup job stopped")
			return nil
		case <-ticker.C:
			j.cleanup(ctx)
		}
	}
}

func (j *CleanupJob) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "pairing codes", j.pairings.ExpireStale)
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
