package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/audit"
	"github.com/lulius2021/alarmbriefing-server-go/internal/metrics"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
	"github.com/lulius2021/alarmbriefing-server-go/internal/sse"
)

const drainTimeout = 5 * time.Second

type AuditStream interface {
	EnsureGroup(ctx context.Context) error
	Read(ctx context.Context, count int) ([]audit.Message, error)
	Reclaim(ctx context.Context, minIdle time.Duration, count int) ([]audit.Message, error)
	Ack(ctx context.Context, ids ...string) error
}

type AuditStore interface {
	InsertBatch(ctx context.Context, entries []model.AuditEntry) (int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, userID string, event sse.Event) error
}

// AuditFlushJob moves queued audit entries from the Redis stream into
// Postgres. Entries are acknowledged only after the insert commits, so a
// crash between the two replays them; the insert ignores duplicate ids.
type AuditFlushJob struct {
	stream      AuditStream
	store       AuditStore
	publisher   EventPublisher
	metrics     *metrics.Metrics
	batch       int
	interval    time.Duration
	reclaimIdle time.Duration
}

func NewAuditFlushJob(
	stream AuditStream,
	store AuditStore,
	publisher EventPublisher,
	m *metrics.Metrics,
	batch int,
	interval time.Duration,
	reclaimIdle time.Duration,
) *AuditFlushJob {
	return &AuditFlushJob{
		stream:      stream,
		store:       store,
		publisher:   publisher,
		metrics:     m,
		batch:       batch,
		interval:    interval,
		reclaimIdle: reclaimIdle,
	}
}

func (j *AuditFlushJob) Run(ctx context.Context) error {
	log.Info().Dur("interval", j.interval).Int("batch", j.batch).Msg("audit flush job started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	grouped := j.ensureGroup(ctx)

	for {
		select {
		case <-ctx.Done():
			if grouped {
				drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
				j.Flush(drainCtx)
				cancel()
			}
			log.Info().Msg("audit flush job stopped")
			return nil

		case <-ticker.C:
			if !grouped {
				grouped = j.ensureGroup(ctx)
				if !grouped {
					continue
				}
			}
			j.Flush(ctx)
		}
	}
}

func (j *AuditFlushJob) ensureGroup(ctx context.Context) bool {
	if err := j.stream.EnsureGroup(ctx); err != nil {
		log.Error().Err(err).Msg("failed to create audit consumer group")
		return false
	}
	return true
}

// Flush drains the stream in batches until a short batch or an error.
// It returns the number of entries persisted.
func (j *AuditFlushJob) Flush(ctx context.Context) int {
	total := 0
	for {
		n, full, err := j.flushBatch(ctx)
		total += n
		if err != nil {
			log.Error().Err(err).Msg("audit flush failed")
			return total
		}
		if !full {
			return total
		}
	}
}

func (j *AuditFlushJob) flushBatch(ctx context.Context) (int, bool, error) {
	messages, err := j.stream.Reclaim(ctx, j.reclaimIdle, j.batch)
	if err != nil {
		return 0, false, err
	}
	if len(messages) > 0 {
		log.Warn().Int("count", len(messages)).Msg("reclaimed stale audit entries")
	}

	if len(messages) < j.batch {
		fresh, err := j.stream.Read(ctx, j.batch-len(messages))
		if err != nil {
			return 0, false, err
		}
		messages = append(messages, fresh...)
	}
	if len(messages) == 0 {
		return 0, false, nil
	}

	stored, done, insertErr := j.insert(ctx, messages)
	if len(done) > 0 {
		if err := j.stream.Ack(ctx, done...); err != nil {
			return len(stored), false, err
		}
	}

	j.metrics.AuditFlushed(len(stored))
	j.publish(ctx, stored)

	if insertErr != nil {
		return len(stored), false, insertErr
	}
	return len(stored), len(messages) == j.batch, nil
}

// insert writes messages as one batch. When the database rejects the batch
// it falls back to one entry at a time so a single unstorable entry cannot
// hold back the rest of the stream. It returns the stored entries and the
// stream ids that are finished with, stored or dead-lettered.
func (j *AuditFlushJob) insert(ctx context.Context, messages []audit.Message) ([]model.AuditEntry, []string, error) {
	entries := make([]model.AuditEntry, len(messages))
	ids := make([]string, len(messages))
	for i, msg := range messages {
		entries[i] = msg.Entry
		ids[i] = msg.ID
	}

	inserted, err := j.store.InsertBatch(ctx, entries)
	if err == nil {
		if skipped := int64(len(entries)) - inserted; skipped > 0 {
			log.Debug().Int64("skipped", skipped).Msg("audit entries already stored or owner gone")
		}
		return entries, ids, nil
	}
	if !repository.IsRejectedRow(err) {
		return nil, nil, err
	}

	log.Warn().Err(err).Int("count", len(entries)).Msg("audit batch rejected, inserting entries one by one")

	stored := make([]model.AuditEntry, 0, len(messages))
	done := make([]string, 0, len(messages))
	for _, msg := range messages {
		_, err := j.store.InsertBatch(ctx, []model.AuditEntry{msg.Entry})
		switch {
		case err == nil:
			stored = append(stored, msg.Entry)
			done = append(done, msg.ID)
		case repository.IsRejectedRow(err):
			j.deadLetter(msg, err)
			done = append(done, msg.ID)
		default:
			return stored, done, err
		}
	}
	return stored, done, nil
}

// deadLetter drops an entry the database will never accept. The full entry
// goes to the error log so it is not lost silently.
func (j *AuditFlushJob) deadLetter(msg audit.Message, err error) {
	j.metrics.AuditDeadLetter()

	event := log.Error().
		Err(err).
		Str("streamId", msg.ID).
		Str("auditId", msg.Entry.ID).
		Str("userId", msg.Entry.UserID).
		Str("actor", string(msg.Entry.Actor)).
		Str("action", msg.Entry.Action).
		Str("details", msg.Entry.Details).
		Time("timestamp", msg.Entry.Timestamp)
	if msg.Entry.Target != nil {
		event = event.Str("target", *msg.Entry.Target)
	}
	event.Msg("audit entry rejected by database, dead-lettered")
}

func (j *AuditFlushJob) publish(ctx context.Context, entries []model.AuditEntry) {
	if j.publisher == nil {
		return
	}

	for _, entry := range entries {
		event, err := sse.AuditEvent(entry)
		if err != nil {
			log.Error().Err(err).Str("auditId", entry.ID).Msg("failed to encode audit event")
			continue
		}
		if err := j.publisher.Publish(ctx, entry.UserID, event); err != nil {
			log.Warn().Err(err).Str("userId", entry.UserID).Msg("failed to publish audit event")
		}
	}
}
