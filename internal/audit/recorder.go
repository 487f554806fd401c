package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	"github.com/lulius2021/alarmbriefing-server-go/internal/metrics"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/util"
)

// Queue accepts entries for asynchronous persistence. Enqueue must not
// return until the entry is durable.
type Queue interface {
	Enqueue(ctx context.Context, entry model.AuditEntry) error
}

// Store writes entries directly when the queue is unavailable.
type Store interface {
	InsertBatch(ctx context.Context, entries []model.AuditEntry) (int64, error)
}

type Recorder struct {
	queue   Queue
	store   Store
	metrics *metrics.Metrics
}

func NewRecorder(queue Queue, store Store, m *metrics.Metrics) *Recorder {
	return &Recorder{queue: queue, store: store, metrics: m}
}

// Record assigns an id and timestamp, bounds the details and hands the entry
// to the queue, falling back to a direct insert. It never drops an entry
// silently: when both paths fail the full entry is logged at error level.
func (r *Recorder) Record(ctx context.Context, entry model.AuditEntry) error {
	entry = normalize(entry)

	logEvent(entry)

	// The caller's request may already be finishing; the write must outlive it.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.AuditEnqueueTimeout)
	defer cancel()

	err := r.queue.Enqueue(writeCtx, entry)
	if err == nil {
		r.metrics.AuditEnqueued("queued")
		return nil
	}

	log.Warn().Err(err).Str("auditId", entry.ID).Msg("audit queue unavailable, writing directly")

	if _, dbErr := r.store.InsertBatch(writeCtx, []model.AuditEntry{entry}); dbErr != nil {
		r.metrics.AuditEnqueued("failed")
		log.Error().
			Err(dbErr).
			Str("auditId", entry.ID).
			Str("userId", entry.UserID).
			Str("actor", string(entry.Actor)).
			Str("action", entry.Action).
			Str("details", entry.Details).
			Time("timestamp", entry.Timestamp).
			Msg("audit entry could not be persisted")
		return dbErr
	}

	r.metrics.AuditEnqueued("direct")
	return nil
}

func normalize(entry model.AuditEntry) model.AuditEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Action = cleanText(entry.Action)
	if entry.Target != nil {
		target := cleanText(*entry.Target)
		entry.Target = &target
	}
	entry.Details = util.Truncate(cleanText(entry.Details), config.AuditDetailsMaxLen)
	return entry
}

// cleanText makes caller-supplied text storable in a Postgres text column,
// which rejects NUL bytes and invalid UTF-8.
func cleanText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

func logEvent(entry model.AuditEntry) {
	event := log.Info().
		Str("audit", string(entry.Actor)).
		Str("auditId", entry.ID).
		Str("userId", entry.UserID).
		Str("action", entry.Action)

	if entry.Target != nil {
		event = event.Str("target", *entry.Target)
	}

	event.Msg("audit event")
}
