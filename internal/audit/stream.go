package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

const entryField = "entry"

type Message struct {
	ID    string
	Entry model.AuditEntry
}

// StreamQueue is a Redis stream read through a consumer group. Entries stay
// pending until acknowledged, so a crashed consumer's work is reclaimed.
type StreamQueue struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

func NewStreamQueue(client *redis.Client, stream, group, consumer string) *StreamQueue {
	return &StreamQueue{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

func (q *StreamQueue) Enqueue(ctx context.Context, entry model.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{entryField: data},
	}).Err()
}

// EnsureGroup creates the stream and consumer group if needed.
func (q *StreamQueue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Read returns up to count entries never delivered to any consumer.
func (q *StreamQueue) Read(ctx context.Context, count int) ([]Message, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(count),
		Block:    -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []Message
	for _, stream := range streams {
		messages = append(messages, q.decode(ctx, stream.Messages)...)
	}
	return messages, nil
}

// Reclaim takes over entries that have been pending longer than minIdle.
func (q *StreamQueue) Reclaim(ctx context.Context, minIdle time.Duration, count int) ([]Message, error) {
	raw, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    int64(count),
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q.decode(ctx, raw), nil
}

// Ack acknowledges and removes persisted entries from the stream.
func (q *StreamQueue) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	pipe := q.client.TxPipeline()
	pipe.XAck(ctx, q.stream, q.group, ids...)
	pipe.XDel(ctx, q.stream, ids...)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *StreamQueue) decode(ctx context.Context, raw []redis.XMessage) []Message {
	messages := make([]Message, 0, len(raw))
	for _, msg := range raw {
		var entry model.AuditEntry
		payload, _ := msg.Values[entryField].(string)
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			log.Error().Err(err).Str("streamId", msg.ID).Str("payload", payload).Msg("dropping undecodable audit message")
			if ackErr := q.Ack(ctx, msg.ID); ackErr != nil {
				log.Warn().Err(ackErr).Str("streamId", msg.ID).Msg("failed to ack undecodable audit message")
			}
			continue
		}
		messages = append(messages, Message{ID: msg.ID, Entry: entry})
	}
	return messages
}
