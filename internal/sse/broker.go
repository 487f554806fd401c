package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	redisclient "github.com/lulius2021/alarmbriefing-server-go/internal/redis"
)

const HeartbeatInterval = 30 * time.Second

const EventTypeAudit = "audit"

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AuditEvent wraps a persisted audit entry for the live feed.
func AuditEvent(entry model.AuditEntry) (Event, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: EventTypeAudit, Data: data}, nil
}

type Client struct {
	UserID string
	Events chan Event
	Done   chan struct{}
}

// Broker fans audit events out to the owner's open streams. Events travel
// through Redis pub/sub so any instance can publish for any owner.
type Broker struct {
	redis        *redisclient.Client
	clients      map[string]map[*Client]struct{}
	subs         map[string]*subscription
	closed       bool
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	readyTimeout time.Duration
}

// subscription is one owner's Redis channel listener. ready closes once
// Redis has confirmed the subscription or the attempt gave up.
type subscription struct {
	cancel context.CancelFunc
	ready  chan struct{}
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:        redisClient,
		clients:      make(map[string]map[*Client]struct{}),
		subs:         make(map[string]*subscription),
		ctx:          ctx,
		cancel:       cancel,
		readyTimeout: config.AuditSubscribeTimeout,
	}
}

// Subscribe registers a stream for userID. The Redis handshake for a new
// owner runs without holding the broker lock; the caller waits for it at
// most readyTimeout. After Close the returned client is already done.
func (b *Broker) Subscribe(userID string) *Client {
	client := &Client{
		UserID: userID,
		Events: make(chan Event, config.AuditEventBufferSize),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(client.Done)
		return client
	}
	sub, ok := b.subs[userID]
	if !ok {
		subCtx, cancel := context.WithCancel(b.ctx)
		sub = &subscription{cancel: cancel, ready: make(chan struct{})}
		b.subs[userID] = sub
		b.clients[userID] = make(map[*Client]struct{})
		go b.subscribeToRedis(subCtx, userID, sub.ready)
	}
	b.clients[userID][client] = struct{}{}
	clientCount := len(b.clients[userID])
	b.mu.Unlock()

	timer := time.NewTimer(b.readyTimeout)
	defer timer.Stop()
	select {
	case <-sub.ready:
	case <-b.ctx.Done():
	case <-timer.C:
		log.Warn().Str("userId", userID).Msg("redis subscribe still pending, events may arrive late")
	}

	log.Info().
		Str("userId", userID).
		Int("clientCount", clientCount).
		Msg("audit stream subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.Done)
	if len(clients) == 0 {
		delete(b.clients, client.UserID)
		if sub, ok := b.subs[client.UserID]; ok {
			sub.cancel()
			delete(b.subs, client.UserID)
		}
	}

	log.Info().
		Str("userId", client.UserID).
		Int("clientCount", len(clients)).
		Msg("audit stream unsubscribed")
}

func (b *Broker) Publish(ctx context.Context, userID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.redis.Publish(ctx, redisclient.AuditChannel(userID), data).Err()
}

// subscribeToRedis runs until the owner's last client leaves. ready is closed
// once the subscription is confirmed so early publishes are not lost.
func (b *Broker) subscribeToRedis(ctx context.Context, userID string, ready chan struct{}) {
	channel := redisclient.AuditChannel(userID)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.ReceiveTimeout(ctx, b.readyTimeout); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("redis subscribe failed")
	}
	close(ready)

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("channel", channel).Msg("redis pubsub released")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Str("channel", channel).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(userID, event)
		}
	}
}

func (b *Broker) broadcast(userID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[userID] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("userId", userID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]struct{})
	b.subs = make(map[string]*subscription)
}

func (b *Broker) ClientCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[userID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
