package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Channel is the Redis pub/sub channel shared by every service replica.
const Channel = "minisocial:changes"

// Publisher is implemented by anything that can announce a committed change.
type Publisher interface {
	Publish(ctx context.Context, evt models.ChangeEvent) error
}

// Broker publishes change events through Redis when configured so every
// replica's hub sees them, and straight to the local hub otherwise.
type Broker struct {
	rdb *redis.Client
	hub *Hub
}

func NewBroker(rdb *redis.Client, hub *Hub) *Broker {
	return &Broker{rdb: rdb, hub: hub}
}

func (b *Broker) Publish(ctx context.Context, evt models.ChangeEvent) error {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if b.rdb == nil {
		b.hub.Deliver(evt)
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return b.rdb.Publish(ctx, Channel, payload).Err()
}

// Start subscribes to Channel and forwards every message to the hub until ctx
// is cancelled. It returns once the subscription is confirmed.
func (b *Broker) Start(ctx context.Context) error {
	if b.rdb == nil {
		return nil
	}
	sub := b.rdb.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.forward(msg.Payload)
			}
		}
	}()
	return nil
}

func (b *Broker) forward(payload string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("PANIC in realtime subscriber: %v\n%s", r, debug.Stack())
		}
	}()
	var evt models.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		log.WithError(err).Warn("dropping malformed change event")
		return
	}
	b.hub.Deliver(evt)
}
