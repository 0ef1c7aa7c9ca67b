package realtime

import (
	"sync"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/monitoring"
	log "github.com/sirupsen/logrus"
)

const defaultBuffer = 64

// Subscriber receives the change events of the tables it asked for.
// Notification events reach only the subscriber whose user is the recipient.
type Subscriber struct {
	UserID uint
	tables map[string]bool
	send   chan models.ChangeEvent
}

// Events is closed when the subscriber is removed from the hub.
func (s *Subscriber) Events() <-chan models.ChangeEvent {
	return s.send
}

func (s *Subscriber) wants(evt models.ChangeEvent) bool {
	if !s.tables[evt.Table] {
		return false
	}
	return evt.RecipientID == 0 || evt.RecipientID == s.UserID
}

// Hub fans change events out to in-process subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: make(map[*Subscriber]struct{}), buffer: buffer}
}

// Subscribe registers userID for the given tables.
func (h *Hub) Subscribe(userID uint, tables []string) *Subscriber {
	s := &Subscriber{
		UserID: userID,
		tables: make(map[string]bool, len(tables)),
		send:   make(chan models.ChangeEvent, h.buffer),
	}
	for _, t := range tables {
		s.tables[t] = true
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	monitoring.RealtimeConnections.Inc()
	return s
}

// Unsubscribe removes s and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *Subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.send)
	monitoring.RealtimeConnections.Dec()
}

// Deliver hands evt to every interested subscriber without blocking.
// A subscriber whose buffer is full is dropped.
func (h *Hub) Deliver(evt models.ChangeEvent) {
	monitoring.RealtimeEvents.WithLabelValues(evt.Table, evt.Type).Inc()

	var slow []*Subscriber
	h.mu.RLock()
	for s := range h.subs {
		if !s.wants(evt) {
			continue
		}
		select {
		case s.send <- evt:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, s := range slow {
		log.WithField("user_id", s.UserID).Warn("realtime subscriber too slow, disconnecting")
		monitoring.RealtimeDrops.Inc()
		h.removeLocked(s)
	}
	h.mu.Unlock()
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Shutdown disconnects every subscriber.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.removeLocked(s)
	}
}
