// Package events is the in-process broadcast channel for boss lifecycle
// and settlement events, with a websocket fan-out for observers.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// EventType classifies an observer event.
type EventType string

const (
	BossWarning         EventType = "boss_warning"
	BossSpawned         EventType = "boss_spawned"
	BossDied            EventType = "boss_died"
	SettlementCompleted EventType = "settlement_completed"
	SettlementSkipped   EventType = "settlement_skipped"
	SettlementParked    EventType = "settlement_parked"
)

// Event is one observer broadcast.
type Event struct {
	Type     EventType      `json:"type"`
	BossKind string         `json:"bossKind,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	At       time.Time      `json:"at"`
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// that falls behind loses events rather than stalling the game loop.
type Hub struct {
	mu      sync.Mutex
	subs    map[chan Event]struct{}
	closed  bool
	bufSize int
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{
		subs:    make(map[chan Event]struct{}),
		bufSize: 64,
	}
}

// Publish delivers an event to every subscriber. Slow subscribers are
// skipped, with a warning so a wedged observer is visible in logs.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			slog.Warn("event subscriber lagging, dropping event",
				"type", evt.Type, "bossKind", evt.BossKind)
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber is done.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.bufSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			_, live := h.subs[ch]
			delete(h.subs, ch)
			h.mu.Unlock()
			// Close may have already reaped the channel.
			if live {
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close shuts the hub down and disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
