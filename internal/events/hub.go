// Package events carries the delivery lifecycle to observers.
//
// The webhook server publishes one event per stage of a delivery and the
// admin API fans them out over SSE. The hub is observability plumbing only:
// losing an event never affects delivery processing, and slow consumers are
// dropped rather than allowed to block the webhook path.
package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Delivery lifecycle event types. Every inbound delivery produces a
// received event followed by exactly one terminal event.
const (
	TypeReceived = "delivery.received"
	TypeHandled  = "delivery.handled"
	TypeNoAction = "delivery.no_action"
	TypeRejected = "delivery.rejected"
	TypeFailed   = "delivery.failed"
)

// subscriberBuffer sizes per-subscriber channels. A consumer that falls
// this far behind starts losing events instead of stalling Publish.
const subscriberBuffer = 128

type Event struct {
	ID   int64
	Type string
	At   time.Time
	Data []byte // JSON payload
}

// Hub is an in-memory pub/sub with a bounded replay buffer for late clients.
type Hub struct {
	lastID atomic.Int64

	mu     sync.Mutex
	buf    []Event
	oldest int
	count  int
	subs   map[chan Event]struct{}
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		buf:  make([]Event, capacity),
		subs: make(map[chan Event]struct{}),
	}
}

// Publish records an event and offers it to every subscriber without
// blocking. data is marshaled to JSON; nil data becomes an empty object.
func (h *Hub) Publish(eventType string, data any) {
	payload := []byte("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	ev := Event{
		ID:   h.lastID.Add(1),
		Type: eventType,
		At:   time.Now().UTC(),
		Data: payload,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.remember(ev)
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a consumer. The returned cancel func unregisters it
// and closes the channel; calling cancel more than once is safe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}

	return ch, cancel
}

// SnapshotSince returns buffered events with ID greater than lastID,
// oldest first. SnapshotSince(0) returns everything still buffered.
func (h *Hub) SnapshotSince(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, h.count)
	for i := 0; i < h.count; i++ {
		ev := h.buf[(h.oldest+i)%len(h.buf)]
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}

// remember stores ev in the replay buffer, evicting the oldest entry once
// the buffer is full. Callers hold h.mu.
func (h *Hub) remember(ev Event) {
	capacity := len(h.buf)
	if h.count < capacity {
		h.buf[(h.oldest+h.count)%capacity] = ev
		h.count++
		return
	}
	h.buf[h.oldest] = ev
	h.oldest = (h.oldest + 1) % capacity
}
