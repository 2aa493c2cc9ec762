package realtime

import (
	"sync"

	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/metrics"
)

const DefaultBuffer = 64

// Subscription delivers matching changes on C until Cancel is called. C is
// closed by Cancel; Cancel may be called any number of times.
type Subscription struct {
	C <-chan Change

	filter Filter
	ch     chan Change
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) Filter() Filter {
	return s.filter
}

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub fans committed changes out to in-process subscribers. Publish never
// blocks on a subscriber: a full buffer drops the event for that subscriber.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
	// after runs for every published change, used by the redis bridge.
	after []func(Change)
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(filter Filter) *Subscription {
	ch := make(chan Change, h.buffer)
	sub := &Subscription{C: ch, filter: filter, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	metrics.TrackFeedSubscription(true)
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
	metrics.TrackFeedSubscription(false)
}

// Publish delivers change to local subscribers and then to any hooks.
func (h *Hub) Publish(change Change) {
	h.deliver(change)

	h.mu.RLock()
	hooks := h.after
	h.mu.RUnlock()
	for _, hook := range hooks {
		hook(change)
	}
}

// deliver fans out without running hooks, so remote changes are not echoed.
func (h *Hub) deliver(change Change) {
	metrics.RecordFeedPublish(string(change.Table), string(change.Type))

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !sub.filter.Match(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			metrics.RecordFeedDrop(string(change.Table))
			logging.Warn().
				Str("table", string(change.Table)).
				Str("room_id", change.RoomID).
				Str("change_id", change.ID).
				Msg("subscriber buffer full, change dropped")
		}
	}
}

func (h *Hub) onPublish(hook func(Change)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.after = append(h.after, hook)
}

// Len reports the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close cancels every subscription. Later subscriptions are returned closed.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}
