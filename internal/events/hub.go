package events

import "sync"

// Change describes a state change published to subscribers.
type Change struct {
	Type string `json:"type"`
	Key  string `json:"key"`
	Err  string `json:"error,omitempty"`
}

// Hub fans changes out to subscribers. Slow subscribers miss changes rather
// than blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Change]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Change]struct{})}
}

func (h *Hub) Subscribe() chan Change {
	ch := make(chan Change, 16)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Change) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(c Change) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- c:
		default:
			// drop if slow
		}
	}
}
