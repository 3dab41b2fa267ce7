// Package source captures console API events for a context and feeds them to
// watch sessions. A Hub stands in for the platform's console storage; the
// listeners built on top of it are the adapters a watcher drives.
package source

import (
	"sync"

	"github.com/drblury/resourcewatch/internal/runtime/console"
)

// DefaultHistoryCapacity bounds history when NewHub gets a non-positive size.
const DefaultHistoryCapacity = 1000

type entry struct {
	seq uint64
	msg console.RawMessage
}

// Hub records console events into a bounded history and fans each one out to
// the subscribed listeners in emission order.
type Hub struct {
	// emitMu serializes Emit so history order and delivery order agree.
	emitMu sync.Mutex

	mu      sync.RWMutex
	history *ring[entry]
	seq     uint64
	subs    map[uint64]func(entry)
	nextSub uint64
}

// NewHub creates a hub keeping up to capacity messages of history.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Hub{
		history: newRing[entry](capacity),
		subs:    make(map[uint64]func(entry)),
	}
}

// Emit records msg and delivers it to every current subscriber.
func (h *Hub) Emit(msg console.RawMessage) {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()

	h.mu.Lock()
	h.seq++
	e := entry{seq: h.seq, msg: msg}
	h.history.write(e)
	subs := make([]func(entry), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// ClearWindow drops the history of a window, as happens when it navigates.
// It returns the number of removed messages.
func (h *Hub) ClearWindow(windowID uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.history.retain(func(e entry) bool {
		id, ok := e.msg.WindowID()
		return !ok || id != windowID
	})
}

// Len reports the number of buffered messages.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.history.len()
}

// Dropped reports how many messages left the history through eviction or
// ClearWindow.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.history.evicted()
}

// Subscribers reports the number of attached listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) snapshot() []entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.history.all()
}

func (h *Hub) subscribe(fn func(entry)) func() {
	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}
