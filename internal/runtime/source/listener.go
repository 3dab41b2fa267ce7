package source

import (
	"sync"

	"github.com/drblury/resourcewatch/internal/runtime/console"
	errspkg "github.com/drblury/resourcewatch/internal/runtime/errors"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

// Handler receives live console messages in capture order.
type Handler func(console.RawMessage)

// Adapter is the capture boundary one watch session drives.
type Adapter interface {
	// Init starts capture. It may be called once per adapter.
	Init() error
	// CachedMessages returns the relevant history captured so far, oldest
	// first. Private browsing messages are dropped unless includePrivate.
	CachedMessages(includePrivate bool) []console.RawMessage
	// SetHandler installs the live handler. Messages captured between Init
	// and SetHandler that were not returned by CachedMessages are delivered
	// first.
	SetHandler(fn Handler)
	// Handle delivers msg to the live handler without capture filtering.
	Handle(msg console.RawMessage)
	// Destroy stops capture. It is safe to call more than once.
	Destroy()
}

type pendingEntry struct {
	seq    uint64
	msg    console.RawMessage
	direct bool
}

// Listener is the Adapter implementation over a Hub. Use
// NewConsoleAPIListener or NewWorkerListener to build one.
type Listener struct {
	hub    *Hub
	accept func(console.RawMessage) bool

	// deliverMu keeps handler invocations ordered and non-overlapping.
	deliverMu sync.Mutex

	mu          sync.Mutex
	initialized bool
	destroyed   bool
	unsubscribe func()
	handler     Handler
	drainedSeq  uint64
	pending     []pendingEntry
}

// NewConsoleAPIListener builds the main-thread adapter. With a window it
// captures that window's messages plus worker messages; without one it
// captures everything, including windowless messages.
func NewConsoleAPIListener(hub *Hub, window *target.Window, opts target.ListenerOptions) *Listener {
	var windowID string
	if window != nil {
		windowID = console.WindowInnerID(window.ID)
	}
	excludeBound := opts.ExcludeBoundToWindow()
	addonID := opts.MatchAddonID

	return newListener(hub, func(m console.RawMessage) bool {
		if addonID != "" && m.AddonID != addonID {
			return false
		}
		_, bound := m.WindowID()
		if excludeBound && bound {
			return false
		}
		if windowID == "" || console.WorkerType(m) != console.WorkerTypeNone {
			return true
		}
		return m.InnerID == windowID
	})
}

// NewWorkerListener builds the adapter for a worker global. Every message on
// the worker's hub belongs to it, so only the addon filter applies.
func NewWorkerListener(hub *Hub, opts target.ListenerOptions) *Listener {
	addonID := opts.MatchAddonID
	return newListener(hub, func(m console.RawMessage) bool {
		return addonID == "" || m.AddonID == addonID
	})
}

func newListener(hub *Hub, accept func(console.RawMessage) bool) *Listener {
	return &Listener{hub: hub, accept: accept}
}

func (l *Listener) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return errspkg.ErrAdapterDestroyed
	}
	if l.initialized {
		return errspkg.ErrAlreadyInitialized
	}
	l.initialized = true
	l.unsubscribe = l.hub.subscribe(l.onEmit)
	return nil
}

func (l *Listener) CachedMessages(includePrivate bool) []console.RawMessage {
	entries := l.hub.snapshot()

	l.mu.Lock()
	if n := len(entries); n > 0 && entries[n-1].seq > l.drainedSeq {
		l.drainedSeq = entries[n-1].seq
	}
	l.mu.Unlock()

	out := make([]console.RawMessage, 0, len(entries))
	for _, e := range entries {
		if !l.accept(e.msg) {
			continue
		}
		if e.msg.Private && !includePrivate {
			continue
		}
		out = append(out, e.msg)
	}
	return out
}

func (l *Listener) SetHandler(fn Handler) {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return
	}
	l.handler = fn
	pending := l.pending
	l.pending = nil
	drained := l.drainedSeq
	l.mu.Unlock()

	if fn == nil {
		return
	}
	for _, p := range pending {
		if !p.direct && p.seq <= drained {
			continue
		}
		fn(p.msg)
	}
}

func (l *Listener) Handle(msg console.RawMessage) {
	l.deliver(pendingEntry{msg: msg, direct: true})
}

func (l *Listener) onEmit(e entry) {
	if !l.accept(e.msg) {
		return
	}
	l.deliver(pendingEntry{seq: e.seq, msg: e.msg})
}

func (l *Listener) deliver(p pendingEntry) {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return
	}
	fn := l.handler
	if fn == nil {
		l.pending = append(l.pending, p)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	fn(p.msg)
}

func (l *Listener) Destroy() {
	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return
	}
	l.destroyed = true
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.handler = nil
	l.pending = nil
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

var _ Adapter = (*Listener)(nil)
