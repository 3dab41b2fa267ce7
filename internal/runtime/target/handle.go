package target

import (
	"context"
	"fmt"
	"sync"

	idspkg "github.com/drblury/resourcewatch/internal/runtime/ids"
)

// AttachFunc performs the platform side of Attach. It runs at most once per
// Handle, under the handle's attach lock.
type AttachFunc func(ctx context.Context) error

// HandleConfig describes a Handle. Only Kind is required.
type HandleConfig struct {
	// ParentID nests the target actor id under a connection prefix.
	ParentID  string
	Kind      Kind
	TypeName  string
	Root      bool
	Window    *Window
	Overrides ListenerOptions
	OnAttach  AttachFunc
}

// Handle is the in-memory Target used by target management. It owns an actor
// pool and a source registry that becomes resolvable once attached.
type Handle struct {
	id        string
	kind      Kind
	typeName  string
	root      bool
	overrides ListenerOptions
	onAttach  AttachFunc

	attachMu sync.Mutex

	mu       sync.RWMutex
	attached bool
	window   *Window
	actors   map[string]Actor
	sources  map[string]string
}

// NewHandle builds a detached target. The type name defaults from the kind.
func NewHandle(cfg HandleConfig) (*Handle, error) {
	if cfg.Kind < KindFrame || cfg.Kind > KindServiceWorker {
		return nil, fmt.Errorf("target: unknown kind %d", cfg.Kind)
	}
	typeName := cfg.TypeName
	if typeName == "" {
		typeName = defaultTypeName(cfg.Kind, cfg.Root)
	}
	h := &Handle{
		id:        idspkg.NewActorID(cfg.ParentID, cfg.Kind.String()),
		kind:      cfg.Kind,
		typeName:  typeName,
		root:      cfg.Root,
		overrides: cfg.Overrides,
		onAttach:  cfg.OnAttach,
		actors:    make(map[string]Actor),
		sources:   make(map[string]string),
	}
	if cfg.Window != nil {
		w := *cfg.Window
		h.window = &w
	}
	return h, nil
}

func defaultTypeName(kind Kind, root bool) string {
	switch {
	case root:
		return TypeNameParentProcess
	case kind == KindFrame:
		return TypeNameWindowGlobal
	case kind == KindProcess:
		return TypeNameContentProc
	default:
		return TypeNameWorker
	}
}

func (h *Handle) ActorID() string                    { return h.id }
func (h *Handle) Kind() Kind                         { return h.kind }
func (h *Handle) TypeName() string                   { return h.typeName }
func (h *Handle) IsRoot() bool                       { return h.root }
func (h *Handle) ListenerOverrides() ListenerOptions { return h.overrides }

func (h *Handle) IsAttached() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.attached
}

// Attach runs the configured AttachFunc once. Concurrent callers wait for
// the first attach to finish. A failed attach leaves the handle detached so
// it can be retried.
func (h *Handle) Attach(ctx context.Context) error {
	if h.IsAttached() {
		return nil
	}
	h.attachMu.Lock()
	defer h.attachMu.Unlock()
	if h.IsAttached() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.onAttach != nil {
		if err := h.onAttach(ctx); err != nil {
			return fmt.Errorf("attach %s: %w", h.id, err)
		}
	}
	h.mu.Lock()
	h.attached = true
	h.mu.Unlock()
	return nil
}

func (h *Handle) Window() *Window {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.window == nil {
		return nil
	}
	w := *h.window
	return &w
}

// Navigate replaces the window global, as happens when a frame loads a new
// document. Pooled actors belong to the old document and are released; the
// number released is returned.
func (h *Handle) Navigate(w Window) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.window = &w
	released := len(h.actors)
	if released > 0 {
		h.actors = make(map[string]Actor)
	}
	return released
}

// NextActorID returns a fresh actor id nested under this target.
func (h *Handle) NextActorID(typeName string) string {
	return idspkg.NewActorID(h.id, typeName)
}

// AddActor registers a into the pool and returns its id.
func (h *Handle) AddActor(a Actor) string {
	id := a.ActorID()
	h.mu.Lock()
	h.actors[id] = a
	h.mu.Unlock()
	return id
}

// RemoveActor drops an actor from the pool.
func (h *Handle) RemoveActor(id string) {
	h.mu.Lock()
	delete(h.actors, id)
	h.mu.Unlock()
}

func (h *Handle) ActorByID(id string) (Actor, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if id == h.id {
		return h, true
	}
	a, ok := h.actors[id]
	return a, ok
}

// ActorCount reports the number of pooled actors.
func (h *Handle) ActorCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.actors)
}

// RegisterSource records a script source under its internal id and returns
// the actor id clients will see. Registering the same id twice returns the
// existing actor id.
func (h *Handle) RegisterSource(internalID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.sources[internalID]; ok {
		return id
	}
	id := idspkg.NewActorID(h.id, "source")
	h.sources[internalID] = id
	return id
}

func (h *Handle) SourceActorID(internalID string) (string, bool) {
	if internalID == "" {
		return "", false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.attached {
		return "", false
	}
	id, ok := h.sources[internalID]
	return id, ok
}

var (
	_ Target    = (*Handle)(nil)
	_ ActorPool = (*Handle)(nil)
)
