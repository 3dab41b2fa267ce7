package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

// ErrUnknownTransport is returned by Build when no builder is registered under
// the configured name.
var ErrUnknownTransport = errors.New("resourcewatch: unknown transport")

type entry struct {
	builder Builder
	caps    Capabilities
}

// Registry maps transport names to their builders and capabilities.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// DefaultRegistry is the registry transport packages add themselves to.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces a builder. Names are matched case-insensitively
// against the configured pubsub system.
func (r *Registry) Register(name string, builder Builder, caps Capabilities) {
	name = normalizeName(name)
	if caps.Name == "" {
		caps.Name = name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{builder: builder, caps: caps}
}

// Capabilities returns the capabilities for a registered transport, or a zero
// value carrying only the name.
func (r *Registry) Capabilities(name string) Capabilities {
	name = normalizeName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.caps
	}
	return Capabilities{Name: name}
}

// Build creates the transport selected by cfg.GetPubSubSystem.
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	if cfg == nil {
		return Transport{}, errors.New("transport: config is required")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	name := normalizeName(cfg.GetPubSubSystem())

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return Transport{}, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownTransport, name, r.Names())
	}

	t, err := e.builder(ctx, cfg, logger)
	if err != nil {
		return Transport{}, fmt.Errorf("build %s transport: %w", name, err)
	}
	return t, nil
}

// Names returns the registered transport names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a transport is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[normalizeName(name)]
	return ok
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a builder to the default registry.
func Register(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.Register(name, builder, caps)
}

// Build creates a transport using the default registry.
func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}

// Names lists the transports in the default registry.
func Names() []string {
	return DefaultRegistry.Names()
}
