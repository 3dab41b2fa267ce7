// Package sink delivers watcher batches to their consumers: in memory, or
// published through a watermill transport inside a CloudEvents envelope.
package sink

import (
	"context"
	"sync"

	"github.com/drblury/resourcewatch/internal/runtime/target"
	"github.com/drblury/resourcewatch/internal/runtime/watcher"
)

// Batch is one onAvailable call tagged with the target it belongs to.
type Batch struct {
	TargetID   string
	TargetKind target.Kind
	Phase      watcher.Phase
	Resources  []watcher.Resource
}

// Sink receives batches in the order the watcher produced them. Sinks own
// the batches they receive.
type Sink interface {
	Deliver(ctx context.Context, batch Batch) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, batch Batch) error

func (f SinkFunc) Deliver(ctx context.Context, batch Batch) error {
	return f(ctx, batch)
}

// MemorySink keeps every delivered batch.
type MemorySink struct {
	mu      sync.Mutex
	batches []Batch
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Deliver(_ context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batch)
	return nil
}

// Batches returns the delivered batches, oldest first.
func (m *MemorySink) Batches() []Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Batch(nil), m.batches...)
}

// ForTarget returns the batches delivered for one target.
func (m *MemorySink) ForTarget(targetID string) []Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Batch
	for _, b := range m.batches {
		if b.TargetID == targetID {
			out = append(out, b)
		}
	}
	return out
}

func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = nil
}

var (
	_ Sink = (*MemorySink)(nil)
	_ Sink = SinkFunc(nil)
)
