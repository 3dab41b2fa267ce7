package source

import (
	"fmt"

	errspkg "github.com/drblury/resourcewatch/internal/runtime/errors"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

// Selector picks the adapter flavour for a target. Target management resolves
// it once, when the target is created.
type Selector int

const (
	SelectMainThread Selector = iota
	SelectWorker
)

func (s Selector) String() string {
	switch s {
	case SelectMainThread:
		return "main-thread"
	case SelectWorker:
		return "worker"
	default:
		return fmt.Sprintf("selector(%d)", int(s))
	}
}

// SelectorFor returns the selector matching a target kind.
func SelectorFor(kind target.Kind) Selector {
	if kind.IsWorker() {
		return SelectWorker
	}
	return SelectMainThread
}

// New builds an uninitialized adapter. The window is ignored by worker
// adapters.
func (s Selector) New(hub *Hub, window *target.Window, opts target.ListenerOptions) (Adapter, error) {
	if hub == nil {
		return nil, errspkg.ErrHubRequired
	}
	switch s {
	case SelectMainThread:
		return NewConsoleAPIListener(hub, window, opts), nil
	case SelectWorker:
		return NewWorkerListener(hub, opts), nil
	default:
		return nil, fmt.Errorf("source: unknown %s", s)
	}
}
