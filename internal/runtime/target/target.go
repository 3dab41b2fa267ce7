// Package target models the live execution contexts a watcher observes. A
// target is created by target management before any watch begins and outlives
// every watcher attached to it.
package target

import (
	"context"
	"time"
)

// Kind is the closed set of target kinds.
type Kind int

const (
	KindFrame Kind = iota + 1
	KindProcess
	KindWorker
	KindSharedWorker
	KindServiceWorker
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindProcess:
		return "process"
	case KindWorker:
		return "worker"
	case KindSharedWorker:
		return "shared_worker"
	case KindServiceWorker:
		return "service_worker"
	default:
		return "unknown"
	}
}

// IsWorker reports whether the target runs on a worker thread rather than a
// window's main thread.
func (k Kind) IsWorker() bool {
	switch k {
	case KindWorker, KindSharedWorker, KindServiceWorker:
		return true
	default:
		return false
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := KindFrame; k <= KindServiceWorker; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Type names reported by well-known targets.
const (
	TypeNameParentProcess = "parentProcessTarget"
	TypeNameWindowGlobal  = "windowGlobalTarget"
	TypeNameContentProc   = "contentProcessTarget"
	TypeNameWorker        = "workerTarget"
)

// Window is the global a frame target is bound to. NavigationStart is the
// moment the current document began loading; zero means unknown.
type Window struct {
	ID              uint64
	NavigationStart time.Time
}

// Actor is any server-side object addressable by a remote client.
type Actor interface {
	ActorID() string
}

// Target is the boundary the watcher uses to reach the execution context.
type Target interface {
	Actor

	Kind() Kind
	TypeName() string
	// IsRoot reports whether this is the distinguished parent target.
	IsRoot() bool

	IsAttached() bool
	// Attach binds the target to its execution context. Attaching an attached
	// target returns immediately.
	Attach(ctx context.Context) error

	// Window is nil for targets without a window global.
	Window() *Window
	ListenerOverrides() ListenerOptions

	ActorByID(id string) (Actor, bool)
	// SourceActorID maps an internal script source id to the actor id a
	// remote client can use. Lookups fail until the target is attached.
	SourceActorID(internalID string) (string, bool)
}

// ActorPool is implemented by targets that can host actors created while
// materializing values.
type ActorPool interface {
	AddActor(a Actor) string
	RemoveActor(id string)
	NextActorID(typeName string) string
}
