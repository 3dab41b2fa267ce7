// Package watcher turns console activity of a target into batches of
// console-message resources: one batch for the buffered history, then one
// single-element batch per live message.
package watcher

import (
	"github.com/drblury/resourcewatch/internal/runtime/console"
)

// ResourceType tags the kind of resource carried in a batch.
type ResourceType string

// ConsoleMessage is the only resource type this watcher produces.
const ConsoleMessage ResourceType = "console-message"

// Phase tells history batches apart from live ones.
type Phase string

const (
	PhaseHistory Phase = "history"
	PhaseLive    Phase = "live"
)

// Resource is one normalized record ready to cross the wire.
type Resource struct {
	ResourceType ResourceType   `json:"resourceType"`
	Message      console.Record `json:"message"`
}

// OnAvailable receives batches of resources. It is called once with the
// history, possibly empty, and then once per live message.
type OnAvailable func(resources []Resource)

func newResource(rec console.Record) Resource {
	return Resource{ResourceType: ConsoleMessage, Message: rec}
}
