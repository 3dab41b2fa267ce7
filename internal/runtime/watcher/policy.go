package watcher

import (
	"time"

	"github.com/drblury/resourcewatch/internal/runtime/target"
)

// ResolveListenerOptions returns the capture options for t. Out-of-process
// targets exclude window-bound messages by default; the target's own
// overrides win over the base policy.
func ResolveListenerOptions(t target.Target) target.ListenerOptions {
	var base target.ListenerOptions
	if t.Kind() == target.KindProcess {
		base.ExcludeMessagesBoundToWindow = target.Bool(true)
	}
	return base.Merge(t.ListenerOverrides())
}

// ResolveWindowScope returns the window capture is limited to, or nil for
// process-wide capture including windowless messages.
func ResolveWindowScope(t target.Target) *target.Window {
	if t.Kind() != target.KindFrame || t.TypeName() == target.TypeNameParentProcess {
		return nil
	}
	return t.Window()
}

// ReferenceStartTime is the start of the context t represents. The zero time
// disables stale message filtering.
func ReferenceStartTime(t target.Target) time.Time {
	if w := t.Window(); w != nil {
		return w.NavigationStart
	}
	return time.Time{}
}
