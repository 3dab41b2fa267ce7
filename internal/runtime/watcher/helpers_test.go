package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drblury/resourcewatch/internal/runtime/console"
	"github.com/drblury/resourcewatch/internal/runtime/source"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]Resource
}

func (r *recorder) onAvailable(resources []Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, resources)
}

func (r *recorder) snapshot() [][]Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Resource(nil), r.batches...)
}

func (r *recorder) levels(batch int) []string {
	batches := r.snapshot()
	out := make([]string, 0, len(batches[batch]))
	for _, res := range batches[batch] {
		out = append(out, res.Message.Level)
	}
	return out
}

type fakeActor string

func (a fakeActor) ActorID() string { return string(a) }

func rawAt(level, innerID string, ms int64) console.RawMessage {
	return console.RawMessage{Level: level, InnerID: innerID, TimeStamp: time.UnixMilli(ms)}
}

func frameTarget(t *testing.T, windowID uint64, navStartMs int64) *target.Handle {
	t.Helper()
	window := &target.Window{ID: windowID}
	if navStartMs > 0 {
		window.NavigationStart = time.UnixMilli(navStartMs)
	}
	h, err := target.NewHandle(target.HandleConfig{Kind: target.KindFrame, Window: window})
	require.NoError(t, err)
	return h
}

func newTestWatcher(t *testing.T, hub *source.Hub, deps Dependencies) *ConsoleMessageWatcher {
	t.Helper()
	deps.Hub = hub
	w, err := New(deps)
	require.NoError(t, err)
	t.Cleanup(w.Destroy)
	return w
}

func watch(t *testing.T, w *ConsoleMessageWatcher, tgt target.Target) *recorder {
	t.Helper()
	rec := &recorder{}
	require.NoError(t, w.Watch(context.Background(), tgt, rec.onAvailable))
	return rec
}
