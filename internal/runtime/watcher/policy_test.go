package watcher

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/resourcewatch/internal/runtime/target"
)

func newHandle(t *testing.T, cfg target.HandleConfig) *target.Handle {
	t.Helper()
	h, err := target.NewHandle(cfg)
	require.NoError(t, err)
	return h
}

func TestResolveListenerOptions(t *testing.T) {
	process := newHandle(t, target.HandleConfig{Kind: target.KindProcess})
	assert.True(t, ResolveListenerOptions(process).ExcludeBoundToWindow())

	frame := newHandle(t, target.HandleConfig{Kind: target.KindFrame})
	assert.True(t, ResolveListenerOptions(frame).IsZero())

	overridden := newHandle(t, target.HandleConfig{
		Kind: target.KindProcess,
		Overrides: target.ListenerOptions{
			ExcludeMessagesBoundToWindow: target.Bool(false),
			MatchAddonID:                 "addon@example",
		},
	})
	opts := ResolveListenerOptions(overridden)
	require.NotNil(t, opts.ExcludeMessagesBoundToWindow)
	assert.False(t, opts.ExcludeBoundToWindow())
	assert.Equal(t, "addon@example", opts.MatchAddonID)
}

func TestResolveWindowScope(t *testing.T) {
	window := &target.Window{ID: 4}

	frame := newHandle(t, target.HandleConfig{Kind: target.KindFrame, Window: window})
	require.NotNil(t, ResolveWindowScope(frame))
	assert.Equal(t, uint64(4), ResolveWindowScope(frame).ID)

	parent := newHandle(t, target.HandleConfig{Kind: target.KindFrame, Root: true, Window: window})
	assert.Nil(t, ResolveWindowScope(parent))

	process := newHandle(t, target.HandleConfig{Kind: target.KindProcess, Window: window})
	assert.Nil(t, ResolveWindowScope(process))

	worker := newHandle(t, target.HandleConfig{Kind: target.KindServiceWorker})
	assert.Nil(t, ResolveWindowScope(worker))
}

func TestReferenceStartTime(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	frame := newHandle(t, target.HandleConfig{
		Kind:   target.KindFrame,
		Window: &target.Window{ID: 1, NavigationStart: start},
	})
	assert.True(t, start.Equal(ReferenceStartTime(frame)))

	process := newHandle(t, target.HandleConfig{Kind: target.KindProcess})
	assert.True(t, ReferenceStartTime(process).IsZero())
}

func TestMetricsRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Register())
	require.NoError(t, m.Register())
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, m.Register())

	m.SessionStarted()
	m.RecordBatch("frame", PhaseHistory, 3)
	m.RecordBatch("frame", PhaseLive, 1)
	m.RecordFiltered("frame", 2)
	m.RecordFiltered("frame", 0)
	m.RecordLogPoint("frame")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.deliveredTotal.WithLabelValues("frame", "history")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchesTotal.WithLabelValues("frame", "live")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.filteredTotal.WithLabelValues("frame")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))

	snap := m.Snapshot()
	assert.Equal(t, uint64(4), snap.Delivered)
	assert.Equal(t, uint64(2), snap.Filtered)
	assert.Equal(t, uint64(1), snap.HistoryBatches)
	assert.Equal(t, uint64(1), snap.LiveBatches)
	assert.Equal(t, uint64(1), snap.LogPoints)
	assert.False(t, snap.CollectedAt.IsZero())

	m.SessionEnded()
	m.SessionEnded()
	assert.Equal(t, int64(0), m.Snapshot().ActiveSessions)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		require.NoError(t, m.Register())
		m.SessionStarted()
		m.RecordBatch("frame", PhaseLive, 1)
		m.RecordFiltered("frame", 1)
		m.RecordLogPoint("frame")
		m.SessionEnded()
	})
	assert.Zero(t, m.Snapshot().Delivered)
}

func TestNilRegistererUsesDefault(t *testing.T) {
	m := NewMetrics(nil)
	assert.Equal(t, prometheus.DefaultRegisterer, m.registerer)
}

func TestDeliveryHooksMerge(t *testing.T) {
	var calls []string
	a := DeliveryHooks{
		OnHistory: func(DeliveryContext) { calls = append(calls, "a-history") },
		OnLive:    func(DeliveryContext) { calls = append(calls, "a-live") },
	}
	b := DeliveryHooks{
		OnHistory: func(DeliveryContext) { calls = append(calls, "b-history") },
	}

	merged := a.Merge(b)
	merged.delivered(DeliveryContext{Phase: PhaseHistory})
	merged.delivered(DeliveryContext{Phase: PhaseLive})
	assert.Nil(t, merged.OnFiltered)

	assert.Equal(t, []string{"a-history", "b-history", "a-live"}, calls)
}
