package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/resourcewatch/internal/runtime/codec"
	"github.com/drblury/resourcewatch/internal/runtime/grip"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

func attachedFrame(t *testing.T) *target.Handle {
	t.Helper()
	h, err := target.NewHandle(target.HandleConfig{Kind: target.KindFrame, Window: &target.Window{ID: 3}})
	require.NoError(t, err)
	require.NoError(t, h.Attach(context.Background()))
	return h
}

func newNormalizer() *Normalizer {
	return NewNormalizer(grip.NewRegistryMaterializer())
}

func TestNormalizeDropsInternalFields(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level:         LevelLog,
		Arguments:     []any{"hello"},
		TimeStamp:     time.UnixMilli(1500),
		InnerID:       "3",
		ID:            "internal-7",
		ConsoleID:     "console-session",
		WrappedObject: struct{}{},
	}

	rec := newNormalizer().Normalize(h, raw)
	data, err := codec.Marshal(rec)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, codec.Unmarshal(data, &wire))
	for _, key := range []string{"ID", "id", "innerID", "innerId", "consoleID", "consoleId", "wrappedJSObject", "WrappedObject"} {
		assert.NotContains(t, wire, key)
	}
	assert.Equal(t, "3", wire["owningWindowId"])
	assert.Equal(t, float64(1500), wire["timeStamp"])
	assert.Equal(t, WorkerTypeNone, wire["workerType"])
}

func TestNormalizeDoesNotMutateRaw(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level:      LevelTable,
		Arguments:  []any{[]any{1}, []any{"col"}, "extra"},
		Stacktrace: []StackFrame{{SourceID: "s1"}},
		Counter:    &Counter{Label: "x", Count: 1},
	}
	before := raw.Clone()

	_ = newNormalizer().Normalize(h, raw)

	assert.Equal(t, before, raw)
	assert.Len(t, raw.Arguments, 3)
	assert.Equal(t, "s1", raw.Stacktrace[0].SourceID)
}

func TestNormalizeResolvesSourceIDs(t *testing.T) {
	h := attachedFrame(t)
	known := h.RegisterSource("script-1")

	raw := RawMessage{
		Level:    LevelError,
		SourceID: "script-1",
		Stacktrace: []StackFrame{
			{FunctionName: "inner", SourceID: "script-1", LineNumber: 10},
			{FunctionName: "missing", SourceID: "script-404", LineNumber: 20},
			{FunctionName: "anon", LineNumber: 30},
		},
	}
	rec := newNormalizer().Normalize(h, raw)

	assert.Equal(t, known, rec.SourceID)
	require.Len(t, rec.Stacktrace, 3)
	assert.Equal(t, []string{"inner", "missing", "anon"}, []string{
		rec.Stacktrace[0].FunctionName, rec.Stacktrace[1].FunctionName, rec.Stacktrace[2].FunctionName,
	})
	assert.Equal(t, known, rec.Stacktrace[0].SourceID)
	assert.Equal(t, UnresolvedSourceID, rec.Stacktrace[1].SourceID)
	assert.Equal(t, UnresolvedSourceID, rec.Stacktrace[2].SourceID)
	assert.Equal(t, 20, rec.Stacktrace[1].LineNumber)

	noSource := newNormalizer().Normalize(h, RawMessage{Level: LevelLog})
	assert.Equal(t, UnresolvedSourceID, noSource.SourceID)
	assert.Nil(t, noSource.Stacktrace)
}

func TestNormalizeArgumentsStylesAndCategory(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level:     LevelLog,
		Arguments: []any{"%cstyled", 2, nil, map[string]any{"k": "v"}},
		Styles:    []string{"color:red"},
	}
	rec := newNormalizer().Normalize(h, raw)

	require.Len(t, rec.Arguments, 4)
	assert.Equal(t, grip.TypeString, rec.Arguments[0].Type)
	assert.Equal(t, 2, rec.Arguments[1].Value)
	assert.Equal(t, grip.TypeNull, rec.Arguments[2].Type)
	assert.Equal(t, grip.TypeObject, rec.Arguments[3].Type)
	require.Len(t, rec.Styles, 1)
	assert.Equal(t, "color:red", rec.Styles[0].Value)
	assert.Equal(t, DefaultCategory, rec.Category)

	rec = newNormalizer().Normalize(h, RawMessage{Level: LevelLog, Category: "content"})
	assert.Equal(t, "content", rec.Category)
	assert.NotNil(t, rec.Arguments)
	assert.NotNil(t, rec.Styles)
}

func TestWorkerType(t *testing.T) {
	assert.Equal(t, "ServiceWorker", WorkerType(RawMessage{InnerID: OriginServiceWorker}))
	assert.Equal(t, "SharedWorker", WorkerType(RawMessage{InnerID: OriginSharedWorker}))
	assert.Equal(t, "Worker", WorkerType(RawMessage{ID: OriginWorker}))
	assert.Equal(t, WorkerTypeNone, WorkerType(RawMessage{InnerID: "12"}))
}

func TestPredatesReference(t *testing.T) {
	ref := time.UnixMilli(10)
	sw := RawMessage{InnerID: OriginServiceWorker, TimeStamp: time.UnixMilli(5)}

	assert.True(t, PredatesReference(sw, ref))
	assert.False(t, PredatesReference(sw, time.Time{}), "zero reference never filters")

	sw.TimeStamp = time.UnixMilli(10)
	assert.False(t, PredatesReference(sw, ref), "equal timestamps are kept")

	window := RawMessage{InnerID: "3", TimeStamp: time.UnixMilli(5)}
	assert.False(t, PredatesReference(window, ref))
}

func TestWindowID(t *testing.T) {
	id, ok := RawMessage{InnerID: WindowInnerID(42)}.WindowID()
	require.True(t, ok)
	assert.Equal(t, uint64(42), id)

	_, ok = RawMessage{InnerID: OriginServiceWorker}.WindowID()
	assert.False(t, ok)
	_, ok = RawMessage{}.WindowID()
	assert.False(t, ok)
}

func TestRecordTime(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	rec := newNormalizer().Normalize(attachedFrame(t), RawMessage{TimeStamp: ts})
	assert.True(t, ts.Equal(rec.Time()))
	assert.True(t, Record{}.Time().IsZero())
}
