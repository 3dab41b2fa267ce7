package cloudevents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/resourcewatch/internal/runtime/codec"
)

func TestNew(t *testing.T) {
	data := map[string]string{"level": "log"}
	evt := New(EventType("console-message"), "server0.conn0.frame1", data)

	assert.Equal(t, SpecVersion, evt.SpecVersion)
	assert.Equal(t, "resourcewatch.console-message", evt.Type)
	assert.Equal(t, "server0.conn0.frame1", evt.Source)
	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.Time.IsZero())
	assert.Equal(t, data, evt.Data)
	assert.NotNil(t, evt.Extensions)
}

func TestWithHelpersDoNotShareExtensions(t *testing.T) {
	base := New("t", "s", nil)
	derived := base.WithExtension("k", "v").WithSubject("subj").WithDataContentType("application/json")

	assert.Nil(t, base.GetExtension("k"))
	assert.Equal(t, "v", derived.GetExtension("k"))
	require.NotNil(t, derived.Subject)
	assert.Equal(t, "subj", *derived.Subject)
	require.NotNil(t, derived.DataContentType)
	assert.Equal(t, "application/json", *derived.DataContentType)
}

func TestTypedExtensionGetters(t *testing.T) {
	evt := Event{Extensions: map[string]any{
		"s":     "text",
		"n":     42,
		"f":     float64(7),
		"u":     uint64(9),
		"other": true,
		"ts":    "2024-03-01T10:11:12Z",
	}}

	assert.Equal(t, "text", evt.GetExtensionString("s"))
	assert.Equal(t, "true", evt.GetExtensionString("other"))
	assert.Equal(t, "", evt.GetExtensionString("missing"))
	assert.Equal(t, 42, evt.GetExtensionInt("n"))
	assert.Equal(t, 7, evt.GetExtensionInt("f"))
	assert.Equal(t, 9, evt.GetExtensionInt("u"))
	assert.Equal(t, 0, evt.GetExtensionInt("s"))
	assert.Equal(t, 2024, evt.GetExtensionTime("ts").Year())
	assert.True(t, evt.GetExtensionTime("n").IsZero())

	evt.Extensions = nil
	assert.Nil(t, evt.GetExtension("s"))
}

func TestEventValidate(t *testing.T) {
	valid := New("type", "source", nil)
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Event){
		"specversion is required": func(e *Event) { e.SpecVersion = "" },
		"specversion must be":     func(e *Event) { e.SpecVersion = "0.3" },
		"type is required":        func(e *Event) { e.Type = "" },
		"source is required":      func(e *Event) { e.Source = "" },
		"id is required":          func(e *Event) { e.ID = "" },
	}
	for want, mutate := range cases {
		evt := valid.Clone()
		mutate(&evt)
		err := evt.Validate()
		require.Error(t, err, want)
		assert.Contains(t, err.Error(), want)
	}
}

func TestEventCloneIsIndependent(t *testing.T) {
	evt := New("type", "source", nil).WithSubject("a")
	evt.Extensions["k"] = "v"

	cloned := evt.Clone()
	*cloned.Subject = "b"
	cloned.Extensions["k"] = "changed"

	assert.Equal(t, "a", *evt.Subject)
	assert.Equal(t, "v", evt.Extensions["k"])
}

func TestEventJSONFlattensExtensions(t *testing.T) {
	evt := New(EventType("console-message"), "frame-1", map[string]any{"count": 2})
	SetTargetID(&evt, "frame-1")
	SetPhase(&evt, "history")

	raw, err := codec.Marshal(evt)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, codec.Unmarshal(raw, &flat))
	assert.Equal(t, "history", flat[ExtPhase])
	assert.Equal(t, "1.0", flat["specversion"])
	assert.NotContains(t, flat, "extensions")

	var decoded Event
	require.NoError(t, codec.Unmarshal(raw, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
	assert.True(t, evt.Time.Equal(decoded.Time))
	assert.Equal(t, "frame-1", GetTargetID(decoded))
	assert.Equal(t, "history", GetPhase(decoded))
	require.NoError(t, decoded.Validate())
}

func TestEventUnmarshalErrors(t *testing.T) {
	var evt Event
	require.Error(t, codec.Unmarshal([]byte(`{not json`), &evt))
	require.Error(t, codec.Unmarshal([]byte(`{"time":"tomorrow"}`), &evt))
	require.Error(t, codec.Unmarshal([]byte(`{"type":5}`), &evt))
}

type payload struct {
	Records []string `json:"records"`
}

func TestDecodeData(t *testing.T) {
	evt := New("type", "source", payload{Records: []string{"a", "b"}})
	raw, err := codec.Marshal(evt)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, codec.Unmarshal(raw, &decoded))

	var out payload
	require.NoError(t, decoded.DecodeData(&out))
	assert.Equal(t, []string{"a", "b"}, out.Records)

	require.Error(t, Event{ID: "x"}.DecodeData(&out))
}

func TestEventTimeIsUTC(t *testing.T) {
	evt := New("type", "source", nil)
	assert.Equal(t, time.UTC, evt.Time.Location())
}
