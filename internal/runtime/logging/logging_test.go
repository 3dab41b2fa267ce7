package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillServiceLoggerDelegates(t *testing.T) {
	base := newRecordingWatermillLogger()
	logger := NewWatermillServiceLogger(base)

	logger.Debug("dbg", LogFields{"component": "watcher"})
	logger.Info("info", nil)
	logger.Trace("trace", LogFields{"trace": true})
	logger.Error("oops", errors.New("boom"), LogFields{"failed": true})

	child := logger.With(LogFields{"target": "frame-1"})
	child.Info("child_info", nil)

	require.Len(t, base.entries, 6)
	assert.Equal(t, "debug", base.entries[0].level)
	assert.Equal(t, "watcher", base.entries[0].fields["component"])
	assert.Equal(t, "frame-1", base.entries[4].fields["target"])
	assert.Equal(t, "info", base.entries[5].level)
}

func TestConstructorsPanicOnNil(t *testing.T) {
	assert.Panics(t, func() { NewWatermillServiceLogger(nil) })
	assert.Panics(t, func() { NewSlogServiceLogger(nil) })
	assert.Panics(t, func() { NewWatermillAdapter(nil) })
}

func TestWatermillAdapterDelegates(t *testing.T) {
	base := &recordingServiceLogger{}
	adapter := NewWatermillAdapter(base)

	adapter.Debug("dbg", watermill.LogFields{"k": "v"})
	adapter.Info("info", nil)
	adapter.Trace("trace", nil)
	adapter.Error("err", errors.New("boom"), nil)

	child := adapter.With(watermill.LogFields{"child": "yes"})
	child.Info("child_info", nil)

	require.Len(t, base.entries, 4)
	assert.Equal(t, "v", base.entries[0].fields["k"])
	assert.Equal(t, "error", base.entries[3].level)
}

func TestWatermillAdapterUnwrapsServiceLogger(t *testing.T) {
	capture := watermill.NewCaptureLogger()
	adapter := NewWatermillAdapter(NewWatermillServiceLogger(capture))
	assert.Same(t, capture, adapter)

	adapter.Info("published", watermill.LogFields{"topic": "console"})
	assert.True(t, capture.Has(watermill.CapturedMessage{
		Level:  watermill.InfoLogLevel,
		Fields: watermill.LogFields{"topic": "console"},
		Msg:    "published",
	}))
}

func TestNopServiceLogger(t *testing.T) {
	logger := NewNopServiceLogger()
	logger.With(LogFields{"a": 1}).Info("ignored", nil)
	logger.Error("ignored", errors.New("x"), nil)
}

func TestNewHandlerLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := NewHandlerLogger(buf, "json", "warn")
	require.NoError(t, err)

	svc := NewSlogServiceLogger(log)
	svc.Info("hidden", nil)
	svc.Error("shown", errors.New("boom"), LogFields{"target": "t1"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "\"target\":\"t1\"")

	buf.Reset()
	log, err = NewHandlerLogger(buf, "text", "debug")
	require.NoError(t, err)
	log.Debug("plain")
	assert.True(t, strings.Contains(buf.String(), "msg=plain"))

	_, err = NewHandlerLogger(buf, "xml", "info")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"trace":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestWatermillFieldConversions(t *testing.T) {
	assert.Nil(t, toWatermillFields(nil))
	assert.Nil(t, fromWatermillFields(nil))

	wm := toWatermillFields(LogFields{"a": 1})
	assert.Equal(t, 1, wm["a"])
	assert.Equal(t, 1, fromWatermillFields(wm)["a"])
}

type recordingWatermillLogger struct {
	entries []watermillEntry
	sink    *[]watermillEntry
}

type watermillEntry struct {
	level  string
	fields watermill.LogFields
	err    error
}

func newRecordingWatermillLogger() *recordingWatermillLogger {
	logger := &recordingWatermillLogger{}
	logger.sink = &logger.entries
	return logger
}

func (r *recordingWatermillLogger) record(entry watermillEntry) {
	*r.sink = append(*r.sink, entry)
}

func (r *recordingWatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	r.record(watermillEntry{level: "error", fields: fields, err: err})
}

func (r *recordingWatermillLogger) Info(msg string, fields watermill.LogFields) {
	r.record(watermillEntry{level: "info", fields: fields})
}

func (r *recordingWatermillLogger) Debug(msg string, fields watermill.LogFields) {
	r.record(watermillEntry{level: "debug", fields: fields})
}

func (r *recordingWatermillLogger) Trace(msg string, fields watermill.LogFields) {
	r.record(watermillEntry{level: "trace", fields: fields})
}

func (r *recordingWatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	child := newRecordingWatermillLogger()
	child.sink = r.sink
	child.record(watermillEntry{level: "with", fields: fields})
	return child
}

type recordingServiceLogger struct {
	entries []loggedEntry
}

type loggedEntry struct {
	level  string
	msg    string
	fields LogFields
	err    error
}

func (r *recordingServiceLogger) With(fields LogFields) ServiceLogger {
	return &recordingServiceLogger{entries: []loggedEntry{{level: "with", fields: fields}}}
}

func (r *recordingServiceLogger) Debug(msg string, fields LogFields) {
	r.entries = append(r.entries, loggedEntry{level: "debug", msg: msg, fields: fields})
}

func (r *recordingServiceLogger) Info(msg string, fields LogFields) {
	r.entries = append(r.entries, loggedEntry{level: "info", msg: msg, fields: fields})
}

func (r *recordingServiceLogger) Error(msg string, err error, fields LogFields) {
	r.entries = append(r.entries, loggedEntry{level: "error", msg: msg, fields: fields, err: err})
}

func (r *recordingServiceLogger) Trace(msg string, fields LogFields) {
	r.entries = append(r.entries, loggedEntry{level: "trace", msg: msg, fields: fields})
}
