// Package console defines raw console API events and their normalization into
// wire-safe records.
package console

import (
	"strconv"
	"time"
)

// Console API levels with dedicated handling.
const (
	LevelLog   = "log"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelDebug = "debug"
	LevelTrace = "trace"
	LevelTable = "table"
)

// Origin markers carried in InnerID by messages that do not belong to a
// window.
const (
	OriginServiceWorker = "ServiceWorker"
	OriginSharedWorker  = "SharedWorker"
	OriginWorker        = "Worker"
)

// StackFrame is one frame of a console call stack. SourceID holds the
// internal script id on raw messages and the source actor id on records.
type StackFrame struct {
	Filename     string `json:"filename"`
	SourceID     string `json:"sourceId"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
	FunctionName string `json:"functionName"`
	AsyncCause   string `json:"asyncCause,omitempty"`
}

// Counter is attached by console.count.
type Counter struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Timer is attached by console.time, timeLog and timeEnd.
type Timer struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// RawMessage is a console API call as captured by the platform. ID, InnerID,
// ConsoleID and WrappedObject are internal and never leave the process.
type RawMessage struct {
	Level     string
	Arguments []any
	Styles    []string
	TimeStamp time.Time

	// InnerID is the owning window id in decimal, or an Origin marker.
	InnerID       string
	ID            string
	ConsoleID     string
	WrappedObject any

	SourceID     string
	Filename     string
	LineNumber   int
	ColumnNumber int
	FunctionName string
	Category     string
	Stacktrace   []StackFrame

	Counter   *Counter
	Timer     *Timer
	GroupName string
	Prefix    string
	Private   bool
	AddonID   string
}

// Clone copies every slice and pointer field. Argument values themselves are
// shared since they are only ever read.
func (m RawMessage) Clone() RawMessage {
	cloned := m
	if m.Arguments != nil {
		cloned.Arguments = append([]any(nil), m.Arguments...)
	}
	if m.Styles != nil {
		cloned.Styles = append([]string(nil), m.Styles...)
	}
	if m.Stacktrace != nil {
		cloned.Stacktrace = append([]StackFrame(nil), m.Stacktrace...)
	}
	if m.Counter != nil {
		c := *m.Counter
		cloned.Counter = &c
	}
	if m.Timer != nil {
		t := *m.Timer
		cloned.Timer = &t
	}
	return cloned
}

// WindowID parses InnerID as a window id. Messages tagged with an origin
// marker or without an owner report false.
func (m RawMessage) WindowID() (uint64, bool) {
	if m.InnerID == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(m.InnerID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// WindowInnerID formats a window id the way messages carry it.
func WindowInnerID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// WorkerTypeNone tags messages that did not come from a worker.
const WorkerTypeNone = "none"

// WorkerType classifies the context a message came from.
func WorkerType(m RawMessage) string {
	switch m.InnerID {
	case OriginServiceWorker, OriginSharedWorker, OriginWorker:
		return m.InnerID
	}
	if m.ID == OriginWorker {
		return OriginWorker
	}
	return WorkerTypeNone
}

// IsBackgroundWorker reports whether m came from a worker that can outlive
// the page it is attributed to.
func IsBackgroundWorker(m RawMessage) bool {
	return m.InnerID == OriginServiceWorker || m.InnerID == OriginSharedWorker
}

// PredatesReference reports whether a background worker message was logged
// before ref, i.e. during an earlier document's lifetime. A zero ref never
// filters.
func PredatesReference(m RawMessage, ref time.Time) bool {
	if ref.IsZero() || !IsBackgroundWorker(m) {
		return false
	}
	return ref.After(m.TimeStamp)
}
