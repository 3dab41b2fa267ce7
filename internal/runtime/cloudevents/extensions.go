package cloudevents

import "time"

// Extension keys carried by resource batch events.
const (
	ExtTargetID      = "rw_target_id"
	ExtTargetKind    = "rw_target_kind"
	ExtPhase         = "rw_phase"
	ExtBatchSize     = "rw_batch_size"
	ExtSequence      = "rw_sequence"
	ExtCorrelationID = "rw_correlation_id"
	ExtTraceID       = "rw_trace_id"
	ExtParentID      = "rw_parent_id"
	ExtEmittedAt     = "rw_emitted_at"
)

// TypePrefix is prepended to the resource type to form the event type.
const TypePrefix = "resourcewatch."

// EventType returns the CloudEvents type for a resource type.
func EventType(resourceType string) string {
	return TypePrefix + resourceType
}

func setExtension(evt *Event, key string, value any) {
	if evt.Extensions == nil {
		evt.Extensions = make(map[string]any)
	}
	evt.Extensions[key] = value
}

func GetTargetID(evt Event) string { return evt.GetExtensionString(ExtTargetID) }

func SetTargetID(evt *Event, id string) { setExtension(evt, ExtTargetID, id) }

func GetTargetKind(evt Event) string { return evt.GetExtensionString(ExtTargetKind) }

func SetTargetKind(evt *Event, kind string) { setExtension(evt, ExtTargetKind, kind) }

// GetPhase returns "history" for the initial drain and "live" afterwards.
func GetPhase(evt Event) string { return evt.GetExtensionString(ExtPhase) }

func SetPhase(evt *Event, phase string) { setExtension(evt, ExtPhase, phase) }

func GetBatchSize(evt Event) int { return evt.GetExtensionInt(ExtBatchSize) }

func SetBatchSize(evt *Event, n int) { setExtension(evt, ExtBatchSize, n) }

// GetSequence returns the per-target batch sequence number, starting at 1 for
// the history batch.
func GetSequence(evt Event) int { return evt.GetExtensionInt(ExtSequence) }

func SetSequence(evt *Event, n int) { setExtension(evt, ExtSequence, n) }

func GetCorrelationID(evt Event) string { return evt.GetExtensionString(ExtCorrelationID) }

// SetCorrelationID is a no-op for empty ids.
func SetCorrelationID(evt *Event, id string) {
	if id == "" {
		return
	}
	setExtension(evt, ExtCorrelationID, id)
}

func GetTraceID(evt Event) string { return evt.GetExtensionString(ExtTraceID) }

func GetParentID(evt Event) string { return evt.GetExtensionString(ExtParentID) }

// SetTraceContext records the trace and span ids of the publishing span.
// Empty values are skipped.
func SetTraceContext(evt *Event, traceID, spanID string) {
	if traceID != "" {
		setExtension(evt, ExtTraceID, traceID)
	}
	if spanID != "" {
		setExtension(evt, ExtParentID, spanID)
	}
}

func GetEmittedAt(evt Event) time.Time { return evt.GetExtensionTime(ExtEmittedAt) }

func SetEmittedAt(evt *Event, t time.Time) { setExtension(evt, ExtEmittedAt, FormatTime(t)) }
