package metadata

// Header keys attached to every published resource batch. They are reserved
// and override any caller supplied value with the same name.
const (
	KeyTargetID      = "resourcewatch_target_id"
	KeyTargetKind    = "resourcewatch_target_kind"
	KeyResourceType  = "resourcewatch_resource_type"
	KeyPhase         = "resourcewatch_phase"
	KeyBatchSize     = "resourcewatch_batch_size"
	KeyContentType   = "content_type"
	KeyEmittedAt     = "resourcewatch_emitted_at"
	KeySequence      = "resourcewatch_sequence"
	KeyCorrelationID = "correlation_id"
	KeyTraceID       = "trace_id"
	KeySpanID        = "span_id"
)
