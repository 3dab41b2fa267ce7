package watcher

import (
	"time"

	"github.com/drblury/resourcewatch/internal/runtime/console"
	"github.com/drblury/resourcewatch/internal/runtime/logging"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

// DeliveryContext describes one batch handed to onAvailable.
type DeliveryContext struct {
	// TargetID is the actor id of the watched target.
	TargetID   string
	TargetKind target.Kind
	Phase      Phase
	// Count is the number of resources in the batch.
	Count int
	// StartedAt is when the batch started being built.
	StartedAt time.Time
	// Duration covers normalization and the onAvailable call.
	Duration time.Duration
}

// DeliveryHooks are optional callbacks around delivery. Nil hooks are not
// called.
type DeliveryHooks struct {
	// OnHistory runs after the history batch was delivered.
	OnHistory func(ctx DeliveryContext)

	// OnLive runs after each live batch was delivered.
	OnLive func(ctx DeliveryContext)

	// OnFiltered runs for every history message dropped as stale, before the
	// history batch is delivered.
	OnFiltered func(ctx DeliveryContext, msg console.RawMessage)
}

// Merge combines two DeliveryHooks. The hooks from other run after those
// from h.
func (h DeliveryHooks) Merge(other DeliveryHooks) DeliveryHooks {
	return DeliveryHooks{
		OnHistory:  chainDeliveryHooks(h.OnHistory, other.OnHistory),
		OnLive:     chainDeliveryHooks(h.OnLive, other.OnLive),
		OnFiltered: chainFilteredHooks(h.OnFiltered, other.OnFiltered),
	}
}

func chainDeliveryHooks(a, b func(DeliveryContext)) func(DeliveryContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DeliveryContext) {
		a(ctx)
		b(ctx)
	}
}

func chainFilteredHooks(a, b func(DeliveryContext, console.RawMessage)) func(DeliveryContext, console.RawMessage) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DeliveryContext, msg console.RawMessage) {
		a(ctx, msg)
		b(ctx, msg)
	}
}

func (h DeliveryHooks) delivered(ctx DeliveryContext) {
	switch ctx.Phase {
	case PhaseHistory:
		if h.OnHistory != nil {
			h.OnHistory(ctx)
		}
	case PhaseLive:
		if h.OnLive != nil {
			h.OnLive(ctx)
		}
	}
}

// LoggingHooks returns hooks that log deliveries at debug level.
func LoggingHooks(logger logging.ServiceLogger) DeliveryHooks {
	log := func(ctx DeliveryContext) {
		logger.Debug("Console resources delivered", logging.LogFields{
			"target_id":   ctx.TargetID,
			"target_kind": ctx.TargetKind.String(),
			"phase":       string(ctx.Phase),
			"count":       ctx.Count,
			"duration_ms": ctx.Duration.Milliseconds(),
		})
	}
	return DeliveryHooks{
		OnHistory: log,
		OnLive:    log,
		OnFiltered: func(ctx DeliveryContext, msg console.RawMessage) {
			logger.Debug("Stale console message dropped", logging.LogFields{
				"target_id":   ctx.TargetID,
				"worker_type": console.WorkerType(msg),
				"timestamp":   msg.TimeStamp,
			})
		},
	}
}
