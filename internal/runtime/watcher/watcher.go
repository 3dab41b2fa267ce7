package watcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/drblury/resourcewatch/internal/runtime/console"
	errspkg "github.com/drblury/resourcewatch/internal/runtime/errors"
	"github.com/drblury/resourcewatch/internal/runtime/grip"
	"github.com/drblury/resourcewatch/internal/runtime/logging"
	"github.com/drblury/resourcewatch/internal/runtime/source"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

const tracerName = "resourcewatch-watcher"

// Dependencies wires a ConsoleMessageWatcher. Hub is required; everything
// else has a usable default.
type Dependencies struct {
	Hub *source.Hub
	// Selector picks the adapter flavour. Target management resolves it
	// from the target kind when the target is created.
	Selector     source.Selector
	Materializer grip.Materializer
	// MaxActors bounds the object actors one session keeps in the target's
	// pool. Zero selects DefaultMaxActors.
	MaxActors int
	Logger    logging.ServiceLogger
	Metrics   *Metrics
	Hooks     DeliveryHooks
}

type session struct {
	target target.Target
	// view is the target values are materialized through. Actors added via
	// view belong to scope and are released on Destroy.
	view        target.Target
	scope       *actorScope
	adapter     source.Adapter
	onAvailable OnAvailable
	closed      atomic.Bool
}

// ConsoleMessageWatcher watches console messages of one target at a time.
// A session lives from a successful Watch to Destroy; a destroyed watcher may
// watch again.
type ConsoleMessageWatcher struct {
	hub        *source.Hub
	selector   source.Selector
	normalizer *console.Normalizer
	maxActors  int
	logger     logging.ServiceLogger
	metrics    *Metrics
	hooks      DeliveryHooks

	mu       sync.Mutex
	session  *session
	starting bool
}

// New builds a watcher from deps.
func New(deps Dependencies) (*ConsoleMessageWatcher, error) {
	if deps.Hub == nil {
		return nil, errspkg.ErrHubRequired
	}
	materializer := deps.Materializer
	if materializer == nil {
		materializer = grip.NewRegistryMaterializer()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopServiceLogger()
	}
	return &ConsoleMessageWatcher{
		hub:        deps.Hub,
		selector:   deps.Selector,
		normalizer: console.NewNormalizer(materializer),
		maxActors:  deps.MaxActors,
		logger:     logger,
		metrics:    deps.Metrics,
		hooks:      deps.Hooks,
	}, nil
}

// Watch starts a session on t. The history batch is passed to onAvailable
// before Watch returns, even when empty, and always before any live batch.
func (w *ConsoleMessageWatcher) Watch(ctx context.Context, t target.Target, onAvailable OnAvailable) (err error) {
	if t == nil {
		return errspkg.ErrTargetRequired
	}
	if onAvailable == nil {
		return errspkg.ErrCallbackRequired
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ConsoleMessageWatcher.Watch")
	defer span.End()
	span.SetAttributes(
		attribute.String("target.id", t.ActorID()),
		attribute.String("target.kind", t.Kind().String()),
		attribute.String("target.type_name", t.TypeName()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	w.mu.Lock()
	if w.session != nil || w.starting {
		w.mu.Unlock()
		return errspkg.ErrSessionActive
	}
	w.starting = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.starting = false
		w.mu.Unlock()
	}()

	log := w.logger.With(logging.LogFields{
		"target_id":   t.ActorID(),
		"target_kind": t.Kind().String(),
	})

	if !t.IsAttached() {
		if err := t.Attach(ctx); err != nil {
			return fmt.Errorf("attach target %s: %w", t.ActorID(), err)
		}
	}

	opts := ResolveListenerOptions(t)
	window := ResolveWindowScope(t)

	adapter, err := w.selector.New(w.hub, window, opts)
	if err != nil {
		return fmt.Errorf("create %s adapter: %w", w.selector, err)
	}
	if err := adapter.Init(); err != nil {
		adapter.Destroy()
		return fmt.Errorf("init %s adapter: %w", w.selector, err)
	}

	view, scope := scopeTarget(t, w.maxActors)
	s := &session{target: t, view: view, scope: scope, adapter: adapter, onAvailable: onAvailable}
	w.mu.Lock()
	w.session = s
	w.mu.Unlock()
	w.metrics.SessionStarted()

	log.Info("Console watch started", logging.LogFields{
		"selector":      w.selector.String(),
		"window_scoped": window != nil,
	})

	ref := ReferenceStartTime(t)
	kind := t.Kind().String()

	started := time.Now()
	cached := adapter.CachedMessages(!t.IsRoot())
	batch := make([]Resource, 0, len(cached))
	filtered := 0
	for _, raw := range cached {
		if console.PredatesReference(raw, ref) {
			filtered++
			if w.hooks.OnFiltered != nil {
				w.hooks.OnFiltered(DeliveryContext{
					TargetID:   t.ActorID(),
					TargetKind: t.Kind(),
					Phase:      PhaseHistory,
					StartedAt:  started,
				}, raw)
			}
			continue
		}
		batch = append(batch, newResource(w.normalizer.Normalize(view, raw)))
	}
	w.metrics.RecordFiltered(kind, filtered)
	if filtered > 0 {
		log.Debug("Dropped console messages from a previous context", logging.LogFields{
			"filtered": filtered,
		})
	}

	if s.closed.Load() {
		return errspkg.ErrInvalidState
	}
	onAvailable(batch)
	w.metrics.RecordBatch(kind, PhaseHistory, len(batch))
	w.hooks.delivered(DeliveryContext{
		TargetID:   t.ActorID(),
		TargetKind: t.Kind(),
		Phase:      PhaseHistory,
		Count:      len(batch),
		StartedAt:  started,
		Duration:   time.Since(started),
	})
	span.SetAttributes(
		attribute.Int("history.count", len(batch)),
		attribute.Int("history.filtered", filtered),
	)

	adapter.SetHandler(func(raw console.RawMessage) {
		w.deliverLive(s, raw)
	})
	return nil
}

func (w *ConsoleMessageWatcher) deliverLive(s *session, raw console.RawMessage) {
	if s.closed.Load() {
		return
	}
	started := time.Now()
	res := newResource(w.normalizer.Normalize(s.view, raw))
	if s.closed.Load() {
		return
	}
	s.onAvailable([]Resource{res})
	w.metrics.RecordBatch(s.target.Kind().String(), PhaseLive, 1)
	w.hooks.delivered(DeliveryContext{
		TargetID:   s.target.ActorID(),
		TargetKind: s.target.Kind(),
		Phase:      PhaseLive,
		Count:      1,
		StartedAt:  started,
		Duration:   time.Since(started),
	})
}

// OnLogPoint injects raw into the live path of the current session, skipping
// capture filters. It returns ErrInvalidState when no session is established.
func (w *ConsoleMessageWatcher) OnLogPoint(raw console.RawMessage) error {
	w.mu.Lock()
	s := w.session
	w.mu.Unlock()
	if s == nil || s.closed.Load() {
		return errspkg.ErrInvalidState
	}
	w.metrics.RecordLogPoint(s.target.Kind().String())
	s.adapter.Handle(raw)
	return nil
}

// Active reports whether a session is established.
func (w *ConsoleMessageWatcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session != nil
}

// Destroy ends the current session. It is safe to call without a session
// and more than once. Live messages arriving after Destroy are dropped.
func (w *ConsoleMessageWatcher) Destroy() {
	w.mu.Lock()
	s := w.session
	w.session = nil
	w.mu.Unlock()

	if s == nil {
		return
	}
	s.closed.Store(true)
	s.adapter.Destroy()
	released := s.scope.release()
	w.metrics.SessionEnded()
	w.logger.Info("Console watch stopped", logging.LogFields{
		"target_id":       s.target.ActorID(),
		"actors_released": released,
	})
}
