package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drblury/resourcewatch/internal/runtime/codec"
	configpkg "github.com/drblury/resourcewatch/internal/runtime/config"
	"github.com/drblury/resourcewatch/internal/runtime/console"
	errspkg "github.com/drblury/resourcewatch/internal/runtime/errors"
	"github.com/drblury/resourcewatch/internal/runtime/grip"
	loggingpkg "github.com/drblury/resourcewatch/internal/runtime/logging"
	"github.com/drblury/resourcewatch/internal/runtime/sink"
	"github.com/drblury/resourcewatch/internal/runtime/source"
	"github.com/drblury/resourcewatch/internal/runtime/target"
	transportpkg "github.com/drblury/resourcewatch/internal/runtime/transport"
	"github.com/drblury/resourcewatch/internal/runtime/watcher"
)

const shutdownTimeout = 5 * time.Second

// ServiceDependencies holds the optional collaborators of a Service. Leave
// fields nil to use the defaults built from the config.
type ServiceDependencies struct {
	// Sink receives every batch. When nil the service builds the configured
	// transport and publishes through a sink.PublisherSink.
	Sink             sink.Sink
	TransportFactory transportpkg.Factory
	// Registerer receives the watcher metrics. Nil selects the default
	// Prometheus registerer.
	Registerer   prometheus.Registerer
	Materializer grip.Materializer
	Hooks        watcher.DeliveryHooks
}

type watchedTarget struct {
	target  target.Target
	watcher *watcher.ConsoleMessageWatcher
}

// forgetter is implemented by sinks that keep per-target state.
type forgetter interface {
	Forget(targetID string)
}

// Service manages one console watcher per target and forwards their batches
// to a sink.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	sink         sink.Sink
	transport    *transportpkg.Transport
	capabilities transportpkg.Capabilities
	metrics      *watcher.Metrics
	gatherer     prometheus.Gatherer
	materializer grip.Materializer
	hooks        watcher.DeliveryHooks

	mu       sync.Mutex
	watchers map[string]*watchedTarget
	closed   bool

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService validates conf and wires the sink, metrics and transport.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(unwrapJoined(err)...)
	}

	log.Info("Creating resource watch service", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"topic":         conf.Topic,
		"codec":         conf.Codec,
		"config":        conf,
	})

	s := &Service{
		Conf:         conf,
		Logger:       log,
		sink:         deps.Sink,
		materializer: deps.Materializer,
		hooks:        watcher.LoggingHooks(log).Merge(deps.Hooks),
		watchers:     make(map[string]*watchedTarget),
	}

	s.metrics = watcher.NewMetrics(deps.Registerer)
	if err := s.metrics.Register(); err != nil {
		return nil, fmt.Errorf("register watcher metrics: %w", err)
	}
	s.gatherer = prometheus.DefaultGatherer
	if g, ok := deps.Registerer.(prometheus.Gatherer); ok {
		s.gatherer = g
	}

	if s.sink == nil {
		if err := s.buildPublisherSink(ctx, deps.TransportFactory); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) buildPublisherSink(ctx context.Context, factory transportpkg.Factory) error {
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	c, err := codec.ByName(s.Conf.Codec)
	if err != nil {
		return err
	}

	tr, err := factory.Build(ctx, s.Conf, loggingpkg.NewWatermillAdapter(s.Logger))
	if err != nil {
		return fmt.Errorf("build transport: %w", err)
	}
	if tr.Publisher == nil {
		_ = tr.Close()
		return errspkg.ErrPublisherRequired
	}

	publisherSink, err := sink.NewPublisherSink(tr.Publisher, sink.PublisherConfig{
		Topic: s.Conf.Topic,
		Codec: c,
		Retry: sink.RetryConfig{
			MaxRetries:      s.Conf.RetryMaxRetries,
			InitialInterval: s.Conf.RetryInitialInterval,
			MaxInterval:     s.Conf.RetryMaxInterval,
		},
		Logger: s.Logger,
	})
	if err != nil {
		_ = tr.Close()
		return err
	}

	s.capabilities = factory.Capabilities(s.Conf.PubSubSystem)
	if !s.capabilities.PreservesSequence() {
		s.Logger.Info("Transport does not guarantee batch order; consumers must reorder by sequence", loggingpkg.LogFields{
			"pubsub_system": s.Conf.PubSubSystem,
		})
	}

	s.transport = &tr
	s.sink = publisherSink
	return nil
}

// unwrapJoined flattens an errors.Join result.
func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// NewHub returns a console event hub sized by the configured history capacity.
func (s *Service) NewHub() *source.Hub {
	return source.NewHub(s.Conf.HistoryCapacity)
}

// Sink returns the sink batches are delivered to.
func (s *Service) Sink() sink.Sink {
	return s.sink
}

// Capabilities returns the capabilities of the built transport. It is the
// zero value when a sink was injected.
func (s *Service) Capabilities() transportpkg.Capabilities {
	return s.capabilities
}

// Subscriber returns the subscriber side of the built transport, or nil when
// a sink was injected or the transport is publish-only.
func (s *Service) Subscriber() message.Subscriber {
	if s.transport == nil {
		return nil
	}
	return s.transport.Subscriber
}

// WatchTarget starts watching console messages of t, whose events are
// emitted on hub. A session already running for the same actor id is
// destroyed first. The history batch has been delivered when WatchTarget
// returns.
func (s *Service) WatchTarget(ctx context.Context, t target.Target, hub *source.Hub) error {
	if t == nil {
		return errspkg.ErrTargetRequired
	}
	if hub == nil {
		return errspkg.ErrHubRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errspkg.ErrServiceClosed
	}

	id := t.ActorID()
	if prev, ok := s.watchers[id]; ok {
		delete(s.watchers, id)
		prev.watcher.Destroy()
		s.forget(id)
	}

	logger := s.Logger.With(loggingpkg.LogFields{"target_id": id})
	w, err := watcher.New(watcher.Dependencies{
		Hub:          hub,
		Selector:     source.SelectorFor(t.Kind()),
		Materializer: s.materializer,
		MaxActors:    s.Conf.MaxSessionActors,
		Logger:       logger,
		Metrics:      s.metrics,
		Hooks:        s.hooks,
	})
	if err != nil {
		return err
	}

	deliverCtx := context.WithoutCancel(ctx)
	var historyDelivered atomic.Bool
	onAvailable := func(resources []watcher.Resource) {
		phase := watcher.PhaseLive
		if historyDelivered.CompareAndSwap(false, true) {
			phase = watcher.PhaseHistory
		}
		batch := sink.Batch{
			TargetID:   id,
			TargetKind: t.Kind(),
			Phase:      phase,
			Resources:  resources,
		}
		if err := s.sink.Deliver(deliverCtx, batch); err != nil {
			logger.Error("Failed to deliver console batch", err, loggingpkg.LogFields{
				"phase": string(phase),
				"count": len(resources),
			})
		}
	}

	if err := w.Watch(ctx, t, onAvailable); err != nil {
		return fmt.Errorf("watch %s: %w", id, err)
	}
	s.watchers[id] = &watchedTarget{target: t, watcher: w}
	return nil
}

// UnwatchTarget destroys the session of actorID.
func (s *Service) UnwatchTarget(actorID string) error {
	s.mu.Lock()
	wt, ok := s.watchers[actorID]
	if ok {
		delete(s.watchers, actorID)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", errspkg.ErrTargetNotWatched, actorID)
	}
	wt.watcher.Destroy()
	s.forget(actorID)
	return nil
}

func (s *Service) forget(actorID string) {
	if f, ok := s.sink.(forgetter); ok {
		f.Forget(actorID)
	}
}

// LogPoint injects a synthesized message into the live path of actorID.
func (s *Service) LogPoint(actorID string, raw console.RawMessage) error {
	s.mu.Lock()
	wt, ok := s.watchers[actorID]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", errspkg.ErrTargetNotWatched, actorID)
	}
	return wt.watcher.OnLogPoint(raw)
}

// Watched returns the actor ids with an active session, sorted.
func (s *Service) Watched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.watchers))
	for id := range s.watchers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Metrics returns a snapshot of the watcher counters.
func (s *Service) Metrics() watcher.MetricsSnapshot {
	return s.metrics.Snapshot()
}

// MetricsHandler serves the registered Prometheus metrics.
func (s *Service) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

// Start serves the registered HTTP handlers, plus /metrics when metrics are
// enabled, until ctx is cancelled. The service is closed on return.
func (s *Service) Start(ctx context.Context) error {
	if s.Conf.MetricsEnabled {
		s.RegisterHTTPHandler(s.Conf.MetricsPort, "/metrics", s.MetricsHandler())
	}
	servers := s.startHTTPServers()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Error("Failed to stop HTTP server", err, loggingpkg.LogFields{"address": srv.Addr})
		}
	}
	return s.Close()
}

// Close destroys every session and closes the transport the service built.
// Calling Close more than once is a no-op.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watched := s.watchers
	s.watchers = make(map[string]*watchedTarget)
	s.mu.Unlock()

	for id, wt := range watched {
		wt.watcher.Destroy()
		s.forget(id)
	}

	if s.transport == nil {
		return nil
	}
	if err := s.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// RegisterHTTPHandler mounts handler on the server listening on port.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() []*http.Server {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	servers := make([]*http.Server, 0, len(s.httpServers))
	for port, mux := range s.httpServers {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": srv.Addr})
			}
		}()
		servers = append(servers, srv)
	}
	return servers
}
