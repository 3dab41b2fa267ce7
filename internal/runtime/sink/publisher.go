package sink

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ce "github.com/drblury/resourcewatch/internal/runtime/cloudevents"
	"github.com/drblury/resourcewatch/internal/runtime/codec"
	errspkg "github.com/drblury/resourcewatch/internal/runtime/errors"
	idspkg "github.com/drblury/resourcewatch/internal/runtime/ids"
	"github.com/drblury/resourcewatch/internal/runtime/logging"
	metadatapkg "github.com/drblury/resourcewatch/internal/runtime/metadata"
	"github.com/drblury/resourcewatch/internal/runtime/watcher"
)

const tracerName = "resourcewatch-sink"

// RetryConfig tunes publish retries. MaxRetries <= 0 publishes once.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// PublisherConfig configures a PublisherSink.
type PublisherConfig struct {
	Topic string
	// Codec encodes the envelope. Nil selects JSON.
	Codec codec.Codec
	// Metadata is attached to every message. Reserved keys are overwritten.
	Metadata metadatapkg.Metadata
	Retry    RetryConfig
	Logger   logging.ServiceLogger
}

type targetState struct {
	sequence      int
	correlationID string
}

// PublisherSink publishes one watermill message per batch. Each message
// carries a CloudEvents envelope whose data is the batch's resources.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
	codec     codec.Codec
	metadata  metadatapkg.Metadata
	retry     *middleware.Retry
	logger    logging.ServiceLogger

	// mu also serializes publishing so batches keep their order.
	mu      sync.Mutex
	targets map[string]*targetState
}

// NewPublisherSink validates cfg and builds the sink.
func NewPublisherSink(publisher message.Publisher, cfg PublisherConfig) (*PublisherSink, error) {
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if cfg.Topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	c := cfg.Codec
	if c == nil {
		c = codec.JSON
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopServiceLogger()
	}

	s := &PublisherSink{
		publisher: publisher,
		topic:     cfg.Topic,
		codec:     c,
		metadata:  cfg.Metadata.Clone(),
		logger:    logger,
		targets:   make(map[string]*targetState),
	}
	if cfg.Retry.MaxRetries > 0 {
		s.retry = &middleware.Retry{
			MaxRetries:      cfg.Retry.MaxRetries,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      2,
			Logger:          logging.NewWatermillAdapter(logger),
		}
	}
	return s, nil
}

// Topic returns the topic batches are published to.
func (s *PublisherSink) Topic() string { return s.topic }

// Codec returns the payload codec.
func (s *PublisherSink) Codec() codec.Codec { return s.codec }

// Deliver encodes and publishes batch. A history batch restarts the target's
// sequence and correlation id.
func (s *PublisherSink) Deliver(ctx context.Context, batch Batch) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "PublisherSink.Deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("target.id", batch.TargetID),
		attribute.String("batch.phase", string(batch.Phase)),
		attribute.Int("batch.size", len(batch.Resources)),
		attribute.String("messaging.destination", s.topic),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.newMessage(ctx, batch)
	if err != nil {
		return err
	}

	if err := s.publish(msg); err != nil {
		s.logger.Error("Failed to publish resource batch", err, logging.LogFields{
			"target_id": batch.TargetID,
			"phase":     string(batch.Phase),
			"topic":     s.topic,
		})
		return fmt.Errorf("publish batch for %s: %w", batch.TargetID, err)
	}
	return nil
}

func (s *PublisherSink) publish(msg *message.Message) error {
	publish := func(m *message.Message) ([]*message.Message, error) {
		return nil, s.publisher.Publish(s.topic, m)
	}
	if s.retry == nil {
		_, err := publish(msg)
		return err
	}
	_, err := s.retry.Middleware(publish)(msg)
	return err
}

// Envelope builds the CloudEvents envelope for batch without publishing it.
// The target's sequence is not advanced.
func (s *PublisherSink) Envelope(ctx context.Context, batch Batch) ce.Event {
	s.mu.Lock()
	state := s.peekState(batch)
	s.mu.Unlock()
	return s.envelope(ctx, batch, state)
}

func (s *PublisherSink) newMessage(ctx context.Context, batch Batch) (*message.Message, error) {
	state := s.advanceState(batch)
	evt := s.envelope(ctx, batch, state)
	if err := evt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CloudEvent: %w", err)
	}

	payload, err := s.codec.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode batch as %s: %w", s.codec.Name(), err)
	}

	md := s.metadata.WithAll(metadatapkg.New(
		metadatapkg.KeyTargetID, batch.TargetID,
		metadatapkg.KeyTargetKind, batch.TargetKind.String(),
		metadatapkg.KeyResourceType, string(watcher.ConsoleMessage),
		metadatapkg.KeyPhase, string(batch.Phase),
		metadatapkg.KeyBatchSize, strconv.Itoa(len(batch.Resources)),
		metadatapkg.KeyContentType, s.codec.ContentType(),
		metadatapkg.KeyEmittedAt, ce.FormatTime(evt.Time),
		metadatapkg.KeySequence, strconv.Itoa(state.sequence),
		metadatapkg.KeyCorrelationID, state.correlationID,
		"ce_specversion", evt.SpecVersion,
		"ce_type", evt.Type,
		"ce_source", evt.Source,
		"ce_id", evt.ID,
	))
	if traceID := ce.GetTraceID(evt); traceID != "" {
		md = md.With(metadatapkg.KeyTraceID, traceID)
	}
	if spanID := ce.GetParentID(evt); spanID != "" {
		md = md.With(metadatapkg.KeySpanID, spanID)
	}

	msg := message.NewMessage(evt.ID, payload)
	msg.Metadata = metadatapkg.ToWatermill(md)
	msg.SetContext(ctx)
	return msg, nil
}

func (s *PublisherSink) envelope(ctx context.Context, batch Batch, state targetState) ce.Event {
	resources := batch.Resources
	if resources == nil {
		resources = []watcher.Resource{}
	}

	evt := ce.New(ce.EventType(string(watcher.ConsoleMessage)), batch.TargetID, resources).
		WithDataContentType(s.codec.ContentType()).
		WithSubject(string(batch.Phase))
	ce.SetTargetID(&evt, batch.TargetID)
	ce.SetTargetKind(&evt, batch.TargetKind.String())
	ce.SetPhase(&evt, string(batch.Phase))
	ce.SetBatchSize(&evt, len(batch.Resources))
	ce.SetSequence(&evt, state.sequence)
	ce.SetCorrelationID(&evt, state.correlationID)
	ce.SetEmittedAt(&evt, evt.Time)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ce.SetTraceContext(&evt, sc.TraceID().String(), sc.SpanID().String())
	}
	return evt
}

func (s *PublisherSink) advanceState(batch Batch) targetState {
	state, ok := s.targets[batch.TargetID]
	if !ok || batch.Phase == watcher.PhaseHistory {
		state = &targetState{correlationID: idspkg.CreateULID()}
		s.targets[batch.TargetID] = state
	}
	state.sequence++
	return *state
}

func (s *PublisherSink) peekState(batch Batch) targetState {
	state, ok := s.targets[batch.TargetID]
	if !ok || batch.Phase == watcher.PhaseHistory {
		return targetState{sequence: 1}
	}
	return targetState{sequence: state.sequence + 1, correlationID: state.correlationID}
}

// Forget drops the sequence state of a target whose session ended.
func (s *PublisherSink) Forget(targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, targetID)
}

var _ Sink = (*PublisherSink)(nil)
