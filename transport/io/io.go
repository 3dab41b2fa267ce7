// Package io provides a file transport. Every published batch is appended to
// a newline-delimited JSON archive that subscribers tail.
package io

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/resourcewatch/internal/runtime/codec"
	"github.com/drblury/resourcewatch/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "io"

// DefaultFilePath is used when no file is configured.
const DefaultFilePath = "resourcewatch.ndjson"

// PollInterval is how long a subscriber waits at end of file before reading again.
var PollInterval = 50 * time.Millisecond

// NackResendSleep is how long a subscriber waits before resending a nacked
// message.
var NackResendSleep = 10 * time.Millisecond

// ErrSubscriberClosed is returned by Subscribe after Close.
var ErrSubscriberClosed = errors.New("io: subscriber closed")

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return NewPublisher(filePath, logger), nil
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return NewSubscriber(filePath, logger), nil
}

func init() {
	transport.Register(TransportName, Build, transport.IOCapabilities)
}

// Build creates a file transport for cfg.GetIOFile.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	filePath := cfg.GetIOFile()
	if filePath == "" {
		filePath = DefaultFilePath
	}

	pub, err := PublisherFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	sub, err := SubscriberFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}

// record is one archived line.
type record struct {
	UUID     string            `json:"uuid"`
	Topic    string            `json:"topic"`
	Metadata map[string]string `json:"metadata"`
	Payload  []byte            `json:"payload"`
}

func (r record) toMessage() *message.Message {
	msg := message.NewMessage(r.UUID, r.Payload)
	for k, v := range r.Metadata {
		msg.Metadata.Set(k, v)
	}
	return msg
}

// Publisher appends messages to the archive file.
type Publisher struct {
	filePath string
	logger   watermill.LoggerAdapter

	mu     sync.Mutex
	closed bool
}

// NewPublisher creates a publisher appending to filePath.
func NewPublisher(filePath string, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{filePath: filePath, logger: logger}
}

// Publish appends one line per message. Lines for a single call are written
// with one write so concurrent tailers never see half a call.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("io: publisher closed")
	}

	var buf bytes.Buffer
	for _, msg := range messages {
		line, err := codec.Marshal(record{
			UUID:     msg.UUID,
			Topic:    topic,
			Metadata: msg.Metadata,
			Payload:  msg.Payload,
		})
		if err != nil {
			return fmt.Errorf("io: encode message %s: %w", msg.UUID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	f, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	p.logger.Trace("Archived messages", watermill.LogFields{"topic": topic, "count": len(messages)})
	return nil
}

// Replay returns every archived message for topic in write order.
func (p *Publisher) Replay(ctx context.Context, topic string) ([]*message.Message, error) {
	return replay(ctx, p.filePath, topic)
}

// Close marks the publisher closed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Subscriber tails the archive file.
type Subscriber struct {
	filePath string
	logger   watermill.LoggerAdapter

	mu        sync.Mutex
	closed    bool
	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSubscriber creates a subscriber tailing filePath.
func NewSubscriber(filePath string, logger watermill.LoggerAdapter) *Subscriber {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Subscriber{filePath: filePath, logger: logger, closing: make(chan struct{})}
}

// Subscribe emits every archived message for topic from the start of the file
// and keeps following new lines until ctx is cancelled or the subscriber is
// closed. Each message must be acked before the next one is sent; a nacked
// message is sent again.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSubscriberClosed
	}

	f, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("io: open %s: %w", s.filePath, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan *message.Message)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer close(out)
		defer f.Close()

		go func() {
			select {
			case <-s.closing:
				cancel()
			case <-ctx.Done():
			}
		}()

		reader := bufio.NewReader(f)
		var partial []byte
		for {
			chunk, err := reader.ReadBytes('\n')
			partial = append(partial, chunk...)
			if errors.Is(err, io.EOF) {
				select {
				case <-ctx.Done():
					return
				case <-time.After(PollInterval):
				}
				continue
			}
			if err != nil {
				s.logger.Error("Failed to read archive", err, watermill.LogFields{"file": s.filePath})
				return
			}

			line := partial
			partial = nil
			if !s.deliver(ctx, out, line, topic) {
				return
			}
		}
	}()

	return out, nil
}

func (s *Subscriber) deliver(ctx context.Context, out chan<- *message.Message, line []byte, topic string) bool {
	var rec record
	if err := codec.Unmarshal(bytes.TrimSpace(line), &rec); err != nil {
		s.logger.Error("Failed to decode archived message", err, nil)
		return true
	}
	if rec.Topic != topic {
		return true
	}

	for {
		msg := rec.toMessage()
		msg.SetContext(ctx)

		select {
		case out <- msg:
		case <-ctx.Done():
			return false
		}

		select {
		case <-msg.Acked():
			return true
		case <-msg.Nacked():
			s.logger.Debug("Archived message nacked, resending", watermill.LogFields{"uuid": msg.UUID})
		case <-ctx.Done():
			return false
		}

		select {
		case <-time.After(NackResendSleep):
		case <-ctx.Done():
			return false
		}
	}
}

// Replay returns every archived message for topic in write order.
func (s *Subscriber) Replay(ctx context.Context, topic string) ([]*message.Message, error) {
	return replay(ctx, s.filePath, topic)
}

// Close ends every subscription and waits for their output channels to be
// closed.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closing) })
	s.wg.Wait()
	return nil
}

func replay(ctx context.Context, filePath, topic string) ([]*message.Message, error) {
	f, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var msgs []*message.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec record
		if err := codec.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("io: decode archive line: %w", err)
		}
		if rec.Topic == topic {
			msgs = append(msgs, rec.toMessage())
		}
	}
	return msgs, scanner.Err()
}

var (
	_ transport.Replayer = (*Publisher)(nil)
	_ transport.Replayer = (*Subscriber)(nil)
)
