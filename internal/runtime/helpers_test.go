package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/resourcewatch/internal/runtime/config"
	"github.com/drblury/resourcewatch/internal/runtime/console"
	loggingpkg "github.com/drblury/resourcewatch/internal/runtime/logging"
	"github.com/drblury/resourcewatch/internal/runtime/sink"
	"github.com/drblury/resourcewatch/internal/runtime/target"
	transportpkg "github.com/drblury/resourcewatch/internal/runtime/transport"
)

type testPublisher struct {
	mu        sync.Mutex
	published []*message.Message
	closed    int
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, messages...)
	return nil
}

func (p *testPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *testPublisher) Messages() []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*message.Message(nil), p.published...)
}

func (p *testPublisher) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func testLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *configpkg.Config {
	cfg := configpkg.DefaultConfig()
	cfg.HistoryCapacity = 50
	return cfg
}

func newMemoryService(t *testing.T) (*Service, *sink.MemorySink) {
	t.Helper()
	mem := sink.NewMemorySink()
	svc, err := NewService(testConfig(), testLogger(), context.Background(), ServiceDependencies{
		Sink:       mem,
		Registerer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mem
}

func frame(t *testing.T, windowID uint64) *target.Handle {
	t.Helper()
	h, err := target.NewHandle(target.HandleConfig{
		Kind:   target.KindFrame,
		Window: &target.Window{ID: windowID},
	})
	require.NoError(t, err)
	return h
}

func logIn(windowID uint64, level string, args ...any) console.RawMessage {
	return console.RawMessage{
		Level:     level,
		Arguments: args,
		InnerID:   console.WindowInnerID(windowID),
		TimeStamp: time.Now(),
	}
}

// consume acks every message as it arrives and forwards it decoded, in
// arrival order.
func consume(t *testing.T, messages <-chan *message.Message) <-chan sink.Decoded {
	t.Helper()
	out := make(chan sink.Decoded, 512)
	go func() {
		defer close(out)
		for msg := range messages {
			msg.Ack()
			decoded, err := sink.Decode(msg)
			if err != nil {
				t.Errorf("decode batch: %v", err)
				continue
			}
			out <- decoded
		}
	}()
	return out
}

func publisherFactory(pub *testPublisher) transportpkg.Factory {
	return transportpkg.FactoryFunc(func(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transportpkg.Transport, error) {
		return transportpkg.Transport{Publisher: pub}, nil
	})
}
