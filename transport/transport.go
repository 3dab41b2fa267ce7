// Package transport defines the pluggable message infrastructure that carries
// resource batches away from a watcher. Each backend (kafka, rabbitmq, aws,
// sqlite, ...) lives in its own sub-package and registers itself with the
// default registry from init.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines a publisher and subscriber pair produced by a builder.
// The publisher feeds the sink; the subscriber is what remote consumers use to
// read batches back.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both sides, returning the first error.
func (t Transport) Close() error {
	var firstErr error
	if t.Publisher != nil {
		if err := t.Publisher.Close(); err != nil {
			firstErr = err
		}
	}
	// Some backends share one value for both sides.
	if t.Subscriber != nil && any(t.Subscriber) != any(t.Publisher) {
		if err := t.Subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Builder creates a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the values transports read. It is satisfied by the runtime
// config so backends do not depend on the full config package.
type Config interface {
	// GetPubSubSystem returns the registered transport name.
	GetPubSubSystem() string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string

	// RabbitMQ
	GetRabbitMQURL() string

	// NATS
	GetNATSURL() string
	GetNATSClientName() string

	// HTTP
	GetHTTPServerAddress() string
	GetHTTPPublisherURL() string

	// IO
	GetIOFile() string

	// SQLite
	GetSQLiteFile() string

	// AWS
	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}

// CapabilitiesProvider is implemented by transports that can report their capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}

// Replayer is implemented by archiving transports that can hand back every
// message stored for a topic, oldest first.
type Replayer interface {
	Replay(ctx context.Context, topic string) ([]*message.Message, error)
}
