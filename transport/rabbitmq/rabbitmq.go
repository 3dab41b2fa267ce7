// Package rabbitmq provides a RabbitMQ/AMQP transport. Publisher and
// subscriber share one reconnecting connection.
package rabbitmq

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/resourcewatch/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "rabbitmq"

// QueueSuffix is appended to the topic to name the durable queue consumers read.
const QueueSuffix = "_resourcewatch"

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return amqp.NewConnection(cfg, logger)
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
	return amqp.NewPublisherWithConnection(cfg, logger, conn)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
	return amqp.NewSubscriberWithConnection(cfg, logger, conn)
}

func init() {
	transport.Register(TransportName, Build, transport.RabbitMQCapabilities)
}

// Build creates a RabbitMQ transport using a durable fanout exchange per topic.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	uri := cfg.GetRabbitMQURL()
	if uri == "" {
		return transport.Transport{}, errors.New("rabbitmq: URL is required")
	}

	amqpConfig := PubSubConfig(uri)

	conn, err := ConnectionFactory(amqpConfig.Connection, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	publisher, err := PublisherFactory(amqpConfig, logger, conn)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(amqpConfig, logger, conn)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// PubSubConfig returns the durable pub/sub config. Messages are persistent
// and every consumer queue is named after its topic.
func PubSubConfig(uri string) amqp.Config {
	c := amqp.NewDurablePubSubConfig(uri, amqp.GenerateQueueNameTopicNameWithSuffix(QueueSuffix))
	c.Connection.Reconnect = amqp.DefaultReconnectConfig()
	c.Publish.ConfirmDelivery = true
	return c
}
