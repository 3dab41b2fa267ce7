// Package kafka provides a Kafka transport. Batches for one target are keyed
// by target id so they land on one partition and keep their order.
package kafka

import (
	"context"
	"errors"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/resourcewatch/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// DefaultClientID is used when no client id is configured.
const DefaultClientID = "resourcewatch"

// PartitionKeyMetadata is the message metadata key used as the Kafka partition key.
const PartitionKeyMetadata = "resourcewatch_target_id"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	transport.Register(TransportName, Build, transport.KafkaCapabilities)
}

// Build creates a new Kafka transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()
	if len(brokers) == 0 {
		return transport.Transport{}, errors.New("kafka: brokers are required")
	}
	clientID := cfg.GetKafkaClientID()
	if clientID == "" {
		clientID = DefaultClientID
	}

	marshaler := kafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
		return msg.Metadata.Get(PartitionKeyMetadata), nil
	})

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             marshaler,
			OverwriteSaramaConfig: PublisherSaramaConfig(clientID),
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           marshaler,
			ConsumerGroup:         cfg.GetKafkaConsumerGroup(),
			OverwriteSaramaConfig: SubscriberSaramaConfig(clientID),
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// PublisherSaramaConfig returns the sync producer config with the hash
// partitioner, so equal keys always map to the same partition.
func PublisherSaramaConfig(clientID string) *sarama.Config {
	c := kafka.DefaultSaramaSyncPublisherConfig()
	c.ClientID = clientID
	c.Producer.Partitioner = sarama.NewHashPartitioner
	c.Producer.RequiredAcks = sarama.WaitForAll
	return c
}

// SubscriberSaramaConfig returns the consumer config. Late subscribers start
// from the oldest retained batch.
func SubscriberSaramaConfig(clientID string) *sarama.Config {
	c := kafka.DefaultSaramaSubscriberConfig()
	c.ClientID = clientID
	c.Consumer.Offsets.Initial = sarama.OffsetOldest
	return c
}
