// Package nats provides a NATS Core transport. JetStream is disabled: watch
// batches are fire-and-forget and consumers that need replay should use the
// kafka or sqlite transports.
package nats

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/drblury/resourcewatch/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// DefaultClientName identifies the connection in NATS monitoring when no
// client name is configured.
const DefaultClientName = "resourcewatch"

// ReconnectWait is the delay between reconnect attempts.
var ReconnectWait = 2 * time.Second

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

func init() {
	transport.Register(TransportName, Build, transport.NATSCapabilities)
}

// Build creates a NATS Core transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetNATSURL()
	if url == "" {
		return transport.Transport{}, errors.New("nats: URL is required")
	}

	options := ConnectOptions(cfg.GetNATSClientName(), logger)
	marshaler := &nats.NATSMarshaler{}

	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:         url,
			NatsOptions: options,
			Marshaler:   marshaler,
			JetStream:   nats.JetStreamConfig{Disabled: true},
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(
		nats.SubscriberConfig{
			URL:         url,
			NatsOptions: options,
			Unmarshaler: marshaler,
			JetStream:   nats.JetStreamConfig{Disabled: true},
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

// ConnectOptions returns the connection options shared by publisher and
// subscriber. Reconnects retry forever and are logged.
func ConnectOptions(clientName string, logger watermill.LoggerAdapter) []nc.Option {
	if clientName == "" {
		clientName = DefaultClientName
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return []nc.Option{
		nc.Name(clientName),
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(ReconnectWait),
		nc.DisconnectErrHandler(func(_ *nc.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, watermill.LogFields{"client": clientName})
			}
		}),
		nc.ReconnectHandler(func(conn *nc.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"client": clientName,
				"url":    conn.ConnectedUrlRedacted(),
			})
		}),
	}
}
