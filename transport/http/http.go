// Package http provides an HTTP transport. Batches are POSTed to
// <publisher url>/<topic>; a subscriber serves the same path on its own
// listen address.
package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	whttp "github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/resourcewatch/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "http"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(config whttp.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return whttp.NewPublisher(config, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(addr string, config whttp.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return whttp.NewSubscriber(addr, config, logger)
}

func init() {
	transport.Register(TransportName, Build, transport.HTTPCapabilities)
}

// Build creates an HTTP transport. The subscriber side is only created when a
// server address is configured.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	publisherURL := cfg.GetHTTPPublisherURL()
	if publisherURL == "" {
		return transport.Transport{}, errors.New("http: publisher URL is required")
	}
	if _, err := url.Parse(publisherURL); err != nil {
		return transport.Transport{}, err
	}

	publisher, err := PublisherFactory(
		whttp.PublisherConfig{
			MarshalMessageFunc: func(topic string, msg *message.Message) (*http.Request, error) {
				target, err := TopicURL(publisherURL, topic)
				if err != nil {
					return nil, err
				}
				return whttp.DefaultMarshalMessageFunc(target, msg)
			},
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	serverAddr := cfg.GetHTTPServerAddress()
	if serverAddr == "" {
		return transport.Transport{Publisher: publisher}, nil
	}

	subscriber, err := SubscriberFactory(
		serverAddr,
		whttp.SubscriberConfig{
			UnmarshalMessageFunc: whttp.DefaultUnmarshalMessageFunc,
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: &lazySubscriber{Subscriber: subscriber, logger: logger},
	}, nil
}

// TopicURL joins the publisher base URL and a topic path segment.
func TopicURL(base, topic string) (string, error) {
	return url.JoinPath(base, topic)
}

type httpServer interface {
	StartHTTPServer() error
}

// lazySubscriber starts the listener after the first route is registered.
type lazySubscriber struct {
	message.Subscriber
	logger watermill.LoggerAdapter
	once   sync.Once
}

func (s *lazySubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	msgs, err := s.Subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	s.once.Do(func() {
		server, ok := s.Subscriber.(httpServer)
		if !ok {
			return
		}
		go func() {
			if err := server.StartHTTPServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("HTTP subscriber server stopped", err, nil)
			}
		}()
	})
	return msgs, nil
}
