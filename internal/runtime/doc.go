/*
Package runtime wires console watchers to message transports.

# Architecture Overview

A Service owns one ConsoleMessageWatcher per target and forwards every batch
the watcher produces to a sink. By default the sink is a PublisherSink that
wraps each batch in a CloudEvents envelope and publishes it on the configured
transport (Kafka, RabbitMQ, NATS, AWS, HTTP, a file or a SQLite archive).

# Package Structure

## Core Service (service.go)

The Service struct is the central orchestrator that wires together:
  - Watchers keyed by target actor id
  - The delivery sink and the transport it publishes on
  - Watcher metrics and the /metrics HTTP endpoint

# Sub-packages

  - target/: Target handles, windows, actor pools and listener options
  - grip/: Value grips and the materializer that builds them
  - console/: Raw console messages and the record normalizer
  - source/: Event hub and the listener adapters watchers subscribe through
  - watcher/: The console message watcher, its metrics and delivery hooks
  - sink/: Batch sinks, the publisher sink and its decoder
  - cloudevents/: The envelope published for every batch
  - codec/: JSON, CBOR and protobuf payload encodings
  - config/: Service configuration with validation
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for actor and correlation ids
  - logging/: Logger interface and adapters
  - metadata/: Message metadata utilities
  - transport/: Builds the configured transport from the registry

# Usage Example

	cfg := resourcewatch.DefaultConfig()
	cfg.PubSubSystem = "kafka"
	cfg.KafkaBrokers = []string{"localhost:9092"}

	svc, err := resourcewatch.NewService(cfg, logger, ctx, resourcewatch.ServiceDependencies{})
	if err != nil {
		return err
	}

	hub := svc.NewHub()
	err = svc.WatchTarget(ctx, frame, hub)

	return svc.Start(ctx)
*/
package runtime
