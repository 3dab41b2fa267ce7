// Package resourcewatch streams console messages of debugging targets to
// message transports. A ConsoleMessageWatcher observes one target at a time:
// when a watch starts it hands over the buffered history as a single batch,
// then every live message as a batch of one, normalized into wire-safe
// records whose values are represented by grips.
//
// Service manages one watcher per target and delivers every batch to a Sink.
// By default the sink wraps batches in CloudEvents envelopes and publishes
// them through the transport selected in Config (Kafka, RabbitMQ, AWS SNS/SQS,
// NATS, HTTP, a newline-delimited file, a SQLite archive or Go channels). A
// minimal setup fills Config, creates a Service, builds a Hub that the
// platform feeds with console events, and calls WatchTarget and Start.
//
// # Transports
//
// resourcewatch supports 8 message transports out of the box:
//   - channel: In-memory Go channels for tests and embedding
//   - kafka: Partitioned by target so batches of one target stay ordered
//   - rabbitmq: AMQP durable queues
//   - aws: AWS SNS/SQS with LocalStack support
//   - nats: Core NATS subjects
//   - http: Batches POSTed to a remote collector
//   - io: Newline-delimited JSON archive that subscribers tail
//   - sqlite: Embedded archive that can replay every batch of a topic
//
// # Delivery
//
// Every envelope carries the target id, the phase, a per-target sequence and a
// correlation id shared by the history batch and the live batches that follow
// it, so consumers can restore order on transports that do not preserve it.
// DecodeBatch turns a published message back into a Batch.
//
// # Hooks and metrics
//
// DeliveryHooks observe every batch handed to onAvailable and every history
// message dropped for predating the target. Watcher counters are exported to
// Prometheus and served on /metrics when MetricsEnabled is set.
package resourcewatch
