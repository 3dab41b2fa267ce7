package transport

// Capabilities describes what a backend guarantees for published batches.
// The service consults it to warn when a configuration cannot honour the
// per-target ordering that batch sequence numbers assume.
type Capabilities struct {
	// Name is the registered transport name.
	Name string

	// Ordered means batches published to one topic arrive in publish order.
	Ordered bool

	// Durable means published batches survive a restart of the process.
	Durable bool

	// Replayable means a subscriber that joins late still sees earlier batches.
	Replayable bool

	// Remote means the consumer can live in another process or host.
	Remote bool

	// SupportsAck indicates explicit acknowledgement by the subscriber.
	SupportsAck bool

	// MaxMessageSize is the largest payload in bytes (0 = unlimited/unknown).
	MaxMessageSize int64
}

// Fits reports whether a payload of size bytes can be published.
func (c Capabilities) Fits(size int) bool {
	return c.MaxMessageSize <= 0 || int64(size) <= c.MaxMessageSize
}

// PreservesSequence reports whether consumers can rely on batch sequence
// numbers arriving in order.
func (c Capabilities) PreservesSequence() bool {
	return c.Ordered
}

// Predefined capability sets for the built-in transports.
var (
	ChannelCapabilities = Capabilities{
		Name:        "channel",
		Ordered:     true,
		SupportsAck: true,
	}

	KafkaCapabilities = Capabilities{
		Name:           "kafka",
		Ordered:        true,
		Durable:        true,
		Replayable:     true,
		Remote:         true,
		SupportsAck:    true,
		MaxMessageSize: 1048576,
	}

	RabbitMQCapabilities = Capabilities{
		Name:        "rabbitmq",
		Ordered:     true,
		Durable:     true,
		Remote:      true,
		SupportsAck: true,
	}

	NATSCapabilities = Capabilities{
		Name:           "nats",
		Remote:         true,
		MaxMessageSize: 1048576,
	}

	AWSCapabilities = Capabilities{
		Name:           "aws",
		Durable:        true,
		Remote:         true,
		SupportsAck:    true,
		MaxMessageSize: 262144,
	}

	SQLiteCapabilities = Capabilities{
		Name:        "sqlite",
		Ordered:     true,
		Durable:     true,
		Replayable:  true,
		SupportsAck: true,
	}

	HTTPCapabilities = Capabilities{
		Name:   "http",
		Remote: true,
	}

	IOCapabilities = Capabilities{
		Name:       "io",
		Ordered:    true,
		Durable:    true,
		Replayable: true,
	}
)

// GetCapabilities returns the capabilities registered for a transport name.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.Capabilities(name)
}
