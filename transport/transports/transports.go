// Package transports imports every built-in transport so each registers
// itself with the default registry.
package transports

import (
	_ "github.com/drblury/resourcewatch/transport/aws"
	_ "github.com/drblury/resourcewatch/transport/channel"
	_ "github.com/drblury/resourcewatch/transport/http"
	_ "github.com/drblury/resourcewatch/transport/io"
	_ "github.com/drblury/resourcewatch/transport/kafka"
	_ "github.com/drblury/resourcewatch/transport/nats"
	_ "github.com/drblury/resourcewatch/transport/rabbitmq"
	_ "github.com/drblury/resourcewatch/transport/sqlite"
)
