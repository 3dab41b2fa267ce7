// Package channel provides the in-process transport. Batches stay inside the
// Go process, which makes it the default for tests and embedded use.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/resourcewatch/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// OutputBuffer is the per-subscriber buffer so a slow reader does not stall
// live delivery for a handful of batches.
const OutputBuffer = 64

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	transport.Register(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a new Go channel transport. Publisher and subscriber share
// one gochannel instance. Publish waits until every subscriber acked the
// batch, otherwise gochannel hands messages over from separate goroutines
// and subscribers may see them out of order.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(gochannel.Config{
		OutputChannelBuffer:            OutputBuffer,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}
