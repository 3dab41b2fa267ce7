package sink

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	ce "github.com/drblury/resourcewatch/internal/runtime/cloudevents"
	"github.com/drblury/resourcewatch/internal/runtime/codec"
	metadatapkg "github.com/drblury/resourcewatch/internal/runtime/metadata"
	"github.com/drblury/resourcewatch/internal/runtime/target"
	"github.com/drblury/resourcewatch/internal/runtime/watcher"
)

// Decoded is a batch recovered from a published message.
type Decoded struct {
	Event         ce.Event
	Batch         Batch
	Sequence      int
	CorrelationID string
	EmittedAt     time.Time
	// Metadata holds the transport headers. It is nil for DecodePayload.
	Metadata metadatapkg.Metadata
}

// Decode parses a message produced by PublisherSink. The codec is chosen
// from the content type header.
func Decode(msg *message.Message) (Decoded, error) {
	if msg == nil {
		return Decoded{}, fmt.Errorf("decode batch: nil message")
	}
	c := codec.ByContentType(msg.Metadata.Get(metadatapkg.KeyContentType))
	decoded, err := DecodePayload(c, msg.Payload)
	if err != nil {
		return Decoded{}, err
	}
	decoded.Metadata = metadatapkg.FromWatermill(msg.Metadata)
	return decoded, nil
}

// DecodePayload parses an envelope encoded with c.
func DecodePayload(c codec.Codec, payload []byte) (Decoded, error) {
	var evt ce.Event
	if err := c.Unmarshal(payload, &evt); err != nil {
		return Decoded{}, fmt.Errorf("decode %s envelope: %w", c.Name(), err)
	}
	if err := evt.Validate(); err != nil {
		return Decoded{}, fmt.Errorf("invalid CloudEvent: %w", err)
	}

	var resources []watcher.Resource
	if evt.Data != nil {
		if err := evt.DecodeData(&resources); err != nil {
			return Decoded{}, fmt.Errorf("decode resources of %s: %w", evt.ID, err)
		}
	}

	targetID := ce.GetTargetID(evt)
	if targetID == "" {
		targetID = evt.Source
	}
	kind, _ := target.ParseKind(ce.GetTargetKind(evt))

	return Decoded{
		Event: evt,
		Batch: Batch{
			TargetID:   targetID,
			TargetKind: kind,
			Phase:      watcher.Phase(ce.GetPhase(evt)),
			Resources:  resources,
		},
		Sequence:      ce.GetSequence(evt),
		CorrelationID: ce.GetCorrelationID(evt),
		EmittedAt:     ce.GetEmittedAt(evt),
	}, nil
}
