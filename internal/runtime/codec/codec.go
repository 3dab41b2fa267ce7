// Package codec holds the wire encodings used when resource batches leave the
// process. JSON is backed by sonic, CBOR by fxamacker/cbor and the protobuf
// encoding carries the JSON object model inside a google.protobuf.Struct.
package codec

import (
	"fmt"
	"strings"

	errspkg "github.com/drblury/resourcewatch/internal/runtime/errors"
)

// Codec encodes and decodes values for a transport payload.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

const (
	NameJSON     = "json"
	NameCBOR     = "cbor"
	NameProtobuf = "protobuf"
)

var registry = map[string]Codec{
	NameJSON:     JSON,
	NameCBOR:     CBOR,
	NameProtobuf: Protobuf,
}

// ByName resolves a codec by its configured name. An empty name selects JSON.
func ByName(name string) (Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return JSON, nil
	}
	c, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errspkg.ErrUnknownCodec, name)
	}
	return c, nil
}

// ByContentType resolves the codec that produced a payload with the given
// content type. Unknown content types fall back to JSON.
func ByContentType(contentType string) Codec {
	for _, c := range registry {
		if c.ContentType() == contentType {
			return c
		}
	}
	return JSON
}
