package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR encodes with Core Deterministic Encoding so identical batches produce
// identical bytes.
var CBOR Codec = newCBORCodec()

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	enc, err := encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	// Records only use string keys; decoding into any must yield
	// map[string]any rather than map[any]any.
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string        { return NameCBOR }
func (cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c cborCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
