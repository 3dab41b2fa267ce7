package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Protobuf wraps the JSON object model of a value in a google.protobuf.Struct.
// Only values that encode to a JSON object are supported.
var Protobuf Codec = protobufCodec{}

type protobufCodec struct{}

func (protobufCodec) Name() string        { return NameProtobuf }
func (protobufCodec) ContentType() string { return "application/protobuf" }

func (protobufCodec) Marshal(v any) ([]byte, error) {
	raw, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("protobuf codec: value is not an object: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("protobuf codec: %w", err)
	}
	return proto.Marshal(st)
}

func (protobufCodec) Unmarshal(data []byte, v any) error {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return fmt.Errorf("protobuf codec: %w", err)
	}
	raw, err := Marshal(st.AsMap())
	if err != nil {
		return err
	}
	return Unmarshal(raw, v)
}
