package serializer

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type protoCodec struct{}

// Proto returns a serializer that writes the tree as a google.protobuf.Value
// in binary wire format, base64 encoded. Numbers decode as float64, matching
// the JSON serializer.
func Proto() Serializer {
	return protoCodec{}
}

func (protoCodec) Serialize(value any) (string, error) {
	msg, err := structpb.NewValue(normalizeForProto(value))
	if err != nil {
		return "", fmt.Errorf("serializer: proto: encode: %w", err)
	}
	raw, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("serializer: proto: encode: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (protoCodec) Deserialize(payload string) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("serializer: proto: decode: %w", err)
	}
	msg := &structpb.Value{}
	if err := proto.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("serializer: proto: decode: %w", err)
	}
	return msg.AsInterface(), nil
}

// structpb only understands []any and map[string]any containers; typed
// slices and maps coming from Go callers are widened first.
func normalizeForProto(v any) any {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, e := range c {
			out[k] = normalizeForProto(e)
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = normalizeForProto(e)
		}
		return out
	case []string:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = e
		}
		return out
	case []map[string]any:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = normalizeForProto(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(c))
		for k, e := range c {
			out[k] = e
		}
		return out
	default:
		return v
	}
}
