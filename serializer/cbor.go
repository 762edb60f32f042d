package serializer

import (
	"encoding/base64"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a serializer that writes canonical CBOR, base64 encoded so the
// payload stays valid text for string-only backends such as cookies. Integers
// decode as int64 and maps as map[string]any.
func CBOR() Serializer {
	enc, err := cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("serializer: cbor: enc mode: %v", err))
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("serializer: cbor: dec mode: %v", err))
	}
	return &cborCodec{enc: enc, dec: dec}
}

func (c *cborCodec) Serialize(value any) (string, error) {
	raw, err := c.enc.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("serializer: cbor: encode: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (c *cborCodec) Deserialize(payload string) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("serializer: cbor: decode: %w", err)
	}
	var out any
	if err := c.dec.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("serializer: cbor: decode: %w", err)
	}
	return out, nil
}
