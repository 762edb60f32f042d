package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type jsonCodec struct {
	useNumber bool
	indent    string
}

// JSONOption configures the JSON serializer.
type JSONOption func(*jsonCodec)

// JSONUseNumber decodes numbers as json.Number instead of float64.
func JSONUseNumber() JSONOption {
	return func(c *jsonCodec) {
		c.useNumber = true
	}
}

// JSONIndent pretty-prints payloads with the given indent.
func JSONIndent(indent string) JSONOption {
	return func(c *jsonCodec) {
		c.indent = indent
	}
}

// JSON returns the default serializer. Numbers decode as float64 unless
// JSONUseNumber is set.
func JSON(opts ...JSONOption) Serializer {
	c := &jsonCodec{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *jsonCodec) Serialize(value any) (string, error) {
	var (
		raw []byte
		err error
	)
	if c.indent != "" {
		raw, err = json.MarshalIndent(value, "", c.indent)
	} else {
		raw, err = json.Marshal(value)
	}
	if err != nil {
		return "", fmt.Errorf("serializer: json: encode: %w", err)
	}
	return string(raw), nil
}

func (c *jsonCodec) Deserialize(payload string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	if c.useNumber {
		dec.UseNumber()
	}
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("serializer: json: decode: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("serializer: json: decode: trailing data after value")
	}
	return out, nil
}
