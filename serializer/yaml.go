package serializer

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type yamlCodec struct{}

// YAML returns a serializer backed by gopkg.in/yaml.v3. Mappings with
// non-string keys are converted to map[string]any.
func YAML() Serializer {
	return yamlCodec{}
}

func (yamlCodec) Serialize(value any) (string, error) {
	raw, err := yaml.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("serializer: yaml: encode: %w", err)
	}
	return string(raw), nil
}

func (yamlCodec) Deserialize(payload string) (any, error) {
	var out any
	if err := yaml.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("serializer: yaml: decode: %w", err)
	}
	return normalizeKeys(out), nil
}

func normalizeKeys(v any) any {
	switch c := v.(type) {
	case map[string]any:
		for k, e := range c {
			c[k] = normalizeKeys(e)
		}
		return c
	case map[any]any:
		out := make(map[string]any, len(c))
		for k, e := range c {
			out[fmt.Sprint(k)] = normalizeKeys(e)
		}
		return out
	case []any:
		for i, e := range c {
			c[i] = normalizeKeys(e)
		}
		return c
	default:
		return v
	}
}
