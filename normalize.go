package persist

import (
	"fmt"

	"github.com/goliatone/go-persistedstate/internal/hydrate"
)

// OptionKey is the store definition option carrying the persist declaration.
const OptionKey = "persist"

// Normalize turns a persist declaration into the configs it enables. A nil
// declaration stands for "not declared" and resolves to auto. Accepted forms
// are bool, Config, *Config, []Config, []*Config, a map (as decoded from YAML
// or JSON) or a slice of maps. An empty slice enables nothing.
func Normalize(declaration any, auto bool) ([]Config, error) {
	switch value := declaration.(type) {
	case nil:
		if auto {
			return []Config{{}}, nil
		}
		return nil, nil
	case bool:
		if value {
			return []Config{{}}, nil
		}
		return nil, nil
	case Config:
		return []Config{value}, nil
	case *Config:
		if value == nil {
			return Normalize(nil, auto)
		}
		return []Config{*value}, nil
	case []Config:
		return append([]Config(nil), value...), nil
	case []*Config:
		out := make([]Config, 0, len(value))
		for i, cfg := range value {
			if cfg == nil {
				return nil, fmt.Errorf("%w: persist[%d] is nil", ErrMalformed, i)
			}
			out = append(out, *cfg)
		}
		return out, nil
	case map[string]any:
		cfg, err := decodeConfig(value, 0)
		if err != nil {
			return nil, err
		}
		return []Config{cfg}, nil
	case []any:
		out := make([]Config, 0, len(value))
		for i, item := range value {
			doc, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: persist[%d] has type %T", ErrMalformed, i, item)
			}
			cfg, err := decodeConfig(doc, i)
			if err != nil {
				return nil, err
			}
			out = append(out, cfg)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: persist declaration has type %T", ErrMalformed, declaration)
	}
}

// configDocument is the serializable subset of Config.
type configDocument struct {
	Key        string   `json:"key"`
	Storage    string   `json:"storage"`
	Serializer string   `json:"serializer"`
	Pick       []string `json:"pick"`
	Omit       []string `json:"omit"`
	Debug      *bool    `json:"debug"`
	When       string   `json:"when"`
}

var configDecoder = hydrate.NewDecoder[configDocument](
	hydrate.WithDisallowUnknownFields[configDocument](),
)

func decodeConfig(doc map[string]any, index int) (Config, error) {
	decoded, err := configDecoder.Decode(hydrate.Context{Key: fmt.Sprintf("persist[%d]", index)}, doc)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return Config{
		Key:            decoded.Key,
		StorageName:    decoded.Storage,
		SerializerName: decoded.Serializer,
		Pick:           decoded.Pick,
		Omit:           decoded.Omit,
		Debug:          decoded.Debug,
		When:           decoded.When,
	}, nil
}
