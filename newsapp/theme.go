package newsapp

import (
	"fmt"
	"sort"

	persist "github.com/goliatone/go-persistedstate"
	"github.com/goliatone/go-persistedstate/internal/hydrate"
	"github.com/goliatone/go-persistedstate/store"
)

const (
	// ThemeKey is the storage key of the selected theme.
	ThemeKey     = "theme"
	DefaultTheme = "light"
)

// ThemeConfig is the palette of one theme.
type ThemeConfig struct {
	Name            string `json:"name"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	PrimaryColor    string `json:"primaryColor"`
	SecondaryColor  string `json:"secondaryColor"`
}

// ThemeSummary lists a theme in a picker.
type ThemeSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PrimaryColor string `json:"primaryColor"`
}

var themeOrder = []string{"light", "dark", "blue", "green"}

func builtinThemes() map[string]ThemeConfig {
	return map[string]ThemeConfig{
		"light": {Name: "Light", BackgroundColor: "#ffffff", TextColor: "#333333", PrimaryColor: "#1989fa", SecondaryColor: "#f5f5f5"},
		"dark":  {Name: "Dark", BackgroundColor: "#121212", TextColor: "#ffffff", PrimaryColor: "#4c8bf5", SecondaryColor: "#2d2d2d"},
		"blue":  {Name: "Blue", BackgroundColor: "#e6f7ff", TextColor: "#333333", PrimaryColor: "#1890ff", SecondaryColor: "#bae7ff"},
		"green": {Name: "Green", BackgroundColor: "#f6ffed", TextColor: "#333333", PrimaryColor: "#52c41a", SecondaryColor: "#d9f7be"},
	}
}

func themeDefinition() store.Definition {
	return store.Definition{
		ID: ThemeStoreID,
		State: func() map[string]any {
			themes, err := hydrate.Encode(builtinThemes())
			if err != nil {
				panic(fmt.Sprintf("newsapp: encode themes: %v", err))
			}
			return map[string]any{
				"currentTheme": DefaultTheme,
				"themes":       themes,
			}
		},
		Options: map[string]any{
			persist.OptionKey: persist.Config{Key: ThemeKey, Pick: []string{"currentTheme"}},
		},
	}
}

// ThemeStore tracks the selected palette. Only the selection is persisted;
// the palettes always come from the definition.
type ThemeStore struct {
	store *store.Store
}

// Current returns the selected theme id.
func (t *ThemeStore) Current() string {
	name, _ := field[string](t.store, "currentTheme")
	return name
}

func (t *ThemeStore) themes() (map[string]ThemeConfig, error) {
	return field[map[string]ThemeConfig](t.store, "themes")
}

// SetTheme selects a known theme.
func (t *ThemeStore) SetTheme(name string) error {
	themes, err := t.themes()
	if err != nil {
		return err
	}
	if _, ok := themes[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	t.store.Set("currentTheme", name)
	return nil
}

// ThemeConfig returns the palette of the selected theme.
func (t *ThemeStore) ThemeConfig() (ThemeConfig, error) {
	themes, err := t.themes()
	if err != nil {
		return ThemeConfig{}, err
	}
	current := t.Current()
	cfg, ok := themes[current]
	if !ok {
		return ThemeConfig{}, fmt.Errorf("%w: %q", ErrUnknownTheme, current)
	}
	return cfg, nil
}

// AllThemes lists the builtin themes first, then any others by id.
func (t *ThemeStore) AllThemes() ([]ThemeSummary, error) {
	themes, err := t.themes()
	if err != nil {
		return nil, err
	}
	out := make([]ThemeSummary, 0, len(themes))
	seen := map[string]bool{}
	for _, id := range themeOrder {
		if cfg, ok := themes[id]; ok {
			out = append(out, ThemeSummary{ID: id, Name: cfg.Name, PrimaryColor: cfg.PrimaryColor})
			seen[id] = true
		}
	}
	var rest []string
	for id := range themes {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		cfg := themes[id]
		out = append(out, ThemeSummary{ID: id, Name: cfg.Name, PrimaryColor: cfg.PrimaryColor})
	}
	return out, nil
}

// Store returns the underlying store.
func (t *ThemeStore) Store() *store.Store {
	return t.store
}
