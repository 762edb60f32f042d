package newsapp

import (
	"strings"

	persist "github.com/goliatone/go-persistedstate"
	"github.com/goliatone/go-persistedstate/store"
)

const (
	LanguageKey     = "language"
	DefaultLanguage = "zh-CN"
)

func languageDefinition() store.Definition {
	return store.Definition{
		ID: LanguageStoreID,
		State: func() map[string]any {
			return map[string]any{"currentLanguage": DefaultLanguage}
		},
		Options: map[string]any{
			persist.OptionKey: persist.Config{Key: LanguageKey, Pick: []string{"currentLanguage"}},
		},
	}
}

// LanguageStore tracks the UI language.
type LanguageStore struct {
	store *store.Store
}

// Current returns the selected language code.
func (l *LanguageStore) Current() string {
	code, _ := field[string](l.store, "currentLanguage")
	return code
}

// SetLanguage selects code. Catalog lookup is left to the caller.
func (l *LanguageStore) SetLanguage(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrLanguageRequired
	}
	l.store.Set("currentLanguage", code)
	return nil
}

// Store returns the underlying store.
func (l *LanguageStore) Store() *store.Store {
	return l.store
}
