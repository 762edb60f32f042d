// Package newsapp defines the stores of the news reader client: the signed-in
// user, favorites, reading history, theme, language and the news feed. Every
// store except the feed declares a persist configuration, so an App built on
// a registry that uses the persist plugin survives restarts.
package newsapp

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-persistedstate/internal/hydrate"
	"github.com/goliatone/go-persistedstate/store"
)

// Store ids.
const (
	UserStoreID     = "user"
	FavoriteStoreID = "favorite"
	HistoryStoreID  = "history"
	ThemeStoreID    = "theme"
	LanguageStoreID = "language"
	NewsStoreID     = "news"
)

var (
	ErrNotLoggedIn      = errors.New("newsapp: user is not logged in")
	ErrUnknownTheme     = errors.New("newsapp: unknown theme")
	ErrLanguageRequired = errors.New("newsapp: language code is required")
	ErrArticleID        = errors.New("newsapp: article id is required")
	ErrUnknownStore     = errors.New("newsapp: unknown store")
)

// TimeFormat formats favoriteTime and viewTime.
const TimeFormat = time.RFC3339

// Option configures an App.
type Option func(*App)

// WithClock overrides the clock used to stamp favorites and history entries.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// App groups the client stores defined on one registry.
type App struct {
	registry *store.Registry
	now      func() time.Time

	User      *UserStore
	Favorites *FavoriteStore
	History   *HistoryStore
	Theme     *ThemeStore
	Language  *LanguageStore
	News      *NewsStore
}

// Definitions returns the store definitions in the order New defines them.
func Definitions() []store.Definition {
	return []store.Definition{
		userDefinition(),
		favoriteDefinition(),
		historyDefinition(),
		themeDefinition(),
		languageDefinition(),
		newsDefinition(),
	}
}

// New defines every client store on registry. Plugins must be installed on
// the registry beforehand so the persisted stores hydrate on definition.
func New(registry *store.Registry, opts ...Option) (*App, error) {
	if registry == nil {
		registry = store.NewRegistry()
	}
	app := &App{registry: registry, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	stores := make(map[string]*store.Store, 6)
	for _, def := range Definitions() {
		s, err := registry.Define(def)
		if err != nil {
			return nil, fmt.Errorf("newsapp: define %s: %w", def.ID, err)
		}
		stores[def.ID] = s
	}

	app.User = &UserStore{store: stores[UserStoreID]}
	app.Favorites = &FavoriteStore{store: stores[FavoriteStoreID], now: app.now}
	app.History = &HistoryStore{store: stores[HistoryStoreID], now: app.now}
	app.Theme = &ThemeStore{store: stores[ThemeStoreID]}
	app.Language = &LanguageStore{store: stores[LanguageStoreID]}
	app.News = &NewsStore{store: stores[NewsStoreID]}
	return app, nil
}

// Registry returns the registry the stores live on.
func (a *App) Registry() *store.Registry {
	return a.registry
}

// Store returns the raw store registered under id.
func (a *App) Store(id string) (*store.Store, error) {
	s, ok := a.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, id)
	}
	return s, nil
}

func stateContext(s *store.Store) hydrate.Context {
	return hydrate.Context{Store: s.ID()}
}

func field[T any](s *store.Store, name string) (T, error) {
	return hydrate.DecodeValue[T](stateContext(s), s.State(), name)
}

func timestamp(now func() time.Time) string {
	return now().UTC().Format(TimeFormat)
}
