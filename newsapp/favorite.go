package newsapp

import (
	"time"

	persist "github.com/goliatone/go-persistedstate"
	"github.com/goliatone/go-persistedstate/store"
)

// FavoriteKey is the storage key of the favorites list.
const FavoriteKey = "news_favorites"

func favoriteDefinition() store.Definition {
	return store.Definition{
		ID: FavoriteStoreID,
		State: func() map[string]any {
			return map[string]any{
				"favorites": []any{},
				"loading":   false,
			}
		},
		Options: map[string]any{
			persist.OptionKey: persist.Config{Key: FavoriteKey, Pick: []string{"favorites"}},
		},
	}
}

// FavoriteStore keeps the articles the user saved, newest first.
type FavoriteStore struct {
	store *store.Store
	now   func() time.Time
}

// Favorites returns the saved articles.
func (f *FavoriteStore) Favorites() ([]Article, error) {
	return field[[]Article](f.store, "favorites")
}

// IsFavorite reports whether the article id is saved.
func (f *FavoriteStore) IsFavorite(id int64) bool {
	items, err := f.Favorites()
	if err != nil {
		return false
	}
	return indexOf(items, id) >= 0
}

// AddFavorite saves article at the front of the list. Saving an article that
// is already a favorite does nothing and reports false.
func (f *FavoriteStore) AddFavorite(article Article) (bool, error) {
	if article.ID == 0 {
		return false, ErrArticleID
	}
	if f.IsFavorite(article.ID) {
		return false, nil
	}
	article.FavoriteTime = timestamp(f.now)
	err := updateArticles(f.store, "favorites", func(items []Article) []Article {
		return append([]Article{article}, without(items, article.ID)...)
	})
	return err == nil, err
}

// RemoveFavorite drops the article id.
func (f *FavoriteStore) RemoveFavorite(id int64) error {
	return updateArticles(f.store, "favorites", func(items []Article) []Article {
		return without(items, id)
	})
}

// ClearFavorites empties the list.
func (f *FavoriteStore) ClearFavorites() {
	f.store.Set("favorites", []any{})
}

// SetLoading flags a pending remote call. The flag is never persisted.
func (f *FavoriteStore) SetLoading(loading bool) {
	f.store.Set("loading", loading)
}

// Loading reports the pending-call flag.
func (f *FavoriteStore) Loading() bool {
	loading, _ := field[bool](f.store, "loading")
	return loading
}

// Store returns the underlying store.
func (f *FavoriteStore) Store() *store.Store {
	return f.store
}
