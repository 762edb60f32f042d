package newsapp

import (
	persist "github.com/goliatone/go-persistedstate"
	"github.com/goliatone/go-persistedstate/internal/hydrate"
	"github.com/goliatone/go-persistedstate/store"
)

// PageSize is the feed page length; a shorter page ends the feed.
const PageSize = 10

// Category is a feed section.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DefaultCategories is used when the category endpoint is unavailable.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: "Headlines"},
		{ID: 2, Name: "Society"},
		{ID: 3, Name: "Domestic"},
		{ID: 4, Name: "World"},
		{ID: 5, Name: "Entertainment"},
		{ID: 6, Name: "Sports"},
		{ID: 7, Name: "Technology"},
	}
}

func newsDefinition() store.Definition {
	return store.Definition{
		ID: NewsStoreID,
		State: func() map[string]any {
			return map[string]any{
				"newsList":          []any{},
				"newsDetail":        map[string]any{},
				"categories":        []any{},
				"currentCategory":   int64(1),
				"loading":           false,
				"refreshing":        false,
				"finished":          false,
				"categoriesLoading": false,
			}
		},
		// The feed is refetched on every start.
		Options: map[string]any{persist.OptionKey: false},
	}
}

// NewsStore holds the feed. It is never persisted.
type NewsStore struct {
	store *store.Store
}

// Categories returns the loaded sections.
func (n *NewsStore) Categories() ([]Category, error) {
	return field[[]Category](n.store, "categories")
}

// SetCategories installs the sections and falls back to the first one when no
// section is selected.
func (n *NewsStore) SetCategories(categories []Category) error {
	encoded, err := hydrate.Encode(map[string]any{"categories": categories})
	if err != nil {
		return err
	}
	n.store.Update(func(draft map[string]any) {
		draft["categories"] = encoded["categories"]
		if current, _ := hydrate.DecodeValue[int64](stateContext(n.store), draft, "currentCategory"); current == 0 && len(categories) > 0 {
			draft["currentCategory"] = categories[0].ID
		}
	})
	return nil
}

// CurrentCategory returns the selected section id.
func (n *NewsStore) CurrentCategory() int64 {
	id, _ := field[int64](n.store, "currentCategory")
	return id
}

// ChangeCategory selects a section and empties the feed.
func (n *NewsStore) ChangeCategory(id int64) {
	n.store.Update(func(draft map[string]any) {
		draft["currentCategory"] = id
		draft["newsList"] = []any{}
		draft["finished"] = false
	})
}

// NextPage returns the page number to fetch next.
func (n *NewsStore) NextPage() int {
	list, _ := n.NewsList()
	return (len(list)+PageSize-1)/PageSize + 1
}

// AppendPage adds a fetched page. refresh replaces the feed; a page shorter
// than PageSize marks the feed finished.
func (n *NewsStore) AppendPage(page []Article, refresh bool) error {
	err := updateArticles(n.store, "newsList", func(items []Article) []Article {
		if refresh {
			return append([]Article(nil), page...)
		}
		return append(items, page...)
	})
	if err != nil {
		return err
	}
	n.store.Patch(map[string]any{
		"finished":   len(page) < PageSize,
		"loading":    false,
		"refreshing": false,
	})
	return nil
}

// NewsList returns the loaded feed.
func (n *NewsStore) NewsList() ([]Article, error) {
	return field[[]Article](n.store, "newsList")
}

// Finished reports whether the last page was reached.
func (n *NewsStore) Finished() bool {
	done, _ := field[bool](n.store, "finished")
	return done
}

// SetDetail shows article in the detail view.
func (n *NewsStore) SetDetail(article Article) error {
	encoded, err := hydrate.Encode(article)
	if err != nil {
		return err
	}
	n.store.Update(func(draft map[string]any) {
		draft["newsDetail"] = encoded
	})
	return nil
}

// Detail returns the article in the detail view.
func (n *NewsStore) Detail() (Article, error) {
	return field[Article](n.store, "newsDetail")
}

// Store returns the underlying store.
func (n *NewsStore) Store() *store.Store {
	return n.store
}
