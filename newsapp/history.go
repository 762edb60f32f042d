package newsapp

import (
	"time"

	persist "github.com/goliatone/go-persistedstate"
	"github.com/goliatone/go-persistedstate/store"
)

const (
	// HistoryKey is the storage key of the reading history.
	HistoryKey = "news_history"
	// HistoryLimit caps the number of remembered articles.
	HistoryLimit = 50
)

func historyDefinition() store.Definition {
	return store.Definition{
		ID: HistoryStoreID,
		State: func() map[string]any {
			return map[string]any{"history": []any{}}
		},
		Options: map[string]any{
			persist.OptionKey: persist.Config{Key: HistoryKey, Pick: []string{"history"}},
		},
	}
}

// HistoryStore keeps recently read articles, most recent first.
type HistoryStore struct {
	store *store.Store
	now   func() time.Time
}

// History returns the remembered articles.
func (h *HistoryStore) History() ([]Article, error) {
	return field[[]Article](h.store, "history")
}

// AddHistory records a view of article. A previous entry for the same id is
// moved to the front with a fresh viewTime; the oldest entry falls off past
// HistoryLimit.
func (h *HistoryStore) AddHistory(article Article) error {
	if article.ID == 0 {
		return ErrArticleID
	}
	article.ViewTime = timestamp(h.now)
	return updateArticles(h.store, "history", func(items []Article) []Article {
		next := append([]Article{article}, without(items, article.ID)...)
		if len(next) > HistoryLimit {
			next = next[:HistoryLimit]
		}
		return next
	})
}

// RemoveHistory drops the entry for id.
func (h *HistoryStore) RemoveHistory(id int64) error {
	return updateArticles(h.store, "history", func(items []Article) []Article {
		return without(items, id)
	})
}

// ClearHistory forgets every entry.
func (h *HistoryStore) ClearHistory() {
	h.store.Set("history", []any{})
}

// Store returns the underlying store.
func (h *HistoryStore) Store() *store.Store {
	return h.store
}
