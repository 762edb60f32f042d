package newsapp

import (
	"github.com/goliatone/go-persistedstate/internal/hydrate"
	"github.com/goliatone/go-persistedstate/store"
)

// Article is a news item as kept in favorites, history and the feed.
type Article struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Author      string `json:"author,omitempty"`
	PublishTime string `json:"publishTime,omitempty"`
	CategoryID  int64  `json:"categoryId,omitempty"`
	Views       int64  `json:"views,omitempty"`
	Content     string `json:"content,omitempty"`

	FavoriteTime string `json:"favoriteTime,omitempty"`
	ViewTime     string `json:"viewTime,omitempty"`
}

// updateArticles rewrites the article list stored under name in a single
// mutation. The list is left untouched when it cannot be decoded.
func updateArticles(s *store.Store, name string, fn func([]Article) []Article) error {
	var err error
	s.Update(func(draft map[string]any) {
		var items []Article
		items, err = hydrate.DecodeValue[[]Article](stateContext(s), draft, name)
		if err != nil {
			return
		}
		next := fn(items)
		if next == nil {
			next = []Article{}
		}
		var encoded map[string]any
		encoded, err = hydrate.Encode(map[string]any{name: next})
		if err != nil {
			return
		}
		draft[name] = encoded[name]
	})
	return err
}

func indexOf(items []Article, id int64) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func without(items []Article, id int64) []Article {
	out := make([]Article, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
