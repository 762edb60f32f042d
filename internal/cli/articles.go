package cli

import (
	"fmt"
	"io"

	"github.com/goliatone/go-persistedstate/newsapp"
)

// ArticleArgs identifies an article on the command line.
type ArticleArgs struct {
	ID          int64  `arg:"" help:"Article id."`
	Title       string `arg:"" help:"Article title."`
	Description string `help:"Short description."`
	Author      string `help:"Author or source."`
}

func (a ArticleArgs) article() newsapp.Article {
	return newsapp.Article{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Author:      a.Author,
	}
}

// HistoryCmd manages the reading history.
type HistoryCmd struct {
	Add   HistoryAddCmd   `kong:"cmd,help='Record a viewed article.'"`
	Rm    HistoryRmCmd    `kong:"cmd,help='Forget one article.'"`
	Clear HistoryClearCmd `kong:"cmd,help='Forget every article.'"`
	Ls    HistoryLsCmd    `kong:"cmd,default='1',help='List viewed articles, most recent first.'"`
}

// HistoryAddCmd records a view.
type HistoryAddCmd struct {
	ArticleArgs `embed:""`
}

// Run the history add command.
func (c *HistoryAddCmd) Run(appCtx *Context) error {
	return appCtx.App.History.AddHistory(c.article())
}

// HistoryRmCmd drops one entry.
type HistoryRmCmd struct {
	ID int64 `arg:"" help:"Article id."`
}

// Run the history rm command.
func (c *HistoryRmCmd) Run(appCtx *Context) error {
	return appCtx.App.History.RemoveHistory(c.ID)
}

// HistoryClearCmd forgets every entry.
type HistoryClearCmd struct{}

// Run the history clear command.
func (c *HistoryClearCmd) Run(appCtx *Context) error {
	appCtx.App.History.ClearHistory()
	return nil
}

// HistoryLsCmd lists the history.
type HistoryLsCmd struct{}

// Run the history ls command.
func (c *HistoryLsCmd) Run(appCtx *Context) error {
	items, err := appCtx.App.History.History()
	if err != nil {
		return err
	}
	printArticles(appCtx.Stdout, items, func(a newsapp.Article) string { return a.ViewTime })
	return nil
}

// FavoritesCmd manages favorite articles.
type FavoritesCmd struct {
	Add   FavoritesAddCmd   `kong:"cmd,help='Save an article.'"`
	Rm    FavoritesRmCmd    `kong:"cmd,help='Unsave an article.'"`
	Clear FavoritesClearCmd `kong:"cmd,help='Unsave every article.'"`
	Ls    FavoritesLsCmd    `kong:"cmd,default='1',help='List saved articles, newest first.'"`
}

// FavoritesAddCmd saves an article.
type FavoritesAddCmd struct {
	ArticleArgs `embed:""`
}

// Run the favorites add command.
func (c *FavoritesAddCmd) Run(appCtx *Context) error {
	added, err := appCtx.App.Favorites.AddFavorite(c.article())
	if err != nil {
		return err
	}
	if !added {
		fmt.Fprintf(appCtx.Stdout, "article %d is already a favorite\n", c.ID)
	}
	return nil
}

// FavoritesRmCmd unsaves an article.
type FavoritesRmCmd struct {
	ID int64 `arg:"" help:"Article id."`
}

// Run the favorites rm command.
func (c *FavoritesRmCmd) Run(appCtx *Context) error {
	return appCtx.App.Favorites.RemoveFavorite(c.ID)
}

// FavoritesClearCmd unsaves every article.
type FavoritesClearCmd struct{}

// Run the favorites clear command.
func (c *FavoritesClearCmd) Run(appCtx *Context) error {
	appCtx.App.Favorites.ClearFavorites()
	return nil
}

// FavoritesLsCmd lists saved articles.
type FavoritesLsCmd struct{}

// Run the favorites ls command.
func (c *FavoritesLsCmd) Run(appCtx *Context) error {
	items, err := appCtx.App.Favorites.Favorites()
	if err != nil {
		return err
	}
	printArticles(appCtx.Stdout, items, func(a newsapp.Article) string { return a.FavoriteTime })
	return nil
}

func printArticles(w io.Writer, items []newsapp.Article, stamp func(newsapp.Article) string) {
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\n", item.ID, stamp(item), item.Title)
	}
}
