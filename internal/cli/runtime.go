package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	persist "github.com/goliatone/go-persistedstate"
	"github.com/goliatone/go-persistedstate/newsapp"
	"github.com/goliatone/go-persistedstate/pkg/activity"
	"github.com/goliatone/go-persistedstate/pkg/activity/promsink"
	"github.com/goliatone/go-persistedstate/serializer"
	"github.com/goliatone/go-persistedstate/storage"
	"github.com/goliatone/go-persistedstate/storage/badgerstore"
	"github.com/goliatone/go-persistedstate/storage/filestore"
	"github.com/goliatone/go-persistedstate/storage/instrumented"
	"github.com/goliatone/go-persistedstate/storage/sqlitestore"
	"github.com/goliatone/go-persistedstate/store"
)

// Open resolves settings, opens the backend and defines the news stores on a
// fresh registry. Stores hydrate as part of Open.
func (c *Context) Open(settings Settings) error {
	c.Settings = settings

	backend, err := c.openBackend(settings)
	if err != nil {
		return err
	}
	wrapped, err := instrumented.Wrap(backend,
		instrumented.WithName(settings.Storage),
		instrumented.WithContext(c.Ctx),
	)
	if err != nil {
		return fmt.Errorf("instrument storage: %w", err)
	}
	c.Backend = wrapped

	codec, err := serializer.Lookup(settings.Serializer)
	if err != nil {
		return err
	}
	c.Serializer = codec

	c.Metrics = prometheus.NewRegistry()
	opts := []persist.Option{
		persist.WithStorage(c.Backend),
		persist.WithSerializer(codec),
		persist.WithDebug(settings.Debug),
		persist.WithLogger(c.Logger),
		persist.WithActivityHooks(activity.Hooks{promsink.New(c.Metrics)}),
	}
	if settings.KeyTemplate != "" {
		opts = append(opts, persist.WithKeyTemplate(settings.KeyTemplate))
	}
	c.Plugin = persist.New(opts...)

	c.Queue = store.NewQueueScheduler()
	registry := store.NewRegistry(store.WithScheduler(c.Queue), store.WithLogger(c.Logger))
	registry.Use(c.Plugin)

	c.App, err = newsapp.New(registry)
	return err
}

func (c *Context) openBackend(settings Settings) (storage.Storage, error) {
	switch settings.Storage {
	case BackendFile:
		return filestore.Open(filepath.Join(settings.DataDir, "state"),
			filestore.WithFS(c.FS),
			filestore.WithLogger(c.Logger),
		)
	case BackendBadger:
		s, err := badgerstore.Open(filepath.Join(settings.DataDir, "badger"))
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, s)
		return s, nil
	case BackendSQLite:
		if err := c.FS.MkdirAll(settings.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create %q: %w", settings.DataDir, err)
		}
		s, err := sqlitestore.Open(filepath.Join(settings.DataDir, "state.db"), sqlitestore.WithContext(c.Ctx))
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, s)
		return s, nil
	case BackendMemory:
		return storage.NewMemory(), nil
	default:
		return storage.Open(settings.Storage)
	}
}

var (
	_ io.Closer = (*badgerstore.Store)(nil)
	_ io.Closer = (*sqlitestore.Store)(nil)
)
