package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/prometheus/client_golang/prometheus"

	persist "github.com/goliatone/go-persistedstate"
	"github.com/goliatone/go-persistedstate/newsapp"
	"github.com/goliatone/go-persistedstate/serializer"
	"github.com/goliatone/go-persistedstate/storage"
	"github.com/goliatone/go-persistedstate/store"
)

// Context is shared by every command. The fields below Logger are filled in
// by Open once flags and the config file are known.
type Context struct {
	Ctx    context.Context
	FS     vfs.FileSystem
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Settings   Settings
	Backend    storage.Storage
	Serializer serializer.Serializer
	Plugin     *persist.Plugin
	Queue      *store.QueueScheduler
	App        *newsapp.App
	Metrics    *prometheus.Registry

	closers []io.Closer
}

// Close drains pending persistence tasks and releases the backend.
func (c *Context) Close() error {
	if c.Queue != nil {
		c.Queue.Drain()
	}
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
