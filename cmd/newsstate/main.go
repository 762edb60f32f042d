package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-isatty"

	"github.com/goliatone/go-persistedstate/internal/cli"
)

func main() {
	level := new(slog.LevelVar)
	logger := cli.NewLogger(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()), level)
	slog.SetDefault(logger)

	// NEWSSTATE_* variables may come from a local .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("newsstate: load .env", "error", err)
	}

	appCtx := &cli.Context{
		Ctx:    context.Background(),
		FS:     osfs.New(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}

	var c cli.CLI
	if err := c.Setup(appCtx, os.Args[1:], os.Exit); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	if c.Debug {
		level.Set(slog.LevelDebug)
	}
	if err := c.Execute(appCtx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
