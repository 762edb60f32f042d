// Package cli implements the newsstate command line, which inspects and edits
// the persisted state of the news client stores.
package cli

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"
)

// CLI is the command line interface of newsstate.
type CLI struct {
	Ctx *kong.Context `kong:"-"`

	DataDir     string `help:"Directory holding persisted state." placeholder:"DIR"`
	Config      string `help:"YAML file with persistence settings." placeholder:"PATH"`
	Storage     string `help:"Storage backend: file, badger, sqlite, memory or a registered name."`
	Serializer  string `help:"Serializer: json, yaml, cbor or proto."`
	Debug       bool   `help:"Log contained persistence failures."`
	KeyTemplate string `help:"Template for storage keys, where %id is the store key."`
	Metrics     bool   `help:"Print persistence counters after the command."`

	Theme     ThemeCmd     `kong:"cmd,help='Show or select the theme.'"`
	Language  LanguageCmd  `kong:"cmd,help='Show or select the language.'"`
	History   HistoryCmd   `kong:"cmd,help='Manage the reading history.'"`
	Favorites FavoritesCmd `kong:"cmd,help='Manage favorite articles.'"`
	Dump      DumpCmd      `kong:"cmd,help='Print store state.'"`
	Reset     ResetCmd     `kong:"cmd,help='Restore a store to its initial state.'"`
}

// DefaultDataDir is $XDG_DATA_HOME/newsstate.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "newsstate")
}

// Setup parses args.
func (c *CLI) Setup(appCtx *Context, args []string, exit func(int)) error {
	parser, err := kong.New(c,
		kong.Name("newsstate"),
		kong.Description("Inspect and edit the persisted state of the news client."),
		kong.UsageOnError(),
		kong.DefaultEnvars("NEWSSTATE"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Writers(appCtx.Stdout, appCtx.Stderr),
		kong.Exit(exit),
	)
	if err != nil {
		return err
	}

	c.Ctx, err = parser.Parse(args)
	return err
}

// Settings combines the config file and the flags.
func (c *CLI) Settings(appCtx *Context) (Settings, error) {
	base := defaultSettings(DefaultDataDir())

	path, required := c.Config, c.Config != ""
	if path == "" {
		dir := c.DataDir
		if dir == "" {
			dir = base.DataDir
		}
		path = filepath.Join(dir, "config.yaml")
	}
	file, err := loadConfigFile(appCtx.FS, path, required)
	if err != nil {
		return Settings{}, err
	}
	return base.merge(file).merge(Settings{
		DataDir:     c.DataDir,
		Storage:     c.Storage,
		Serializer:  c.Serializer,
		Debug:       c.Debug,
		KeyTemplate: c.KeyTemplate,
	}), nil
}

// Execute opens the stores, runs the selected command and flushes pending
// writes.
func (c *CLI) Execute(appCtx *Context) (err error) {
	settings, err := c.Settings(appCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := appCtx.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := appCtx.Open(settings); err != nil {
		return err
	}
	if err := c.Ctx.Run(appCtx); err != nil {
		return err
	}
	if c.Metrics {
		appCtx.Queue.Drain()
		return printMetrics(appCtx)
	}
	return nil
}

func printMetrics(appCtx *Context) error {
	families, err := appCtx.Metrics.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, family := range families {
		for _, m := range family.GetMetric() {
			line := family.GetName()
			for _, label := range m.GetLabel() {
				line += fmt.Sprintf(" %s=%s", label.GetName(), label.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s %g", line, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(appCtx.Stdout, line)
	}
	return nil
}
