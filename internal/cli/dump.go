package cli

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-persistedstate/newsapp"
	"github.com/goliatone/go-persistedstate/pkg/state"
	"github.com/goliatone/go-persistedstate/store"
)

// DumpCmd prints store state as YAML.
type DumpCmd struct {
	Store   string `arg:"" optional:"" help:"Store id. Every store when empty."`
	Sources bool   `help:"Attribute each stored field to the persisted snapshot or the defaults."`
}

// fieldSource is one line of a --sources report.
type fieldSource struct {
	Path   string `yaml:"path"`
	Source string `yaml:"source"`
	Value  any    `yaml:"value"`
}

type keyReport struct {
	Key    string        `yaml:"key"`
	ETag   string        `yaml:"etag,omitempty"`
	Fields []fieldSource `yaml:"fields"`
}

// Run the dump command.
func (c *DumpCmd) Run(appCtx *Context) error {
	ids := appCtx.App.Registry().IDs()
	if c.Store != "" {
		if _, err := appCtx.App.Store(c.Store); err != nil {
			return err
		}
		ids = []string{c.Store}
	}

	doc := make(map[string]any, len(ids))
	for _, id := range ids {
		s, err := appCtx.App.Store(id)
		if err != nil {
			return err
		}
		if !c.Sources {
			doc[id] = s.State()
			continue
		}
		reports, err := sources(appCtx, s)
		if err != nil {
			return err
		}
		doc[id] = reports
	}

	enc := yaml.NewEncoder(appCtx.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// sources layers what each persistence session stored over the store
// defaults. Stores without persistence report no keys.
func sources(appCtx *Context, s *store.Store) ([]keyReport, error) {
	defaults := initialState(s.ID())
	reports := []keyReport{}
	for _, eff := range appCtx.Plugin.Effective(s.ID()) {
		resolver := state.Resolver[map[string]any]{
			Store: state.NewCodecStore[map[string]any](eff.Storage, eff.Serializer),
		}
		resolved, meta, err := resolver.Resolve(appCtx.Ctx, state.Ref{Store: s.ID(), Key: eff.Key}, defaults)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", eff.Key, err)
		}
		provenance, err := resolved.FlattenWithProvenance()
		if err != nil {
			return nil, err
		}
		report := keyReport{Key: eff.Key, ETag: meta.ETag}
		for _, p := range provenance {
			report.Fields = append(report.Fields, fieldSource{Path: p.Path, Source: p.Scope.Name, Value: p.Value})
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func initialState(id string) map[string]any {
	for _, def := range newsapp.Definitions() {
		if def.ID == id && def.State != nil {
			return def.State()
		}
	}
	return map[string]any{}
}

// ResetCmd restores a store to its initial state and writes it through.
type ResetCmd struct {
	Store string `arg:"" help:"Store id."`
}

// Run the reset command.
func (c *ResetCmd) Run(appCtx *Context) error {
	s, err := appCtx.App.Store(c.Store)
	if err != nil {
		return err
	}
	s.Reset()
	s.Persist()
	return nil
}
