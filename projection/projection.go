// Package projection narrows a state tree down to the slices that should be
// persisted or restored.
package projection

import "github.com/goliatone/go-persistedstate/dotpath"

// DeepPick returns a tree holding only the locations named by paths. Paths are
// applied in order; a path that is undefined in state is dropped, while an
// explicit nil is kept.
func DeepPick(state any, paths []string) map[string]any {
	return pick(state, dotpath.ParseAll(paths))
}

// DeepOmit returns state with every location in paths removed. state itself is
// left untouched.
func DeepOmit(state any, paths []string) any {
	return omit(state, dotpath.ParseAll(paths))
}

// Projection is a compiled pick/omit pair. A nil pick list means "not
// configured" and keeps the whole state; an empty, non-nil list picks nothing.
type Projection struct {
	pick    []dotpath.Path
	omit    []dotpath.Path
	hasPick bool
}

// Compile parses pick and omit once so Apply can run on every mutation
// without re-splitting strings.
func Compile(pick, omit []string) Projection {
	return Projection{
		pick:    dotpath.ParseAll(pick),
		omit:    dotpath.ParseAll(omit),
		hasPick: pick != nil,
	}
}

// Apply runs pick (when configured) and then omit.
func (p Projection) Apply(state any) any {
	out := state
	if p.hasPick {
		out = pick(state, p.pick)
	}
	if len(p.omit) > 0 {
		out = omit(out, p.omit)
	}
	return out
}

// IsIdentity reports whether Apply returns its input unchanged.
func (p Projection) IsIdentity() bool {
	return !p.hasPick && len(p.omit) == 0
}

// Pick returns the configured pick paths in dotted form, or nil.
func (p Projection) Pick() []string {
	if !p.hasPick {
		return nil
	}
	return dotted(p.pick)
}

// Omit returns the configured omit paths in dotted form.
func (p Projection) Omit() []string {
	return dotted(p.omit)
}

func pick(state any, paths []dotpath.Path) map[string]any {
	var acc any = map[string]any{}
	for _, path := range paths {
		value, ok := dotpath.Get(state, path)
		if !ok {
			continue
		}
		acc = dotpath.Set(acc, value, path)
	}
	if m, ok := acc.(map[string]any); ok {
		return m
	}
	// only reachable when a path is empty; Set then replaced the root
	return map[string]any{}
}

func omit(state any, paths []dotpath.Path) any {
	out := state
	for _, path := range paths {
		out = dotpath.Unset(out, path)
	}
	return out
}

func dotted(paths []dotpath.Path) []string {
	if paths == nil {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}
