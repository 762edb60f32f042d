package layering

import (
	"fmt"
	"slices"
	"strings"
)

// ScopeLevel identifies the precedence of a configuration snapshot. Higher
// levels override lower levels when layering.
type ScopeLevel int

const (
	// ScopeLevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	ScopeLevelUnknown ScopeLevel = iota
	// ScopeLevelBuiltin represents the weakest layer (library fallbacks).
	ScopeLevelBuiltin
	// ScopeLevelGlobal represents plugin-wide defaults.
	ScopeLevelGlobal
	// ScopeLevelStore represents the strongest layer declared by one store.
	ScopeLevelStore
)

func (l ScopeLevel) String() string {
	switch l {
	case ScopeLevelBuiltin:
		return "builtin"
	case ScopeLevelGlobal:
		return "global"
	case ScopeLevelStore:
		return "store"
	default:
		return "unknown"
	}
}

// ParseScopeLevel converts a string representation into the corresponding
// ScopeLevel. Returns ScopeLevelUnknown for unrecognised values.
func ParseScopeLevel(value string) ScopeLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "builtin":
		return ScopeLevelBuiltin
	case "global":
		return ScopeLevelGlobal
	case "store":
		return ScopeLevelStore
	default:
		return ScopeLevelUnknown
	}
}

// Scope names a snapshot within a layering chain.
type Scope struct {
	Key   string     // logical key, e.g. "persist/0" for the first declaration
	Level ScopeLevel // precedence category
	Store string     // store id when Level == ScopeLevelStore
}

// Identifier returns a stable slug used as the snapshot id of a layer, e.g.
// "store/cart/persist/0".
func (s Scope) Identifier() string {
	switch s.Level {
	case ScopeLevelStore:
		return fmt.Sprintf("store/%s/%s", s.Store, s.Key)
	case ScopeLevelGlobal:
		return fmt.Sprintf("global/%s", s.Key)
	case ScopeLevelBuiltin:
		return fmt.Sprintf("builtin/%s", s.Key)
	default:
		return fmt.Sprintf("unknown/%s", s.Key)
	}
}

// ScopeChain describes the ordered layering sequence from strongest to weakest.
type ScopeChain struct {
	ordered []Scope
}

// NewScopeChain constructs a chain and deduplicates scopes using their
// Identifier. The resulting order always places stronger levels before weaker
// ones while keeping relative ordering for peers.
func NewScopeChain(scopes ...Scope) ScopeChain {
	filtered := make([]Scope, 0, len(scopes))
	seen := map[string]struct{}{}

	for _, scope := range scopes {
		if scope.Level == ScopeLevelUnknown {
			continue
		}
		id := scope.Identifier()
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, scope)
	}

	slices.SortStableFunc(filtered, func(a, b Scope) int {
		if a.Level == b.Level {
			return 0
		}
		if a.Level > b.Level {
			return -1
		}
		return 1
	})

	return ScopeChain{ordered: filtered}
}

// Ordered returns the layering sequence from strongest (index 0) to weakest.
func (c ScopeChain) Ordered() []Scope {
	out := make([]Scope, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of scopes in the chain.
func (c ScopeChain) Len() int {
	return len(c.ordered)
}

// Strongest returns the first scope in the chain (zero scope if empty).
func (c ScopeChain) Strongest() Scope {
	if len(c.ordered) == 0 {
		return Scope{}
	}
	return c.ordered[0]
}

// Weakest returns the final scope in the chain (zero scope if empty).
func (c ScopeChain) Weakest() Scope {
	if len(c.ordered) == 0 {
		return Scope{}
	}
	return c.ordered[len(c.ordered)-1]
}
