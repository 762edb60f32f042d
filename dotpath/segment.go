package dotpath

import (
	"strconv"
	"strings"
)

// Segment is one step of a Path: either a mapping key or a sequence index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a mapping-key segment.
func Key(name string) Segment {
	return Segment{key: name}
}

// Index returns a sequence-index segment. Negative values are clamped to 0.
func Index(i int) Segment {
	if i < 0 {
		i = 0
	}
	return Segment{key: strconv.Itoa(i), index: i, isIndex: true}
}

// IsIndex reports whether the segment addresses a sequence element.
func (s Segment) IsIndex() bool {
	return s.isIndex
}

// Index returns the sequence index, or -1 for key segments.
func (s Segment) Index() int {
	if !s.isIndex {
		return -1
	}
	return s.index
}

// String returns the segment as it appears in a dotted path. It is also the
// key used when an index segment addresses a mapping.
func (s Segment) String() string {
	return s.key
}

// Path is an ordered list of segments from the root of a tree.
type Path []Segment

// Parse splits dotted on "." and tags each piece. A piece made only of ASCII
// digits becomes an Index segment; anything else becomes a Key. Segments
// cannot contain a literal dot.
func Parse(dotted string) Path {
	parts := strings.Split(dotted, ".")
	path := make(Path, len(parts))
	for i, part := range parts {
		path[i] = parseSegment(part)
	}
	return path
}

// ParseAll parses every dotted path in order.
func ParseAll(dotted []string) []Path {
	if dotted == nil {
		return nil
	}
	paths := make([]Path, len(dotted))
	for i, d := range dotted {
		paths[i] = Parse(d)
	}
	return paths
}

// String joins the path back into dotted form.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}

func parseSegment(part string) Segment {
	if part == "" || !isDigits(part) {
		return Key(part)
	}
	i, err := strconv.Atoi(part)
	if err != nil {
		// too large for int; keep it addressable as a key
		return Key(part)
	}
	return Segment{key: part, index: i, isIndex: true}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
