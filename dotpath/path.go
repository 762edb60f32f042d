package dotpath

// Get follows path from root. The second return value is false when the
// location is undefined: a segment is absent, an index is out of range, the
// walk descends into a scalar, or root itself is nil. A present nil value,
// at the leaf or at any intermediate segment, yields (nil, true).
func Get(root any, path Path) (any, bool) {
	if root == nil {
		return nil, false
	}
	value := root
	for _, seg := range path {
		next, ok := child(value, seg)
		if !ok {
			return nil, false
		}
		if next == nil {
			return nil, true
		}
		value = next
	}
	return value, true
}

// Set returns a tree equal to root except that path now holds value. Only the
// containers along path are copied; untouched branches are shared with root
// and nothing reachable from root is modified. Missing intermediate
// containers are created as []any when the following segment is an index and
// as map[string]any otherwise.
func Set(root any, value any, path Path) any {
	if len(path) == 0 {
		return value
	}
	seg := path[0]
	if len(path) > 1 {
		next, ok := child(root, seg)
		if !ok || !isContainer(next) {
			next = emptyContainerFor(path[1])
		}
		value = Set(next, value, path[1:])
	}
	return assign(root, seg, value)
}

// Unset returns a tree with the value at path removed. Removing a mapping key
// deletes it; removing a sequence element shifts later elements down. When
// path does not exist every traversed container is still shallow-copied.
func Unset(root any, path Path) any {
	if root == nil || len(path) == 0 {
		return root
	}
	seg := path[0]
	if len(path) == 1 {
		return remove(root, seg)
	}
	next, ok := child(root, seg)
	if !ok || next == nil {
		return shallowCopy(root)
	}
	return assign(root, seg, Unset(next, path[1:]))
}

func child(container any, seg Segment) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		v, ok := c[seg.String()]
		return v, ok
	case []any:
		if !seg.IsIndex() || seg.Index() >= len(c) {
			return nil, false
		}
		return c[seg.Index()], true
	default:
		return nil, false
	}
}

func assign(container any, seg Segment, value any) any {
	switch c := container.(type) {
	case []any:
		if seg.IsIndex() {
			size := len(c)
			if seg.Index() >= size {
				size = seg.Index() + 1
			}
			out := make([]any, size)
			copy(out, c)
			out[seg.Index()] = value
			return out
		}
		out := make(map[string]any, len(c)+1)
		for i, v := range c {
			out[Index(i).String()] = v
		}
		out[seg.String()] = value
		return out
	case map[string]any:
		out := make(map[string]any, len(c)+1)
		for k, v := range c {
			out[k] = v
		}
		out[seg.String()] = value
		return out
	default:
		return map[string]any{seg.String(): value}
	}
}

func remove(container any, seg Segment) any {
	switch c := container.(type) {
	case []any:
		if !seg.IsIndex() || seg.Index() >= len(c) {
			return shallowCopy(c)
		}
		out := make([]any, 0, len(c)-1)
		out = append(out, c[:seg.Index()]...)
		return append(out, c[seg.Index()+1:]...)
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, v := range c {
			if k == seg.String() {
				continue
			}
			out[k] = v
		}
		return out
	default:
		return container
	}
}

func shallowCopy(container any) any {
	switch c := container.(type) {
	case []any:
		out := make([]any, len(c))
		copy(out, c)
		return out
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, v := range c {
			out[k] = v
		}
		return out
	default:
		return container
	}
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

func emptyContainerFor(next Segment) any {
	if next.IsIndex() {
		return []any{}
	}
	return map[string]any{}
}
