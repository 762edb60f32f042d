package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ErrPathNotFound is returned when a traced path does not exist in the
// resolved value's type.
var ErrPathNotFound = errors.New("persist: path not found")

// Trace captures provenance information for a given path lookup across the
// scoped layers that produced the effective value.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how a specific scope contributed to a traced path.
type Provenance struct {
	Scope      Scope  `json:"scope"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Path       string `json:"path"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Winner returns the strongest layer that set the path.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// Resolved is the outcome of merging a Stack. Value is the merged snapshot;
// the contributing layers stay available for provenance queries.
type Resolved[T any] struct {
	Value  T
	layers []Layer[T]
}

// Layers returns copies of the contributing layers, strongest first.
func (r *Resolved[T]) Layers() []Layer[T] {
	if r == nil || len(r.layers) == 0 {
		return nil
	}
	out := make([]Layer[T], len(r.layers))
	for i := range r.layers {
		out[i] = cloneLayer(r.layers[i])
	}
	return out
}

// ResolveWithTrace returns the merged value at path together with the value
// each layer holds there. Path segments match struct fields (by name or json
// tag, ignoring case) and map keys. Zero values count as "not set".
func (r *Resolved[T]) ResolveWithTrace(path string) (any, Trace, error) {
	if r == nil {
		return nil, Trace{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	segments := splitTracePath(path)
	value, ok, err := lookupTracePath(reflect.ValueOf(r.Value), segments)
	if err != nil {
		return nil, Trace{}, err
	}

	trace := Trace{Path: path}
	layers := r.layers
	if len(layers) == 0 {
		layers = []Layer[T]{{Scope: NewScope("resolved", 0), Snapshot: r.Value}}
	}
	for _, layer := range layers {
		layerValue, found, err := lookupTracePath(reflect.ValueOf(layer.Snapshot), segments)
		if err != nil {
			return nil, Trace{}, err
		}
		prov := Provenance{
			Scope:      layer.Scope.clone(),
			SnapshotID: layer.SnapshotID,
			Path:       path,
			Found:      found,
		}
		if found {
			prov.Value = layerValue
		}
		trace.Layers = append(trace.Layers, prov)
	}
	if !ok {
		return nil, trace, nil
	}
	return value, trace, nil
}

// Source names the scope that supplied the value at path, or "" when no
// layer set it.
func (r *Resolved[T]) Source(path string) string {
	_, trace, err := r.ResolveWithTrace(path)
	if err != nil {
		return ""
	}
	winner, ok := trace.Winner()
	if !ok {
		return ""
	}
	return winner.Scope.Name
}

// FlattenWithProvenance lists every set leaf of the merged value, sorted by
// path, attributed to the strongest layer that set it.
func (r *Resolved[T]) FlattenWithProvenance() ([]Provenance, error) {
	if r == nil {
		return nil, nil
	}
	var paths []string
	collectTracePaths(reflect.ValueOf(r.Value), "", &paths)
	sort.Strings(paths)

	out := make([]Provenance, 0, len(paths))
	for _, path := range paths {
		_, trace, err := r.ResolveWithTrace(path)
		if err != nil {
			return nil, err
		}
		winner, ok := trace.Winner()
		if !ok {
			continue
		}
		out = append(out, winner)
	}
	return out, nil
}

func splitTracePath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// lookupTracePath follows segments through v. It reports found=false for
// nil or zero values and an error when a segment names no field of a struct.
func lookupTracePath(v reflect.Value, segments []string) (any, bool, error) {
	for _, segment := range segments {
		v = deref(v)
		if !v.IsValid() {
			return nil, false, nil
		}
		switch v.Kind() {
		case reflect.Struct:
			field, ok := structField(v, segment)
			if !ok {
				return nil, false, fmt.Errorf("%w: %s has no field %q", ErrPathNotFound, v.Type(), segment)
			}
			v = field
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return nil, false, nil
			}
			entry := v.MapIndex(reflect.ValueOf(segment).Convert(v.Type().Key()))
			if !entry.IsValid() {
				return nil, false, nil
			}
			v = entry
		default:
			return nil, false, nil
		}
	}
	if !v.IsValid() || v.IsZero() {
		return nil, false, nil
	}
	return leafValue(v), true, nil
}

func structField(v reflect.Value, segment string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if tag := strings.Split(field.Tag.Get("json"), ",")[0]; tag != "" && tag != "-" && strings.EqualFold(tag, segment) {
			return v.Field(i), true
		}
		if strings.EqualFold(field.Name, segment) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// leafValue unwraps pointers to plain values (*bool becomes bool) but keeps
// pointers to structs, such as storage backends, as references.
func leafValue(v reflect.Value) any {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		next := v.Elem()
		if v.Kind() == reflect.Pointer && next.Kind() == reflect.Struct {
			return v.Interface()
		}
		v = next
	}
	return v.Interface()
}

func collectTracePaths(v reflect.Value, prefix string, out *[]string) {
	if !v.IsValid() {
		return
	}
	join := func(segment string) string {
		if prefix == "" {
			return segment
		}
		return prefix + "." + segment
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		if v.Elem().Kind() == reflect.Map {
			collectTracePaths(v.Elem(), prefix, out)
			return
		}
		*out = append(*out, prefix)
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		if v.Elem().Kind() == reflect.Struct {
			collectTracePaths(v.Elem(), prefix, out)
			return
		}
		*out = append(*out, prefix)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() || v.Field(i).IsZero() {
				continue
			}
			collectTracePaths(v.Field(i), join(t.Field(i).Name), out)
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			*out = append(*out, prefix)
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			collectTracePaths(iter.Value(), join(iter.Key().String()), out)
		}
	default:
		if prefix != "" && !v.IsZero() {
			*out = append(*out, prefix)
		}
	}
}
