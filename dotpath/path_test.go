package dotpath

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

func TestParseTagsSegments(t *testing.T) {
	cases := []struct {
		dotted string
		want   []string
		index  []bool
	}{
		{dotted: "total", want: []string{"total"}, index: []bool{false}},
		{dotted: "items.0.id", want: []string{"items", "0", "id"}, index: []bool{false, true, false}},
		{dotted: "a.-1", want: []string{"a", "-1"}, index: []bool{false, false}},
		{dotted: "007", want: []string{"007"}, index: []bool{true}},
		{dotted: "", want: []string{""}, index: []bool{false}},
	}

	for _, tc := range cases {
		t.Run(tc.dotted, func(t *testing.T) {
			path := Parse(tc.dotted)
			if len(path) != len(tc.want) {
				t.Fatalf("expected %d segments, got %d", len(tc.want), len(path))
			}
			for i, seg := range path {
				if seg.String() != tc.want[i] {
					t.Errorf("segment %d: want %q, got %q", i, tc.want[i], seg.String())
				}
				if seg.IsIndex() != tc.index[i] {
					t.Errorf("segment %d: want index=%v, got %v", i, tc.index[i], seg.IsIndex())
				}
			}
			if got := path.String(); got != tc.dotted {
				t.Errorf("round trip: want %q, got %q", tc.dotted, got)
			}
		})
	}
}

func TestGetDistinguishesMissingFromNull(t *testing.T) {
	tree := map[string]any{
		"token":   "abc",
		"profile": nil,
		"items":   []any{map[string]any{"id": 1.0}},
	}

	cases := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{path: "token", want: "abc", wantOK: true},
		{path: "missing", want: nil, wantOK: false},
		{path: "profile", want: nil, wantOK: true},
		{path: "profile.name", want: nil, wantOK: true},
		{path: "token.length", want: nil, wantOK: false},
		{path: "items.0.id", want: 1.0, wantOK: true},
		{path: "items.3", want: nil, wantOK: false},
		{path: "items.first", want: nil, wantOK: false},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, ok := Get(tree, Parse(tc.path))
			if ok != tc.wantOK {
				t.Fatalf("want ok=%v, got %v", tc.wantOK, ok)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetEmptyPathReturnsRoot(t *testing.T) {
	tree := map[string]any{"a": 1}
	got, ok := Get(tree, nil)
	if !ok {
		t.Fatal("expected root to be defined")
	}
	if diff := cmp.Diff(tree, got); diff != "" {
		t.Fatalf("unexpected root (-want +got):\n%s", diff)
	}
	if _, ok := Get(nil, nil); ok {
		t.Fatal("expected nil root to be undefined")
	}
}

func TestSetCreatesContainersFromNextSegment(t *testing.T) {
	got := Set(map[string]any{}, "x", Parse("list.1.name"))
	want := map[string]any{
		"list": []any{nil, map[string]any{"name": "x"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestSetReplacesScalarIntermediate(t *testing.T) {
	got := Set(map[string]any{"a": 5}, true, Parse("a.b"))
	want := map[string]any{"a": map[string]any{"b": true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestSetEmptyPathReplacesRoot(t *testing.T) {
	if got := Set(map[string]any{"a": 1}, "root", nil); got != "root" {
		t.Fatalf("expected value to replace root, got %#v", got)
	}
}

func TestSetSharesUntouchedBranches(t *testing.T) {
	shared := map[string]any{"deep": 1}
	root := map[string]any{"keep": shared, "edit": map[string]any{"x": 1}}

	out := Set(root, 2, Parse("edit.x")).(map[string]any)

	out["keep"].(map[string]any)["probe"] = true
	if _, ok := shared["probe"]; !ok {
		t.Fatal("expected untouched branch to be shared")
	}
	if root["edit"].(map[string]any)["x"] != 1 {
		t.Fatal("edited branch leaked into the input tree")
	}
}

func TestUnsetRemovesKeysAndElements(t *testing.T) {
	root := map[string]any{
		"profile": map[string]any{"name": "x", "secret": "y"},
		"items":   []any{"a", "b", "c"},
	}

	cases := []struct {
		path string
		want any
	}{
		{
			path: "profile.secret",
			want: map[string]any{
				"profile": map[string]any{"name": "x"},
				"items":   []any{"a", "b", "c"},
			},
		},
		{
			path: "items.1",
			want: map[string]any{
				"profile": map[string]any{"name": "x", "secret": "y"},
				"items":   []any{"a", "c"},
			},
		},
		{
			path: "items.9",
			want: root,
		},
		{
			path: "nope.deeper",
			want: root,
		},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got := Unset(root, Parse(tc.path))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected tree (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnsetMissingPathReturnsFreshCopies(t *testing.T) {
	inner := map[string]any{"name": "x"}
	root := map[string]any{"profile": inner}

	out := Unset(root, Parse("profile.absent")).(map[string]any)
	out["added"] = true
	out["profile"].(map[string]any)["added"] = true

	if _, ok := root["added"]; ok {
		t.Fatal("root level was not copied")
	}
	if _, ok := inner["added"]; ok {
		t.Fatal("traversed level was not copied")
	}
}

func TestUnsetEmptyPathReturnsRoot(t *testing.T) {
	root := map[string]any{"a": 1}
	if diff := cmp.Diff(root, Unset(root, Path{})); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestSetThenGetRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		root := drawTree(t, 3, "root")
		path := drawPath(t)
		value := rapid.String().Draw(t, "value")

		got, ok := Get(Set(root, value, path), path)
		if !ok {
			t.Fatalf("expected %q to be defined after Set", path.String())
		}
		if got != value {
			t.Fatalf("want %q, got %#v", value, got)
		}
	})
}

func TestSetAndUnsetNeverMutateInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		root := drawTree(t, 3, "root")
		before := cloneTree(root)
		path := drawPath(t)

		Set(root, "value", path)
		Unset(root, path)

		if diff := cmp.Diff(before, root); diff != "" {
			t.Fatalf("input tree was mutated (-before +after):\n%s", diff)
		}
	})
}

var segmentPool = []string{"a", "b", "c", "0", "1", "2"}

func drawPath(t *rapid.T) Path {
	parts := rapid.SliceOfN(rapid.SampledFrom(segmentPool), 1, 4).Draw(t, "path")
	path := make(Path, len(parts))
	for i, p := range parts {
		path[i] = parseSegment(p)
	}
	return path
}

func drawTree(t *rapid.T, depth int, label string) any {
	kind := rapid.IntRange(0, 3).Draw(t, label+".kind")
	if depth == 0 {
		kind = 0
	}
	switch kind {
	case 1:
		n := rapid.IntRange(0, 3).Draw(t, label+".len")
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			key := rapid.SampledFrom(segmentPool).Draw(t, label+".key")
			out[key] = drawTree(t, depth-1, label+"."+key)
		}
		return out
	case 2:
		n := rapid.IntRange(0, 3).Draw(t, label+".len")
		out := make([]any, n)
		for i := range out {
			out[i] = drawTree(t, depth-1, label+".elem")
		}
		return out
	case 3:
		return nil
	default:
		return rapid.IntRange(-5, 5).Draw(t, label+".scalar")
	}
}

func cloneTree(v any) any {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, e := range c {
			out[k] = cloneTree(e)
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = cloneTree(e)
		}
		return out
	default:
		return v
	}
}
