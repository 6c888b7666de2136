package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const tileset = `{
	"asset": {"version": "1.0", "gltfUpAxis": "Z"},
	"geometricError": 512.5,
	"root": {
		"content": {"uri": "root.b3dm"},
		"refine": "REPLACE",
		"extras": {"visible": true, "note": null, "source": "survey.b3dm.zip"},
		"children": [
			{"content": {"uri": "0/0.b3dm"}, "geometricError": 16},
			{"content": {"uri": "1/tileset.json"}},
			{"children": [{"content": {"uri": "2/2.b3dm"}}]}
		]
	}
}`

func mustParse(t *testing.T, data string) Node {
	t.Helper()
	node, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return node
}

func collectStrings(node Node, out *[]string) {
	switch v := node.(type) {
	case string:
		*out = append(*out, v)
	case []Node:
		for _, item := range v {
			collectStrings(item, out)
		}
	case *Object:
		for _, m := range v.members {
			collectStrings(m.Value, out)
		}
	}
}

func TestRewriteReplacesExactlyTheStaleReferences(t *testing.T) {
	node := mustParse(t, tileset)

	rewritten := Rewrite(node, ".b3dm", ".glb")

	var before, after []string
	collectStrings(node, &before)
	collectStrings(rewritten, &after)
	if len(before) != len(after) {
		t.Fatalf("string count changed: %d -> %d", len(before), len(after))
	}
	changed := 0
	for i := range before {
		if before[i] != after[i] {
			changed++
			if strings.Contains(after[i], ".b3dm") {
				t.Fatalf("stale reference left in %q", after[i])
			}
		}
	}
	// three tile uris plus the extras source
	if changed != 4 {
		t.Fatalf("changed %d strings, want 4: %v", changed, after)
	}

	root, _ := rewritten.(*Object).Get("root")
	extras, _ := root.(*Object).Get("extras")
	if visible, _ := extras.(*Object).Get("visible"); visible != true {
		t.Fatalf("bool value changed to %v", visible)
	}
	if note, ok := extras.(*Object).Get("note"); !ok || note != nil {
		t.Fatalf("null value changed to %v", note)
	}
	if geometricError, _ := rewritten.(*Object).Get("geometricError"); geometricError.(interface{ String() string }).String() != "512.5" {
		t.Fatalf("number value changed to %v", geometricError)
	}
}

func TestRewriteThreeNestedStrings(t *testing.T) {
	node := mustParse(t, `{"a": ["x.b3dm", {"b": "y.b3dm", "c": 3}], "d": {"e": ["z.b3dm", false]}, "f": "keep.glb"}`)

	got, err := Marshal(Rewrite(node, ".b3dm", ".glb"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want, _ := Marshal(mustParse(t, `{"a": ["x.glb", {"b": "y.glb", "c": 3}], "d": {"e": ["z.glb", false]}, "f": "keep.glb"}`))
	if string(got) != string(want) {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}

func TestRewriteIsIdempotentAndPure(t *testing.T) {
	node := mustParse(t, tileset)
	original, _ := Marshal(node)

	once := Rewrite(node, ".b3dm", ".glb")
	twice, changed := newRewriter(map[string]string{".b3dm": ".glb"}, nil).rewrite(once)
	if changed {
		t.Fatalf("second rewrite reported a change")
	}
	a, _ := Marshal(once)
	b, _ := Marshal(twice)
	if string(a) != string(b) {
		t.Fatalf("rewrite is not idempotent")
	}
	if after, _ := Marshal(node); string(after) != string(original) {
		t.Fatalf("input tree was modified")
	}
}

func TestRewriteIgnoresExtensionCase(t *testing.T) {
	node := mustParse(t, `{"a": "0.B3DM", "b": "1.B3dm", "c": "2.GLTF", "d": "3.b3dm"}`)

	rewritten, changed := RewriteAll(node, map[string]string{".b3dm": ".glb", ".gltf": ".glb"})
	if !changed {
		t.Fatalf("upper case references were not rewritten")
	}
	got, _ := Marshal(rewritten)
	want, _ := Marshal(mustParse(t, `{"a": "0.glb", "b": "1.glb", "c": "2.glb", "d": "3.glb"}`))
	if string(got) != string(want) {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}

func TestRewriteKeepsKeyOrder(t *testing.T) {
	node := mustParse(t, `{"zeta": "a.b3dm", "alpha": 1, "mid": {"y": 1, "b": "c.b3dm", "a": 2}}`)
	obj := Rewrite(node, ".b3dm", ".glb").(*Object)
	if !reflect.DeepEqual(obj.Keys(), []string{"zeta", "alpha", "mid"}) {
		t.Fatalf("keys = %v", obj.Keys())
	}
	mid, _ := obj.Get("mid")
	if !reflect.DeepEqual(mid.(*Object).Keys(), []string{"y", "b", "a"}) {
		t.Fatalf("nested keys = %v", mid.(*Object).Keys())
	}
}

func TestMarshalUsesTabsAndKeepsUrisReadable(t *testing.T) {
	data, err := Marshal(mustParse(t, `{"uri": "a&b<c>.glb", "n": [1, 2]}`))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := "{\n\t\"uri\": \"a&b<c>.glb\",\n\t\"n\": [\n\t\t1,\n\t\t2\n\t]\n}\n"
	if string(data) != want {
		t.Fatalf("got %q", data)
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	for _, data := range []string{"", "{", `{"a": }`, `{"a": 1} {"b": 2}`, "[1, 2"} {
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("expected error for %q", data)
		}
	}
}

func TestRewriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tileset.json")
	content := "{\n  // generated by the tiler\n  \"root\": {\"content\": {\"uri\": \"0.b3dm\"},},\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	replacements := map[string]string{".b3dm": ".glb", ".gltf": ".glb"}
	changed, err := RewriteFile(path, replacements, nil)
	if err != nil || !changed {
		t.Fatalf("RewriteFile = %v, %v", changed, err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"uri": "0.glb"`) || strings.Contains(string(data), "//") {
		t.Fatalf("rewritten manifest:\n%s", data)
	}

	info, _ := os.Stat(path)
	changed, err = RewriteFile(path, replacements, nil)
	if err != nil || changed {
		t.Fatalf("second RewriteFile = %v, %v", changed, err)
	}
	if again, _ := os.Stat(path); !again.ModTime().Equal(info.ModTime()) {
		t.Fatalf("unchanged manifest was written again")
	}
}

func TestRewriteFileBadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tileset.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := RewriteFile(path, map[string]string{".b3dm": ".glb"}, nil); err == nil {
		t.Fatalf("expected parse error")
	}
	if data, _ := os.ReadFile(path); string(data) != "{not json" {
		t.Fatalf("bad manifest was modified")
	}
}

func TestRewriteFileKeepsPinnedReferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tileset.json")
	content := `{"root": {"children": [{"content": {"uri": "0.b3dm"}}, {"content": {"uri": "./1/1.b3dm"}}]}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	failed := filepath.Join(dir, "1", "1.b3dm")
	keep := func(ref string) bool { return ReferencedPath(path, ref) == failed }
	changed, err := RewriteFile(path, map[string]string{".b3dm": ".glb"}, keep)
	if err != nil || !changed {
		t.Fatalf("RewriteFile = %v, %v", changed, err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"uri": "0.glb"`) || !strings.Contains(string(data), `"uri": "./1/1.b3dm"`) {
		t.Fatalf("rewritten manifest:\n%s", data)
	}
}

func TestReferencedPath(t *testing.T) {
	manifest := filepath.Join("/data", "tiles", "tileset.json")
	cases := map[string]string{
		"0.b3dm":             filepath.Join("/data", "tiles", "0.b3dm"),
		"./1/1.b3dm?v=2":     filepath.Join("/data", "tiles", "1", "1.b3dm"),
		"../other/a%20b.glb": filepath.Join("/data", "other", "a b.glb"),
		"/abs/2.b3dm#frag":   filepath.Join("/abs", "2.b3dm"),
	}
	for ref, want := range cases {
		if got := ReferencedPath(manifest, ref); got != want {
			t.Errorf("ReferencedPath(%q) = %s, want %s", ref, got, want)
		}
	}
}
