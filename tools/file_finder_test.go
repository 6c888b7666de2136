package tools

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/tiler"
)

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, file := range files {
		path := filepath.Join(root, file)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func relative(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestGetTileFilesToProcess(t *testing.T) {
	root := makeTree(t,
		"tileset.json",
		"a.b3dm",
		"b.GLB",
		"notes.txt",
		".c.glb.123.tmp",
		"sub/c.gltf",
		"sub/deeper/d.b3dm",
		"sub/tileset.json",
	)
	opts := tiler.DefaultTilerOptions()
	opts.Input = root

	finder := NewStandardFileFinder()

	files, err := finder.GetTileFilesToProcess(opts)
	if err != nil {
		t.Fatalf("GetTileFilesToProcess: %v", err)
	}
	want := []string{"a.b3dm", "b.GLB", "sub/c.gltf", "sub/deeper/d.b3dm"}
	if got := relative(t, root, files); !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}

	opts.Recursive = false
	files, err = finder.GetTileFilesToProcess(opts)
	if err != nil {
		t.Fatalf("GetTileFilesToProcess: %v", err)
	}
	if got := relative(t, root, files); !reflect.DeepEqual(got, []string{"a.b3dm", "b.GLB"}) {
		t.Fatalf("non recursive files = %v", got)
	}
}

func TestGetManifestFiles(t *testing.T) {
	root := makeTree(t, "tileset.json", "a.b3dm", "sub/tileset.json", "sub/meta.JSON")
	opts := tiler.DefaultTilerOptions()
	opts.Input = root

	files, err := NewStandardFileFinder().GetManifestFiles(opts)
	if err != nil {
		t.Fatalf("GetManifestFiles: %v", err)
	}
	want := []string{"sub/meta.JSON", "sub/tileset.json", "tileset.json"}
	if got := relative(t, root, files); !reflect.DeepEqual(got, want) {
		t.Fatalf("manifests = %v, want %v", got, want)
	}
}

func TestGetTileFilesMissingRoot(t *testing.T) {
	opts := tiler.DefaultTilerOptions()
	opts.Input = filepath.Join(t.TempDir(), "missing")
	if _, err := NewStandardFileFinder().GetTileFilesToProcess(opts); err == nil {
		t.Fatalf("expected error for a missing root")
	}
}
