package io

import (
	"path/filepath"
	"strings"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/tiler"
)

type Kind int

const (
	// A b3dm file wrapping a binary glTF payload
	KindContainer Kind = iota

	// A glb or gltf file
	KindBarePayload
)

func (k Kind) String() string {
	if k == KindContainer {
		return "container"
	}
	return "payload"
}

// KindOf decides the kind of a tile from its extension.
func KindOf(path string) Kind {
	if strings.EqualFold(filepath.Ext(path), tiler.ContainerExtension) {
		return KindContainer
	}
	return KindBarePayload
}

// Contains the minimal data needed to optimize a single tile file
type WorkUnit struct {
	Index int
	Path  string
	Kind  Kind
	Opts  *tiler.TilerOptions
}

func NewWorkUnit(index int, path string, opts *tiler.TilerOptions) *WorkUnit {
	return &WorkUnit{
		Index: index,
		Path:  path,
		Kind:  KindOf(path),
		Opts:  opts,
	}
}

// OutputPath is where the optimized tile is written. Containers stay in place only when
// they are re-wrapped, every other input becomes a sibling glb.
func (w *WorkUnit) OutputPath() string {
	if w.Kind == KindContainer && w.Opts.KeepContainer {
		return w.Path
	}
	ext := filepath.Ext(w.Path)
	if strings.EqualFold(ext, tiler.PayloadExtension) {
		return w.Path
	}
	return strings.TrimSuffix(w.Path, ext) + tiler.PayloadExtension
}

// OutputCollisions finds the files whose output would overwrite another file of the batch or
// the output of another file. The result maps each such file to the one it collides with.
func OutputCollisions(files []string, opts *tiler.TilerOptions) map[string]string {
	inputs := make(map[string]bool, len(files))
	for _, file := range files {
		inputs[filepath.Clean(file)] = true
	}

	writers := make(map[string]string, len(files))
	collisions := make(map[string]string)
	for i, file := range files {
		output := filepath.Clean(NewWorkUnit(i, file, opts).OutputPath())
		if output == filepath.Clean(file) {
			continue
		}
		if inputs[output] {
			collisions[file] = output
			continue
		}
		if other, ok := writers[output]; ok {
			collisions[file] = other
			collisions[other] = file
			continue
		}
		writers[output] = file
	}
	return collisions
}
