// Package optimization decides which compressions a scene still needs. Inspect reads the
// current state of a decoded scene and BuildPlan turns it into an ordered list of steps
// for the external pipeline.
package optimization

import (
	"sort"

	"github.com/golang/glog"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/scene"
)

// State is derived from a scene on every job and never persisted.
type State struct {
	MeshCompressed bool
	TextureFormats map[scene.Encoding]bool
	Textures       []scene.TextureInfo
	Primitives     int
}

func (s State) HasTextureFormat(encoding scene.Encoding) bool {
	return s.TextureFormats[encoding]
}

// FormatNames lists the texture formats in a stable order, for logging.
func (s State) FormatNames() []string {
	names := make([]string, 0, len(s.TextureFormats))
	for encoding := range s.TextureFormats {
		names = append(names, encoding.String())
	}
	sort.Strings(names)
	return names
}

// Inspect reports which optimizations are already applied to doc. It does not modify doc.
func Inspect(doc scene.Document) State {
	state := State{
		TextureFormats: make(map[scene.Encoding]bool),
		Primitives:     doc.PrimitiveCount(),
	}

	for _, extension := range doc.ExtensionsUsed() {
		if extension == scene.ExtensionDracoMeshCompression {
			state.MeshCompressed = true
		}
	}

	for _, texture := range doc.Textures() {
		info := scene.ClassifyTexture(texture.MimeType, texture.Data)
		if info.Encoding == scene.EncodingUnknown || info.Width == 0 {
			glog.V(2).Infof("texture %q: format %s, dimensions unknown", texture.Name, info.Encoding)
		}
		state.Textures = append(state.Textures, info)
		state.TextureFormats[info.Encoding] = true
	}

	return state
}
