package optimization

import "github.com/ecopia-map/cesium_tile_optimizer/internal/scene"

// TargetTextureEncoding is what the texture compression step produces.
const TargetTextureEncoding = scene.EncodingKTX2

// Options are the compressions requested for a run.
type Options struct {
	MeshCompression    bool
	TextureCompression bool
}

// Plan is the ordered list of steps to apply. An empty plan means re-encode unchanged.
type Plan []scene.Step

func (p Plan) Empty() bool {
	return len(p) == 0
}

func (p Plan) Strings() []string {
	out := make([]string, len(p))
	for i, step := range p {
		out[i] = string(step)
	}
	return out
}

// BuildPlan returns the steps still needed to satisfy opts.
//
// Flow:
//  1. Mesh compression unless the scene already declares Draco or has no primitives
//  2. Texture compression unless a texture is already KTX2 or there are no textures
//  3. Dedup and flatten ahead of any compression step
//
// A scene produced by applying the returned plan always yields an empty plan for the
// same options.
func BuildPlan(state State, opts Options) Plan {
	var compression Plan

	if opts.MeshCompression && !state.MeshCompressed && state.Primitives > 0 {
		compression = append(compression, scene.StepDraco)
	}

	if opts.TextureCompression && len(state.Textures) > 0 && !state.HasTextureFormat(TargetTextureEncoding) {
		compression = append(compression, scene.StepKTX2)
	}

	if compression.Empty() {
		return nil
	}

	// compression is defined on the deduplicated, flattened scene graph
	plan := Plan{scene.StepDedup, scene.StepFlatten}
	return append(plan, compression...)
}
