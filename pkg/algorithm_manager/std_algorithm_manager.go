package algorithm_manager

import (
	"fmt"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/batch"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/io"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/scene"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/tiler"
)

type StandardAlgorithmManager struct {
	options *tiler.TilerOptions
	library scene.Library
}

func NewAlgorithmManager(opts *tiler.TilerOptions) AlgorithmManager {
	return &StandardAlgorithmManager{
		options: opts,
		library: scene.NewGLBLibrary(),
	}
}

func (am *StandardAlgorithmManager) GetSceneLibrary() scene.Library {
	return am.library
}

func (am *StandardAlgorithmManager) GetTransformer() scene.Transformer {
	return scene.NewExecTransformer(am.library, am.options.TransformCommand, am.options.StepArgs, am.options.TempDir)
}

func (am *StandardAlgorithmManager) GetConsumer() io.Consumer {
	return io.NewStandardConsumer(am.library, am.GetTransformer())
}

func (am *StandardAlgorithmManager) GetRunner() (batch.Runner, error) {
	switch am.options.Isolation {
	case tiler.IsolationProcess:
		return batch.NewProcessRunner()
	case tiler.IsolationGoroutine:
		return batch.NewInProcessRunner(am.GetConsumer()), nil
	}
	return nil, fmt.Errorf("unrecognized isolation %q", am.options.Isolation)
}
