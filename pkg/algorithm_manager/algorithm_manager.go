package algorithm_manager

import (
	"github.com/ecopia-map/cesium_tile_optimizer/internal/batch"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/io"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/scene"
)

// AlgorithmManager builds the pieces a run is made of, once per run.
type AlgorithmManager interface {
	GetSceneLibrary() scene.Library
	GetTransformer() scene.Transformer
	GetConsumer() io.Consumer
	GetRunner() (batch.Runner, error)
}
