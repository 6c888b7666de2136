package pkg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/golang/glog"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/batch"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/manifest"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/tiler"
	"github.com/ecopia-map/cesium_tile_optimizer/pkg/algorithm_manager"
	"github.com/ecopia-map/cesium_tile_optimizer/tools"
)

// LockFileName is created in the root folder for the duration of a run.
const LockFileName = ".tile-optimizer.lock"

var (
	ErrNotADirectory = errors.New("input is not a folder")
	ErrNoTiles       = errors.New("no b3dm, glb or gltf tiles found")
	ErrLocked        = errors.New("another run is processing this folder")
)

// Result is the outcome of a run: the per tile summary plus the manifest rewrite counts.
type Result struct {
	*batch.Summary
	ManifestsRewritten int
	ManifestsFailed    int
}

type IOptimizer interface {
	RunOptimizer(ctx context.Context, opts *tiler.TilerOptions) (*Result, error)
}

type Optimizer struct {
	fileFinder       tools.FileFinder
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewOptimizer(fileFinder tools.FileFinder, algorithmManager algorithm_manager.AlgorithmManager) IOptimizer {
	return &Optimizer{
		fileFinder:       fileFinder,
		algorithmManager: algorithmManager,
	}
}

// Starts the optimization process. Errors are returned only when the run could not start,
// failures of single tiles are reported in the Result.
func (optimizer *Optimizer) RunOptimizer(ctx context.Context, opts *tiler.TilerOptions) (*Result, error) {
	// workers read the options concurrently for the whole run
	opts = opts.Copy()

	isDir, err := tools.IsDirectory(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("input folder: %w", err)
	}
	if !isDir {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, opts.Input)
	}

	release, err := lockRoot(opts.Input)
	if err != nil {
		return nil, err
	}
	defer release()

	tools.LogOutput("Preparing list of files to process...")
	tiles, err := optimizer.fileFinder.GetTileFilesToProcess(opts)
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTiles, opts.Input)
	}
	for i, filePath := range tiles {
		glog.V(1).Infof("tile path %d [%s]", i+1, filePath)
	}

	runner, err := optimizer.algorithmManager.GetRunner()
	if err != nil {
		return nil, err
	}

	scheduler := batch.NewScheduler(runner, opts)
	scheduler.OnProgress(func(completed, active, total int) {
		tools.LogOutput(fmt.Sprintf("Processed %d/%d tiles, %d running", completed, total, active))
	})
	result := &Result{Summary: scheduler.Run(ctx, tiles)}

	if opts.ReportPath != "" {
		if err := WriteReport(opts.ReportPath, result.Summary); err != nil {
			glog.Errorf("cannot write report %s: %v", opts.ReportPath, err)
		}
	}

	if opts.RewriteManifests && !opts.DryRun {
		optimizer.rewriteManifests(opts, result)
	}

	return result, nil
}

func (optimizer *Optimizer) rewriteManifests(opts *tiler.TilerOptions, result *Result) {
	replacements := opts.StaleExtensions()

	manifests, err := optimizer.fileFinder.GetManifestFiles(opts)
	if err != nil {
		glog.Errorf("cannot list manifests: %v", err)
		return
	}
	// tiles that failed are still on disk under their old name
	unconverted := make(map[string]bool, result.Failed)
	for _, failed := range result.FailedResults() {
		unconverted[absPath(failed.Path)] = true
	}
	if len(unconverted) > 0 && len(manifests) > 0 {
		glog.Warningf("%d tiles failed, manifests keep their original references", len(unconverted))
	}

	tools.LogOutput(fmt.Sprintf("Rewriting %d manifests...", len(manifests)))
	for _, path := range manifests {
		manifestPath := path
		keep := func(ref string) bool {
			return unconverted[absPath(manifest.ReferencedPath(manifestPath, ref))]
		}
		changed, err := manifest.RewriteFile(path, replacements, keep)
		if err != nil {
			glog.Warningf("skipping manifest %s: %v", path, err)
			result.ManifestsFailed++
			continue
		}
		if changed {
			glog.Infof("manifest %s rewritten", path)
			result.ManifestsRewritten++
		}
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// lockRoot takes an advisory lock on the root folder so two runs cannot process the same tree.
func lockRoot(root string) (func(), error) {
	lockPath := filepath.Join(root, LockFileName)
	lock := flock.New(lockPath)

	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			glog.Warningf("failed to release lock %s: %v", lockPath, err)
		}
		os.Remove(lockPath)
	}, nil
}
