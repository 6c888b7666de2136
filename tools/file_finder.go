package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/tiler"
)

type FileFinder interface {
	GetTileFilesToProcess(opts *tiler.TilerOptions) ([]string, error)
	GetManifestFiles(opts *tiler.TilerOptions) ([]string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// Looks for b3dm, glb and gltf tiles in the input folder, eventually excluding nested folders
// if the Recursive flag is disabled. Paths are returned in lexical order.
func (f *StandardFileFinder) GetTileFilesToProcess(opts *tiler.TilerOptions) ([]string, error) {
	return f.getFilesFromInputFolder(opts, []string{
		tiler.ContainerExtension,
		tiler.PayloadExtension,
		tiler.DescriptorExtension,
	})
}

func (f *StandardFileFinder) GetManifestFiles(opts *tiler.TilerOptions) ([]string, error) {
	return f.getFilesFromInputFolder(opts, opts.ManifestExtensions)
}

func (f *StandardFileFinder) getFilesFromInputFolder(opts *tiler.TilerOptions, extensions []string) ([]string, error) {
	var files = make([]string, 0)

	baseInfo, err := os.Stat(opts.Input)
	if err != nil {
		return nil, err
	}
	err = filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if !opts.Recursive && !os.SameFile(info, baseInfo) {
					return filepath.SkipDir
				}
				return nil
			}
			// leftovers of an interrupted atomic write
			if strings.HasPrefix(info.Name(), ".") {
				return nil
			}
			if hasExtension(info.Name(), extensions) {
				files = append(files, path)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return files, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range extensions {
		if ext == strings.ToLower(candidate) {
			return true
		}
	}
	return false
}
