package tiler

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/scene"
)

type Isolation string

const (
	// Every job runs in its own child process, a crash in a native codec only fails that job.
	IsolationProcess Isolation = "process"

	// Jobs run as goroutines of the coordinating process, panics are recovered per job.
	IsolationGoroutine Isolation = "goroutine"
)

func ParseIsolation(value string) Isolation {
	normalizedValue := strings.Trim(strings.ToLower(value), " ")
	if normalizedValue == string(IsolationProcess) {
		return IsolationProcess
	} else if normalizedValue == string(IsolationGoroutine) {
		return IsolationGoroutine
	}
	return ""
}

const (
	ContainerExtension  = ".b3dm"
	PayloadExtension    = ".glb"
	DescriptorExtension = ".gltf"
)

// Contains the options needed to optimize a tileset tree. Built once per run and handed to
// every job.
type TilerOptions struct {
	Input              string        // Root folder of the tileset tree
	Recursive          bool          // Recursive lookup of tiles in subfolders
	MeshCompression    bool          // Apply Draco mesh compression when missing
	TextureCompression bool          // Apply KTX2 texture compression when missing
	KeepContainer      bool          // Re-wrap optimized payloads in b3dm instead of unwrapping to glb
	DryRun             bool          // Plan every file without writing or deleting anything
	Concurrency        int           // Max jobs running at once, 0 means NumCPU-1
	Isolation          Isolation     // How jobs are isolated from each other
	JobTimeout         time.Duration // 0 disables the per job timeout
	ReportPath         string        // Optional JSON lines report of every job result

	TransformCommand string                  // External scene transform executable
	StepArgs         map[scene.Step][]string // Subcommand and arguments for every step
	TempDir          string                  // Scratch folder for the transform command

	RewriteManifests   bool     // Rewrite manifest references to unwrapped tiles
	ManifestExtensions []string // Extensions of the manifest files to rewrite

	ConfigPath string // Configuration file the options were loaded from, forwarded to workers
}

func DefaultTilerOptions() *TilerOptions {
	return &TilerOptions{
		Recursive:          true,
		MeshCompression:    true,
		TextureCompression: true,
		Isolation:          IsolationProcess,
		TransformCommand:   "gltf-transform",
		StepArgs:           scene.DefaultStepArgs(),
		RewriteManifests:   true,
		ManifestExtensions: []string{".json"},
	}
}

// DefaultConcurrency leaves one execution unit to the coordinating process.
func DefaultConcurrency() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}
	return n
}

func (opt *TilerOptions) EffectiveConcurrency() int {
	if opt.Concurrency > 0 {
		return opt.Concurrency
	}
	return DefaultConcurrency()
}

// StaleExtensions maps the input extensions whose output lands at a different path to the
// extension that replaces them.
func (opt *TilerOptions) StaleExtensions() map[string]string {
	stale := map[string]string{DescriptorExtension: PayloadExtension}
	if !opt.KeepContainer {
		stale[ContainerExtension] = PayloadExtension
	}
	return stale
}

func (opt *TilerOptions) Validate() error {
	var problems []string

	if opt.Input == "" {
		problems = append(problems, "input folder is required")
	}
	if opt.Concurrency < 0 {
		problems = append(problems, "concurrency cannot be negative")
	}
	if ParseIsolation(string(opt.Isolation)) == "" {
		problems = append(problems, fmt.Sprintf("isolation should be either %s or %s", IsolationProcess, IsolationGoroutine))
	}
	if opt.JobTimeout < 0 {
		problems = append(problems, "job timeout cannot be negative")
	}
	if (opt.MeshCompression || opt.TextureCompression) && strings.TrimSpace(opt.TransformCommand) == "" {
		problems = append(problems, "transform command is required when compression is enabled")
	}
	for _, step := range []scene.Step{scene.StepDedup, scene.StepFlatten, scene.StepDraco, scene.StepKTX2} {
		if len(opt.StepArgs[step]) == 0 {
			problems = append(problems, fmt.Sprintf("no arguments configured for step %s", step))
		}
	}
	for _, ext := range opt.ManifestExtensions {
		if !strings.HasPrefix(ext, ".") {
			problems = append(problems, fmt.Sprintf("manifest extension %q should start with a dot", ext))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (opt *TilerOptions) Copy() *TilerOptions {
	newOpt := *opt

	newOpt.StepArgs = make(map[scene.Step][]string, len(opt.StepArgs))
	for step, args := range opt.StepArgs {
		newOpt.StepArgs[step] = append([]string(nil), args...)
	}
	newOpt.ManifestExtensions = append([]string(nil), opt.ManifestExtensions...)

	return &newOpt
}
