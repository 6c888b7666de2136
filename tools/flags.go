package tools

import (
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/tiler"
)

const (
	CommandOptimize = "optimize"
	CommandWorker   = "worker"
	CommandVersion  = "version"
)

const (
	FlagConfig           = "config"
	FlagMesh             = "mesh"
	FlagTexture          = "texture"
	FlagKeepContainer    = "keep-container"
	FlagDryRun           = "dry-run"
	FlagTransformCommand = "transform-command"
	FlagTempDir          = "temp-dir"
	FlagConcurrency      = "concurrency"
	FlagIsolation        = "isolation"
	FlagJobTimeout       = "job-timeout"
	FlagRecursive        = "recursive"
	FlagReport           = "report"
	FlagManifests        = "manifests"
	FlagSilent           = "silent"
	FlagLogTimestamp     = "timestamp"
)

// Flags shared by the optimize command and the worker it spawns
type OptimizerFlags struct {
	Config           *string
	Mesh             *bool
	Texture          *bool
	KeepContainer    *bool
	DryRun           *bool
	TransformCommand *string
	TempDir          *string
}

type FlagsForCommandOptimize struct {
	OptimizerFlags
	Concurrency  *int
	Isolation    *string
	JobTimeout   *time.Duration
	Recursive    *bool
	Report       *string
	Manifests    *bool
	Silent       *bool
	LogTimestamp *bool
}

type FlagsForCommandWorker struct {
	OptimizerFlags
}

func defineOptimizerFlags(flagCommand *pflag.FlagSet) OptimizerFlags {
	defaults := tiler.DefaultTilerOptions()

	return OptimizerFlags{
		Config:           defineStringFlagCommand(flagCommand, FlagConfig, "c", "", "TOML configuration file. Flags given explicitly override its values."),
		Mesh:             defineBoolFlagCommand(flagCommand, FlagMesh, "m", defaults.MeshCompression, "Apply Draco mesh compression to tiles that lack it."),
		Texture:          defineBoolFlagCommand(flagCommand, FlagTexture, "k", defaults.TextureCompression, "Apply KTX2 texture compression to tiles that lack it."),
		KeepContainer:    defineBoolFlagCommand(flagCommand, FlagKeepContainer, "", defaults.KeepContainer, "Write optimized b3dm tiles back as b3dm instead of unwrapping them to glb."),
		DryRun:           defineBoolFlagCommand(flagCommand, FlagDryRun, "n", defaults.DryRun, "Inspect and plan every tile without writing anything."),
		TransformCommand: defineStringFlagCommand(flagCommand, FlagTransformCommand, "", defaults.TransformCommand, "Executable used to apply the optimization steps."),
		TempDir:          defineStringFlagCommand(flagCommand, FlagTempDir, "", defaults.TempDir, "Scratch folder for the transform command. Defaults to the system temp folder."),
	}
}

func DefineFlagsForCommandOptimize(flagCommand *pflag.FlagSet) FlagsForCommandOptimize {
	defaults := tiler.DefaultTilerOptions()

	return FlagsForCommandOptimize{
		OptimizerFlags: defineOptimizerFlags(flagCommand),
		Concurrency:    defineIntFlagCommand(flagCommand, FlagConcurrency, "j", 0, "Max number of tiles processed at once. 0 means one less than the number of CPUs."),
		Isolation:      defineStringFlagCommand(flagCommand, FlagIsolation, "", string(defaults.Isolation), "Job isolation, can be 'process' or 'goroutine'."),
		JobTimeout:     defineDurationFlagCommand(flagCommand, FlagJobTimeout, "", 0, "Abort a single tile after this long. 0 disables the timeout."),
		Recursive:      defineBoolFlagCommand(flagCommand, FlagRecursive, "r", defaults.Recursive, "Look for tiles inside the subfolders of the root."),
		Report:         defineStringFlagCommand(flagCommand, FlagReport, "", "", "Write a JSON lines report of every tile to this file."),
		Manifests:      defineBoolFlagCommand(flagCommand, FlagManifests, "", defaults.RewriteManifests, "Rewrite tileset manifests to reference the unwrapped tiles."),
		Silent:         defineBoolFlagCommand(flagCommand, FlagSilent, "s", false, "Use to suppress all the non-error messages."),
		LogTimestamp:   defineBoolFlagCommand(flagCommand, FlagLogTimestamp, "t", false, "Adds timestamp to progress messages."),
	}
}

func DefineFlagsForCommandWorker(flagCommand *pflag.FlagSet) FlagsForCommandWorker {
	return FlagsForCommandWorker{
		OptimizerFlags: defineOptimizerFlags(flagCommand),
	}
}

// BuildOptions layers defaults, the configuration file and the flags that were set explicitly.
func (f OptimizerFlags) BuildOptions(flagCommand *pflag.FlagSet) (*tiler.TilerOptions, error) {
	opts := tiler.DefaultTilerOptions()
	if *f.Config != "" {
		if err := tiler.LoadConfig(*f.Config, opts); err != nil {
			return nil, err
		}
	}

	if flagCommand.Changed(FlagMesh) {
		opts.MeshCompression = *f.Mesh
	}
	if flagCommand.Changed(FlagTexture) {
		opts.TextureCompression = *f.Texture
	}
	if flagCommand.Changed(FlagKeepContainer) {
		opts.KeepContainer = *f.KeepContainer
	}
	if flagCommand.Changed(FlagDryRun) {
		opts.DryRun = *f.DryRun
	}
	if flagCommand.Changed(FlagTransformCommand) {
		opts.TransformCommand = *f.TransformCommand
	}
	if flagCommand.Changed(FlagTempDir) {
		opts.TempDir = *f.TempDir
	}

	return opts, nil
}

func (f FlagsForCommandOptimize) BuildOptions(flagCommand *pflag.FlagSet, input string) (*tiler.TilerOptions, error) {
	opts, err := f.OptimizerFlags.BuildOptions(flagCommand)
	if err != nil {
		return nil, err
	}

	opts.Input = input
	if flagCommand.Changed(FlagConcurrency) {
		opts.Concurrency = *f.Concurrency
	}
	if flagCommand.Changed(FlagIsolation) {
		opts.Isolation = tiler.Isolation(*f.Isolation)
	}
	if flagCommand.Changed(FlagJobTimeout) {
		opts.JobTimeout = *f.JobTimeout
	}
	if flagCommand.Changed(FlagRecursive) {
		opts.Recursive = *f.Recursive
	}
	if flagCommand.Changed(FlagReport) {
		opts.ReportPath = *f.Report
	}
	if flagCommand.Changed(FlagManifests) {
		opts.RewriteManifests = *f.Manifests
	}

	return opts, opts.Validate()
}

// WorkerArgs is the command line that makes a worker process optimize path with opts.
func WorkerArgs(opts *tiler.TilerOptions, path string) []string {
	args := []string{
		CommandWorker,
		"--" + FlagMesh + "=" + strconv.FormatBool(opts.MeshCompression),
		"--" + FlagTexture + "=" + strconv.FormatBool(opts.TextureCompression),
		"--" + FlagKeepContainer + "=" + strconv.FormatBool(opts.KeepContainer),
		"--" + FlagDryRun + "=" + strconv.FormatBool(opts.DryRun),
		"--" + FlagTransformCommand, opts.TransformCommand,
	}
	if opts.ConfigPath != "" {
		args = append(args, "--"+FlagConfig, opts.ConfigPath)
	}
	if opts.TempDir != "" {
		args = append(args, "--"+FlagTempDir, opts.TempDir)
	}
	return append(args, "--", path)
}

func defineStringFlagCommand(flagCommand *pflag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVarP(&output, name, shortHand, defaultValue, usage)
	return &output
}

func defineIntFlagCommand(flagCommand *pflag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVarP(&output, name, shortHand, defaultValue, usage)
	return &output
}

func defineDurationFlagCommand(flagCommand *pflag.FlagSet, name string, shortHand string, defaultValue time.Duration, usage string) *time.Duration {
	var output time.Duration
	flagCommand.DurationVarP(&output, name, shortHand, defaultValue, usage)
	return &output
}

func defineBoolFlagCommand(flagCommand *pflag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVarP(&output, name, shortHand, defaultValue, usage)
	return &output
}
