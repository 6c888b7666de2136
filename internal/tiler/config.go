package tiler

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/scene"
)

// Batch contains configuration for the scheduler.
type Batch struct {
	Concurrency       *int   `toml:"concurrency"`
	Isolation         string `toml:"isolation"`
	JobTimeoutSeconds *int   `toml:"job_timeout_seconds"`
	ReportPath        string `toml:"report_path"`
}

// Optimize contains the requested optimizations.
type Optimize struct {
	MeshCompression    *bool `toml:"mesh_compression"`
	TextureCompression *bool `toml:"texture_compression"`
	KeepContainer      *bool `toml:"keep_container"`
	DryRun             *bool `toml:"dry_run"`
}

// Transform contains configuration for the external transform command.
type Transform struct {
	Command string              `toml:"command"`
	TempDir string              `toml:"temp_dir"`
	Steps   map[string][]string `toml:"steps"`
}

// Discovery contains configuration for tile lookup.
type Discovery struct {
	Recursive *bool `toml:"recursive"`
}

// Manifest contains configuration for tileset manifest rewriting.
type Manifest struct {
	Rewrite    *bool    `toml:"rewrite"`
	Extensions []string `toml:"extensions"`
}

// Config mirrors the TOML configuration file. Absent keys keep the defaults.
type Config struct {
	Batch     Batch     `toml:"batch"`
	Optimize  Optimize  `toml:"optimize"`
	Transform Transform `toml:"transform"`
	Discovery Discovery `toml:"discovery"`
	Manifest  Manifest  `toml:"manifest"`
}

// LoadConfig reads a TOML configuration file and applies it on top of opts.
func LoadConfig(path string, opts *TilerOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.apply(opts)
	opts.ConfigPath = path
	return nil
}

func (cfg *Config) apply(opts *TilerOptions) {
	if cfg.Batch.Concurrency != nil {
		opts.Concurrency = *cfg.Batch.Concurrency
	}
	if cfg.Batch.Isolation != "" {
		opts.Isolation = Isolation(cfg.Batch.Isolation)
	}
	if cfg.Batch.JobTimeoutSeconds != nil {
		opts.JobTimeout = time.Duration(*cfg.Batch.JobTimeoutSeconds) * time.Second
	}
	if cfg.Batch.ReportPath != "" {
		opts.ReportPath = cfg.Batch.ReportPath
	}

	setBool(&opts.MeshCompression, cfg.Optimize.MeshCompression)
	setBool(&opts.TextureCompression, cfg.Optimize.TextureCompression)
	setBool(&opts.KeepContainer, cfg.Optimize.KeepContainer)
	setBool(&opts.DryRun, cfg.Optimize.DryRun)

	if cfg.Transform.Command != "" {
		opts.TransformCommand = cfg.Transform.Command
	}
	if cfg.Transform.TempDir != "" {
		opts.TempDir = cfg.Transform.TempDir
	}
	for step, args := range cfg.Transform.Steps {
		if opts.StepArgs == nil {
			opts.StepArgs = make(map[scene.Step][]string)
		}
		opts.StepArgs[scene.Step(step)] = append([]string(nil), args...)
	}

	setBool(&opts.Recursive, cfg.Discovery.Recursive)

	setBool(&opts.RewriteManifests, cfg.Manifest.Rewrite)
	if len(cfg.Manifest.Extensions) > 0 {
		opts.ManifestExtensions = append([]string(nil), cfg.Manifest.Extensions...)
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}
