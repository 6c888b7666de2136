package io

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/b3dm"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/optimization"
	"github.com/ecopia-map/cesium_tile_optimizer/internal/scene"
	"github.com/ecopia-map/cesium_tile_optimizer/tools"
)

type StandardConsumer struct {
	library     scene.Library
	transformer scene.Transformer
}

func NewStandardConsumer(library scene.Library, transformer scene.Transformer) *StandardConsumer {
	return &StandardConsumer{
		library:     library,
		transformer: transformer,
	}
}

// jobError carries the classification of a failed stage up to DoWork.
type jobError struct {
	kind  ErrorKind
	stage Stage
	err   error
}

func (e *jobError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *jobError) Unwrap() error {
	return e.err
}

func fail(kind ErrorKind, stage Stage, err error) *jobError {
	return &jobError{kind: kind, stage: stage, err: err}
}

// Takes a WorkUnit, optimizes the tile it points to and writes the result. Never panics on bad
// input, every failure is reported in the returned JobResult.
func (c *StandardConsumer) DoWork(ctx context.Context, workUnit *WorkUnit) JobResult {
	startTime := time.Now()

	result, jobErr := c.doWork(ctx, workUnit)
	if jobErr != nil {
		result = FailedResult(workUnit.Path, jobErr.kind, jobErr.stage, jobErr.err)
		glog.Errorf("%s failed while %s: %v", workUnit.Path, jobErr.stage, jobErr.err)
	}
	result.ElapsedMillis = time.Since(startTime).Milliseconds()

	return result
}

func (c *StandardConsumer) doWork(ctx context.Context, workUnit *WorkUnit) (JobResult, *jobError) {
	opts := workUnit.Opts

	data, err := os.ReadFile(workUnit.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return JobResult{}, fail(ErrorNotFound, StageReading, err)
		}
		return JobResult{}, fail(ErrorNotFound, StageReading, fmt.Errorf("unreadable tile: %w", err))
	}

	var header b3dm.Header
	var sideTables b3dm.SideTables
	payload := data
	if workUnit.Kind == KindContainer {
		header, sideTables, payload, err = b3dm.Decode(data)
		if err != nil {
			return JobResult{}, fail(ErrorMalformedContainer, StageDecoding, err)
		}
		if !header.HasStandardMagic() {
			glog.Warningf("%s: unexpected container magic 0x%08x, decoding anyway", workUnit.Path, header.Magic)
		}
	}

	doc, err := c.library.Read(payload)
	if err != nil {
		return JobResult{}, fail(ErrorTransform, StageDecoding, fmt.Errorf("parse scene: %w", err))
	}

	state := optimization.Inspect(doc)
	plan := optimization.BuildPlan(state, optimization.Options{
		MeshCompression:    opts.MeshCompression,
		TextureCompression: opts.TextureCompression,
	})
	glog.V(1).Infof("%s: formats %v, draco %t, plan %v", workUnit.Path, state.FormatNames(), state.MeshCompressed, plan.Strings())

	result := JobResult{
		Path:           workUnit.Path,
		Steps:          plan.Strings(),
		TextureFormats: state.FormatNames(),
		OutputPath:     workUnit.OutputPath(),
	}

	if opts.DryRun {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	if err := checkOutputFree(workUnit.Path, result.OutputPath); err != nil {
		return JobResult{}, fail(ErrorWrite, StageWriting, err)
	}

	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			return JobResult{}, fail(ErrorCancelled, StageTransforming, err)
		}
		doc, err = c.transformer.Apply(ctx, doc, step)
		if err != nil {
			if ctx.Err() != nil {
				return JobResult{}, fail(ErrorCancelled, StageTransforming, ctx.Err())
			}
			return JobResult{}, fail(ErrorTransform, StageTransforming, err)
		}
	}

	output, err := c.library.Write(doc)
	if err != nil {
		return JobResult{}, fail(ErrorTransform, StageEncoding, err)
	}
	if workUnit.Kind == KindContainer && opts.KeepContainer {
		output, err = b3dm.Encode(header, sideTables, output)
		if err != nil {
			return JobResult{}, fail(ErrorTransform, StageEncoding, err)
		}
	}

	if err := tools.WriteFileAtomic(result.OutputPath, output); err != nil {
		return JobResult{}, fail(ErrorWrite, StageWriting, err)
	}
	if result.OutputPath != workUnit.Path {
		// the optimized tile is already in place, a leftover input is only reported
		if err := os.Remove(workUnit.Path); err != nil {
			glog.Warningf("%s: cannot delete replaced tile: %v", workUnit.Path, err)
		}
	}

	if plan.Empty() {
		result.Outcome = OutcomeSkipped
	} else {
		result.Outcome = OutcomeSuccess
	}
	return result, nil
}

// checkOutputFree refuses an output path that already holds a file other than the input.
func checkOutputFree(input, output string) error {
	if output == input {
		return nil
	}
	_, err := os.Lstat(output)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%s already exists and is not the tile being optimized", output)
}
