package io

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type ErrorKind string

const (
	ErrorNotFound           ErrorKind = "NotFound"
	ErrorMalformedContainer ErrorKind = "MalformedContainer"
	ErrorTransform          ErrorKind = "TransformError"
	ErrorWrite              ErrorKind = "WriteError"
	ErrorWorkerCrashed      ErrorKind = "WorkerCrashed"
	ErrorCancelled          ErrorKind = "Cancelled"
)

// Stage is the step of a job that was running when it failed.
type Stage string

const (
	StageReading      Stage = "reading"
	StageDecoding     Stage = "decoding"
	StageInspecting   Stage = "inspecting"
	StagePlanning     Stage = "planning"
	StageTransforming Stage = "transforming"
	StageEncoding     Stage = "encoding"
	StageWriting      Stage = "writing"
)

// JobResult is produced exactly once per file and travels back from the worker as a single
// JSON line.
type JobResult struct {
	Path           string    `json:"path"`
	Outcome        Outcome   `json:"outcome"`
	Steps          []string  `json:"steps,omitempty"`
	TextureFormats []string  `json:"texture_formats,omitempty"`
	ElapsedMillis  int64     `json:"elapsed_ms"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	Error          string    `json:"error,omitempty"`
	FailedStage    Stage     `json:"failed_stage,omitempty"`
	OutputPath     string    `json:"output_path,omitempty"`
}

func FailedResult(path string, kind ErrorKind, stage Stage, err error) JobResult {
	result := JobResult{
		Path:        path,
		Outcome:     OutcomeFailed,
		ErrorKind:   kind,
		FailedStage: stage,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func (r JobResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// String formats the result as the human readable line logged by the coordinator.
func (r JobResult) String() string {
	switch r.Outcome {
	case OutcomeFailed:
		if r.FailedStage != "" {
			return fmt.Sprintf("%s failed while %s [%s]: %s", r.Path, r.FailedStage, r.ErrorKind, r.Error)
		}
		return fmt.Sprintf("%s failed [%s]: %s", r.Path, r.ErrorKind, r.Error)
	case OutcomeSuccess:
		return fmt.Sprintf("%s optimized in %dms (%s) -> %s", r.Path, r.ElapsedMillis, strings.Join(r.Steps, ", "), r.OutputPath)
	}
	if len(r.Steps) > 0 {
		return fmt.Sprintf("%s planned (%s), nothing written", r.Path, strings.Join(r.Steps, ", "))
	}
	return fmt.Sprintf("%s already optimized, re-encoded in %dms -> %s", r.Path, r.ElapsedMillis, r.OutputPath)
}

func (r JobResult) MarshalLine() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ParseJobResult reads the last non empty line of a worker output.
func ParseJobResult(output []byte) (JobResult, error) {
	lines := bytes.Split(bytes.TrimSpace(output), []byte("\n"))
	last := bytes.TrimSpace(lines[len(lines)-1])
	if len(last) == 0 {
		return JobResult{}, errors.New("worker produced no result")
	}

	var result JobResult
	if err := json.Unmarshal(last, &result); err != nil {
		return JobResult{}, fmt.Errorf("decode worker result: %w", err)
	}
	if result.Path == "" || result.Outcome == "" {
		return JobResult{}, errors.New("worker result is incomplete")
	}
	return result, nil
}
