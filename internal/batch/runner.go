package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/io"
	"github.com/ecopia-map/cesium_tile_optimizer/tools"
)

// Runner executes one WorkUnit and always returns exactly one result for it.
type Runner interface {
	Run(ctx context.Context, unit *io.WorkUnit) io.JobResult
}

// interruptedResult reports a job whose context ended before it produced a result. An
// expired job timeout counts as a crash, a cancelled run as a cancellation.
func interruptedResult(ctx context.Context, unit *io.WorkUnit) io.JobResult {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return io.FailedResult(unit.Path, io.ErrorWorkerCrashed, "", errors.New("job timed out"))
	}
	return io.FailedResult(unit.Path, io.ErrorCancelled, "", ctx.Err())
}

// InProcessRunner runs jobs as goroutines of the coordinating process.
type InProcessRunner struct {
	consumer io.Consumer
}

func NewInProcessRunner(consumer io.Consumer) *InProcessRunner {
	return &InProcessRunner{consumer: consumer}
}

func (r *InProcessRunner) Run(ctx context.Context, unit *io.WorkUnit) io.JobResult {
	done := make(chan io.JobResult, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				glog.Errorf("%s: worker panicked: %v\n%s", unit.Path, p, debug.Stack())
				done <- io.FailedResult(unit.Path, io.ErrorWorkerCrashed, "", fmt.Errorf("panic: %v", p))
			}
		}()
		done <- r.consumer.DoWork(ctx, unit)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return interruptedResult(ctx, unit)
	}
}

const stderrTailBytes = 2048

// ProcessRunner runs every job in a child process running the hidden worker command of
// Executable. The child prints a single JSON result line on stdout.
type ProcessRunner struct {
	Executable  string
	ExtraArgs   []string      // placed before the worker command line
	Env         []string      // appended to the current environment
	GracePeriod time.Duration // time between the interrupt and the kill on cancellation
}

func NewProcessRunner() (*ProcessRunner, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("cannot locate the worker executable: %w", err)
	}
	return &ProcessRunner{
		Executable:  executable,
		GracePeriod: 5 * time.Second,
	}, nil
}

func (r *ProcessRunner) Run(ctx context.Context, unit *io.WorkUnit) io.JobResult {
	args := append(append([]string(nil), r.ExtraArgs...), tools.WorkerArgs(unit.Opts, unit.Path)...)

	runCmd := exec.CommandContext(ctx, r.Executable, args...)
	runCmd.Env = append(os.Environ(), r.Env...)
	runCmd.Cancel = func() error {
		return runCmd.Process.Signal(os.Interrupt)
	}
	runCmd.WaitDelay = r.GracePeriod

	var cmdStdout, cmdStderr bytes.Buffer
	runCmd.Stdout = &cmdStdout
	runCmd.Stderr = &cmdStderr

	err := runCmd.Run()
	if err == nil {
		result, parseErr := io.ParseJobResult(cmdStdout.Bytes())
		if parseErr == nil && result.Path == unit.Path {
			// an interrupted worker still exits cleanly with whatever its stage reported
			if result.Failed() && ctx.Err() != nil {
				return interruptedResult(ctx, unit)
			}
			return result
		}
		if parseErr == nil {
			parseErr = fmt.Errorf("worker answered for %s", result.Path)
		}
		return io.FailedResult(unit.Path, io.ErrorWorkerCrashed, "", parseErr)
	}

	if ctx.Err() != nil {
		return interruptedResult(ctx, unit)
	}

	glog.V(1).Infoln("worker failed", runCmd.String(), "cmd-stderr", cmdStderr.String())
	return io.FailedResult(unit.Path, io.ErrorWorkerCrashed, "", fmt.Errorf("worker exited abnormally: %v: %s", err, tail(cmdStderr.String())))
}

func tail(output string) string {
	output = strings.TrimSpace(output)
	if len(output) > stderrTailBytes {
		output = "..." + output[len(output)-stderrTailBytes:]
	}
	return output
}
