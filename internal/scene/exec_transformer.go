package scene

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/golang/glog"
)

// DefaultStepArgs maps every step to a gltf-transform subcommand. The first element is the
// subcommand, the rest is appended after the input and output paths.
func DefaultStepArgs() map[Step][]string {
	return map[Step][]string{
		StepDedup:   {"dedup"},
		StepFlatten: {"flatten"},
		StepDraco:   {"draco", "--method", "edgebreaker"},
		StepKTX2:    {"etc1s"},
	}
}

// ExecTransformer applies steps by running an external command on a temporary glb file.
type ExecTransformer struct {
	library  Library
	command  string
	stepArgs map[Step][]string
	tempDir  string
}

func NewExecTransformer(library Library, command string, stepArgs map[Step][]string, tempDir string) *ExecTransformer {
	return &ExecTransformer{
		library:  library,
		command:  command,
		stepArgs: stepArgs,
		tempDir:  tempDir,
	}
}

func (t *ExecTransformer) Apply(ctx context.Context, doc Document, step Step) (Document, error) {
	args, ok := t.stepArgs[step]
	if !ok || len(args) == 0 {
		return nil, fmt.Errorf("no command configured for step %q", step)
	}

	data, err := t.library.Write(doc)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(t.tempDir, "tile-optimizer-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	inputFileLocation := filepath.Join(workDir, "input.glb")
	outputFileLocation := filepath.Join(workDir, "output.glb")
	if err := os.WriteFile(inputFileLocation, data, 0o644); err != nil {
		return nil, err
	}

	cmdParams := append([]string{args[0], inputFileLocation, outputFileLocation}, args[1:]...)
	runCmd := exec.CommandContext(ctx, t.command, cmdParams...)

	var cmdStdout, cmdStderr bytes.Buffer
	runCmd.Stdout = &cmdStdout
	runCmd.Stderr = &cmdStderr

	if err := runCmd.Run(); err != nil {
		glog.Errorln("run failed", runCmd.String(), "cmd-stdout", cmdStdout.String(), "cmd-stderr", cmdStderr.String(), err.Error())
		return nil, fmt.Errorf("step %s: %w", step, err)
	}
	glog.V(2).Infoln("run success", runCmd.String())

	transformed, err := os.ReadFile(outputFileLocation)
	if err != nil {
		return nil, fmt.Errorf("step %s produced no output: %w", step, err)
	}

	return t.library.Read(transformed)
}
