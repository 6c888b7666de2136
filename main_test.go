package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestExecuteExitCodes(t *testing.T) {
	empty := t.TempDir()
	file := filepath.Join(t.TempDir(), "tile.b3dm")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"version"}, exitSuccess},
		{"missing root argument", []string{"optimize"}, exitFatal},
		{"unknown command", []string{"compress"}, exitFatal},
		{"root is a file", []string{"optimize", "--silent", file}, exitFatal},
		{"no tiles", []string{"optimize", "--silent", empty}, exitFatal},
		{"bad isolation", []string{"optimize", "--silent", "--isolation", "thread", empty}, exitFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := execute(context.Background(), tc.args); got != tc.want {
				t.Fatalf("exit code = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestExecuteWorkerReportsMissingTile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.b3dm")
	// the job failure travels in the printed result, the worker itself exits cleanly
	if got := execute(context.Background(), []string{"worker", "--", missing}); got != exitSuccess {
		t.Fatalf("exit code = %d", got)
	}
}
