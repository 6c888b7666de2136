/*
 * This file is part of the Go Cesium Point Cloud Tiler distribution (https://github.com/mfbonfigli/gocesiumtiler).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	tileio "github.com/ecopia-map/cesium_tile_optimizer/internal/io"
	"github.com/ecopia-map/cesium_tile_optimizer/pkg"
	"github.com/ecopia-map/cesium_tile_optimizer/pkg/algorithm_manager"
	"github.com/ecopia-map/cesium_tile_optimizer/tools"
)

const VERSION = "2.0.0"

const logo = `
  _   _ _                      _   _           _
 | |_(_) | ___    ___  _ __ | |_(_)_ __ ___ (_)_______ _ __
 | __| | |/ _ \  / _ \| '_ \| __| | '_ ' _ \| |_  / _ \ '__|
 | |_| | |  __/ | (_) | |_) | |_| | | | | | | |/ /  __/ |
  \__|_|_|\___|  \___/| .__/ \__|_|_| |_| |_|_/___\___|_|
                      |_| Draco and KTX2 for Cesium 3D Tiles, YYYY
`

const (
	exitSuccess    = 0
	exitFatal      = 1
	exitJobsFailed = 2
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status " + strconv.Itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	code := execute(context.Background(), os.Args[1:])
	glog.Flush()
	os.Exit(code)
}

func execute(ctx context.Context, args []string) int {
	// glog logs to stderr unless told otherwise, stdout belongs to the summary and the worker result
	_ = flag.Set("logtostderr", "true")
	_ = flag.CommandLine.Parse(nil)

	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return exitFatal
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tile-optimizer",
		Short:         "Compresses the meshes and textures of a Cesium 3D Tiles tree in place",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(newOptimizeCommand())
	rootCmd.AddCommand(newWorkerCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newOptimizeCommand() *cobra.Command {
	var flags tools.FlagsForCommandOptimize

	cmd := &cobra.Command{
		Use:   tools.CommandOptimize + " <root>",
		Short: "Optimize every b3dm, glb and gltf tile under root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.BuildOptions(cmd.Flags(), args[0])
			if err != nil {
				return &exitError{code: exitFatal, err: fmt.Errorf("error parsing input parameters: %w", err)}
			}

			// set logging and timestamp logging
			tools.SetLoggerOutput(cmd.OutOrStdout())
			if *flags.Silent {
				tools.DisableLogger()
			} else {
				tools.EnableLogger()
				printLogo(cmd.OutOrStdout())
			}
			if *flags.LogTimestamp {
				tools.EnableLoggerTimestamp()
			} else {
				tools.DisableLoggerTimestamp()
			}
			glog.V(1).Infoln("options", tools.FmtJSONString(opts))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			defer timeTrack(time.Now(), "optimization")
			result, err := pkg.NewOptimizer(tools.NewStandardFileFinder(), algorithm_manager.NewAlgorithmManager(opts)).RunOptimizer(ctx, opts)
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}

			pkg.RenderSummary(cmd.OutOrStdout(), result, isTerminal(cmd.OutOrStdout()))
			glog.Infof("run %s: %d succeeded, %d skipped, %d failed", result.RunID, result.Succeeded, result.Skipped, result.Failed)

			if result.Failed > 0 {
				return &exitError{code: exitJobsFailed}
			}
			tools.LogOutput("Optimization completed")
			return nil
		},
	}
	flags = tools.DefineFlagsForCommandOptimize(cmd.Flags())

	return cmd
}

// newWorkerCommand is the isolated job entry point. It optimizes a single tile and prints its
// result as one JSON line on stdout.
func newWorkerCommand() *cobra.Command {
	var flags tools.FlagsForCommandWorker

	cmd := &cobra.Command{
		Use:    tools.CommandWorker + " <tile>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.BuildOptions(cmd.Flags())
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			consumer := algorithm_manager.NewAlgorithmManager(opts).GetConsumer()
			result := consumer.DoWork(ctx, tileio.NewWorkUnit(0, args[0], opts))

			line, err := result.MarshalLine()
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			if _, err := cmd.OutOrStdout().Write(line); err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			return nil
		},
	}
	flags = tools.DefineFlagsForCommandWorker(cmd.Flags())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   tools.CommandVersion,
		Short: "Displays the version of tile-optimizer",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "v."+VERSION)
		},
	}
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo(w io.Writer) {
	fmt.Fprintln(w, strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
