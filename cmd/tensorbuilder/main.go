/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// The tensorbuilder command is the application entry point. Run without a
// subcommand it launches the desktop UI; the subcommands cover the same
// workspace operations headlessly for scripting and CI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JulianOrteil/TensorBuilder/internal/crash"
	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/ui"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

// openHandle is whatever workspace the active command attached; the crash
// handler snapshots it if the process dies.
var openHandle *storage.WorkspaceHandle

// verbose is bound to -V/--verbose and raises console logging to debug.
var verbose bool

// usageError marks bad invocations so main can exit 2 instead of 1.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, a ...any) error {
	return &usageError{msg: fmt.Sprintf(format, a...)}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("%s expects %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageErrorf("%s expects at least %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return usageErrorf("%s expects at most %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tensorbuilder [workspaceDir]",
		Short: "Drag-and-drop neural network builder",
		Long: `TensorBuilder is a desktop application for assembling neural networks
from blocks and generating Keras or PyTorch sources from the result.

Run without a subcommand to launch the desktop UI. The subcommands expose
workspace creation, validation, search and export for headless use.`,
		Args:          maxArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				// The UI shell re-reads the environment on startup, so the
				// override has to travel through it rather than a local.
				os.Setenv("TB_LOG_LEVEL", "debug")
			}
			applog.Init(applog.FromEnv())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return ui.Run(dir)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "log debug output to the console")

	root.AddCommand(newVersionCommand())
	root.AddCommand(newNewCommand())
	root.AddCommand(newOpenCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newImportCommand())
	root.AddCommand(newSearchCommand())
	root.AddCommand(newExportCommand())
	root.AddCommand(newPublishCommand())
	root.AddCommand(newPullCommand())
	root.AddCommand(newUICommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	}
}

func newUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [workspaceDir]",
		Short: "Launch the desktop UI",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return ui.Run(dir)
		},
	}
}

func main() {
	defer func() { crash.Recover(openHandle) }()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ue *usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
