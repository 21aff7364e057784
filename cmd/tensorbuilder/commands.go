/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/config"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/export"
	"github.com/JulianOrteil/TensorBuilder/internal/graph"
	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
	"github.com/JulianOrteil/TensorBuilder/internal/netscript"
	"github.com/JulianOrteil/TensorBuilder/internal/registry"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/vector"
)

// workspaceCatalog is the built-in block library plus whatever definitions
// the workspace carries in its blocks/ directory.
func workspaceCatalog(root string) (*catalog.Catalog, error) {
	cat, err := catalog.Builtin()
	if err != nil {
		return nil, err
	}
	if _, err := cat.MergeDir(filepath.Join(root, "blocks")); err != nil {
		return nil, fmt.Errorf("workspace block definitions: %w", err)
	}
	return cat, nil
}

func newNewCommand() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "new <dir> <name>",
		Short: "Create a workspace with one starter network",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := applog.WithComponent("cli")
			target = strings.ToLower(strings.TrimSpace(target))
			if target != domain.TargetTensorFlow && target != domain.TargetPyTorch {
				return usageErrorf("target must be %q or %q, got %q",
					domain.TargetTensorFlow, domain.TargetPyTorch, target)
			}
			abs, _ := filepath.Abs(args[0])
			name := args[1]
			l.Info("init workspace", slog.String("root", abs), slog.String("name", name))

			proj := domain.Project{
				Name: name,
				Networks: []domain.Network{{
					Name:        name,
					Target:      target,
					Blocks:      []domain.Block{},
					Connections: []domain.Connection{},
				}},
			}
			h, err := storage.Init(abs, proj)
			if err != nil {
				return err
			}
			openHandle = h
			cmd.Printf("Created workspace at %s\n", abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", domain.TargetTensorFlow,
		"code generation target: tensorflow or pytorch")
	return cmd
}

func newOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <dir>",
		Short: "Open a workspace and print a summary",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := applog.WithComponent("cli")
			abs, _ := filepath.Abs(args[0])
			l.Info("open workspace", slog.String("root", abs))

			h, err := storage.Open(abs)
			if err != nil {
				return err
			}
			openHandle = h
			cmd.Printf("Opened workspace: %s\n", h.Project.Name)
			cmd.Printf("Networks: %d\n", len(h.Project.Networks))
			for _, n := range h.Project.Networks {
				cmd.Printf("  %s (%s): %d blocks, %d connections\n",
					n.Name, n.Target, len(n.Blocks), len(n.Connections))
			}
			cmd.Println("Root:", h.Root)
			return nil
		},
	}
}

func newValidateCommand() *cobra.Command {
	var netName string
	cmd := &cobra.Command{
		Use:   "validate <dir>",
		Short: "Check networks for structural and shape problems",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, _ := filepath.Abs(args[0])
			h, err := storage.Open(abs)
			if err != nil {
				return err
			}
			openHandle = h
			cat, err := workspaceCatalog(abs)
			if err != nil {
				return err
			}

			total := 0
			for i := range h.Project.Networks {
				n := &h.Project.Networks[i]
				if netName != "" && n.Name != netName {
					continue
				}
				issues := graph.Validate(n, cat)
				if len(issues) == 0 {
					_, shapeIssues := graph.InferShapes(n, cat)
					issues = append(issues, shapeIssues...)
				}
				if len(issues) == 0 {
					cmd.Printf("%s: ok\n", n.Name)
					continue
				}
				total += len(issues)
				cmd.Printf("%s:\n", n.Name)
				for _, is := range issues {
					cmd.Printf("  %s\n", is.String())
				}
			}
			if total > 0 {
				return fmt.Errorf("validation found %d issue(s)", total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&netName, "network", "", "validate only the named network")
	return cmd
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir> <script>",
		Short: "Import networks from a network script file",
		Long: `Import reads a line-oriented network script and appends its networks to
the workspace. Scripts name networks with "# name" headings, define one
block per line ("conv2d c1 filters=32 kernel_size=3") and connect them
with "a -> b -> c" chains.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := applog.WithComponent("cli")
			abs, _ := filepath.Abs(args[0])
			src, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			doc, perrs := netscript.Parse(string(src))
			if len(perrs) > 0 {
				for _, e := range perrs {
					cmd.PrintErrf("%s:%d: %s\n", args[1], e.Line, e.Message)
				}
				return fmt.Errorf("%d script error(s)", len(perrs))
			}
			if len(doc.Networks) == 0 {
				return fmt.Errorf("%s defines no networks", args[1])
			}

			h, err := storage.Open(abs)
			if err != nil {
				return err
			}
			openHandle = h

			for _, def := range doc.Networks {
				n, cerrs := def.Network()
				if len(cerrs) > 0 {
					for _, e := range cerrs {
						cmd.PrintErrf("%s:%d: %s\n", args[1], e.Line, e.Message)
					}
					return fmt.Errorf("%d script error(s)", len(cerrs))
				}
				layoutNetwork(&n)
				if err := storage.AdoptNetwork(h, n); err != nil {
					return err
				}
				l.Info("imported network", slog.String("name", n.Name), slog.Int("blocks", len(n.Blocks)))
			}
			if err := storage.Save(h); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := storage.UpdateIndex(ctx, abs, h.Project); err != nil {
				l.Warn("index not updated", slog.Any("err", err))
			}
			cmd.Printf("Imported %d network(s) into %s\n", len(doc.Networks), h.Project.Name)
			return nil
		},
	}
}

// layoutNetwork positions imported blocks left to right when the graph
// allows a topological order; cyclic imports keep their cascade layout.
func layoutNetwork(n *domain.Network) {
	order, err := graph.TopoOrder(n)
	if err != nil {
		return
	}
	pos := vector.AutoLayout(vector.LayoutGraph{Order: order, Preds: graph.Predecessors(n)}, vector.LayoutOptions{})
	for id, p := range pos {
		if b := n.BlockByID(id); b != nil {
			b.Position.X = float64(p.X)
			b.Position.Y = float64(p.Y)
		}
	}
}

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <dir> <query>...",
		Short: "Search networks and blocks in a workspace",
		Long: `Search runs the workspace full-text index. Queries accept type:, net:
and block: filter tokens plus free text, for example:

  tensorbuilder search ./mnist type:block net:mnist relu`,
		Args: minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, _ := filepath.Abs(args[0])
			raw := strings.Join(args[1:], " ")

			h, err := storage.Open(abs)
			if err != nil {
				return err
			}
			openHandle = h

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := storage.BuildIndexIfEmpty(ctx, abs, h.Project); err != nil {
				return err
			}
			res, err := storage.Search(ctx, abs, storage.ParseQuery(raw))
			if err != nil {
				return err
			}
			if len(res) == 0 {
				cmd.Println("No results.")
				return nil
			}
			for _, r := range res {
				net := r.Network
				if net == "" {
					net = "-"
				}
				sn := strings.TrimSpace(r.Snippet)
				if sn == "" {
					sn = r.Path
				}
				cmd.Printf("%-10s %-16s %s\n", r.Type, net, sn)
			}
			cmd.Printf("%d result(s)\n", len(res))
			return nil
		},
	}
}

func newExportCommand() *cobra.Command {
	var (
		preset   string
		formats  []string
		networks []string
		outDir   string
		scale    float64
	)
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Export code, diagrams or a datasheet from a workspace",
		Long: `Export writes generated artifacts under <dir>/exports/<preset>/ unless
--out points elsewhere. Presets: code (keras+pytorch sources), docs
(pdf+png+svg), all. --format narrows a preset to specific formats.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := applog.WithComponent("cli")
			abs, _ := filepath.Abs(args[0])

			p := export.PresetName(strings.ToLower(strings.TrimSpace(preset)))
			switch p {
			case export.PresetCode, export.PresetDocs, export.PresetAll:
			default:
				return usageErrorf("preset must be code, docs or all, got %q", preset)
			}

			h, err := storage.Open(abs)
			if err != nil {
				return err
			}
			openHandle = h
			cat, err := workspaceCatalog(abs)
			if err != nil {
				return err
			}

			l.Info("batch export", slog.String("root", abs), slog.String("preset", string(p)))
			opt := export.BatchOptions{
				Preset:   p,
				Formats:  formats,
				Networks: networks,
				OutDir:   outDir,
				Scale:    float32(scale),
			}
			if err := export.BatchExport(h, cat, opt); err != nil {
				return err
			}
			cmd.Println("Export finished.")
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "code", "export preset: code, docs or all")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "limit to formats: keras, pytorch, pdf, png, svg, zip")
	cmd.Flags().StringSliceVar(&networks, "network", nil, "limit to the named networks")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default <dir>/exports/<preset>)")
	cmd.Flags().Float64Var(&scale, "scale", 0, "raster scale override for png and zip")
	return cmd
}

// registryClient builds a client for the shared registry from the user
// settings plus the stored token. Passing an override URL skips the
// enable_registry gate; invoking the command with an explicit target is
// opt-in enough.
func registryClient(override string) (*registry.Client, time.Duration, error) {
	cfg, token, err := config.Load()
	if err != nil {
		return nil, 0, err
	}
	base := strings.TrimSpace(override)
	if base == "" {
		if !cfg.General.EnableRegistry {
			return nil, 0, fmt.Errorf("registry support is disabled; enable it in the settings dialog or set %s=1", config.EnvEnableRegistry)
		}
		base = strings.TrimSpace(cfg.Registry.BaseURL)
	}
	if base == "" {
		return nil, 0, usageErrorf("no registry URL configured; set %s or pass --registry", config.EnvRegistryURL)
	}
	timeout := cfg.Registry.Timeout()
	return registry.NewClient(base, token, timeout), timeout, nil
}

func newPublishCommand() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "publish <dir> <network>",
		Short: "Publish a network to the shared registry",
		Long: `Publish uploads one network to the configured registry. Re-publishing a
network under the same project bumps its version on the server.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := applog.WithComponent("cli")
			abs, _ := filepath.Abs(args[0])
			h, err := storage.Open(abs)
			if err != nil {
				return err
			}
			openHandle = h
			n := h.Project.NetworkByName(args[1])
			if n == nil {
				return fmt.Errorf("workspace has no network named %q", args[1])
			}
			client, timeout, err := registryClient(baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			rec, err := client.Publish(ctx, h.Project.Name, n)
			if err != nil {
				return err
			}
			l.Info("network published",
				slog.String("network", n.Name),
				slog.Int64("id", rec.ID),
				slog.Int64("version", rec.Version))
			cmd.Printf("Published %s as #%d, version %d\n", n.Name, rec.ID, rec.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "registry", "", "registry base URL (default from user settings)")
	return cmd
}

func newPullCommand() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "pull <dir> <id>",
		Short: "Copy a published network into a workspace",
		Long: `Pull downloads a published network by its registry id and adds it to the
workspace. Use the registry web listing or the publish output to find
ids. The network keeps its canvas layout from when it was published.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := applog.WithComponent("cli")
			abs, _ := filepath.Abs(args[0])
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return usageErrorf("network id must be a number, got %q", args[1])
			}
			h, err := storage.Open(abs)
			if err != nil {
				return err
			}
			openHandle = h
			client, timeout, err := registryClient(baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			env, err := client.GetNetwork(ctx, id)
			if err != nil {
				return err
			}
			n, err := env.Decode()
			if err != nil {
				return err
			}
			if err := storage.AdoptNetwork(h, *n); err != nil {
				return err
			}
			if err := storage.Save(h); err != nil {
				return err
			}
			ictx, icancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer icancel()
			if err := storage.UpdateIndex(ictx, abs, h.Project); err != nil {
				l.Warn("index not updated", slog.Any("err", err))
			}
			l.Info("network pulled", slog.String("name", n.Name), slog.Int64("version", env.Version))
			cmd.Printf("Pulled %s (version %d) into %s\n", n.Name, env.Version, h.Project.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "registry", "", "registry base URL (default from user settings)")
	return cmd
}
