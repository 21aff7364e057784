//go:build fyne && cgo

/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/render"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/undo"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
	"github.com/JulianOrteil/TensorBuilder/internal/worker"
)

// Controller owns one Model and one View and processes the window's user
// interactions. The four nav observers are registered explicitly in
// NewController, so the dispatch order is visible at construction; each
// handler logs the activation and switches the content panel.
type Controller struct {
	app   fyne.App
	win   fyne.Window
	l     *slog.Logger
	model *Model
	view  *View
	jobs  *worker.Runner

	canvas *NetworkCanvas
	status *widget.Label

	panels         map[string]fyne.CanvasObject
	refreshRecents func()
	refreshNets    func()
	refreshInspect func()
	refreshPalette func()
}

func NewController(app fyne.App, win fyne.Window, jobs *worker.Runner, m *Model, l *slog.Logger) *Controller {
	c := &Controller{
		app:    app,
		win:    win,
		l:      l,
		model:  m,
		jobs:   jobs,
		view:   NewView(win),
		canvas: NewNetworkCanvas(m.Catalog),
		status: widget.NewLabel("Ready"),
		panels: map[string]fyne.CanvasObject{},
	}

	c.view.OnHome(c.homeClicked)
	c.view.OnBuilder(c.builderClicked)
	c.view.OnConfiguration(c.configurationClicked)
	c.view.OnHelp(c.helpClicked)

	f := c.view.frame
	f.fileNew.Action = c.newWorkspace
	f.fileOpen.Action = c.openWorkspaceDialog
	f.fileSave.Action = c.saveWorkspace
	f.fileQuit.Action = func() {
		if c.win != nil {
			c.win.Close()
		}
	}
	f.editUndo.Action = c.undoEdit
	f.editRedo.Action = c.redoEdit
	f.helpAbout.Action = c.showAbout
	f.search.OnSubmitted = c.runSearch

	return c
}

// Show displays the window with the Home panel active.
func (c *Controller) Show() {
	c.showPanel(panelHome)
	c.view.Show()
}

// Close hides the window.
func (c *Controller) Close() { c.view.Close() }

// View exposes the view for the shell's shutdown hook.
func (c *Controller) View() *View { return c.view }

func (c *Controller) homeClicked() {
	c.l.Info("nav activated", slog.String("button", "home"))
	c.showPanel(panelHome)
}

func (c *Controller) builderClicked() {
	c.l.Info("nav activated", slog.String("button", "builder"))
	c.showPanel(panelBuilder)
}

func (c *Controller) configurationClicked() {
	c.l.Info("nav activated", slog.String("button", "configuration"))
	c.showPanel(panelConfiguration)
}

func (c *Controller) helpClicked() {
	c.l.Info("nav activated", slog.String("button", "help"))
	c.showPanel(panelHelp)
}

// showPanel builds panels on first use and swaps the content area. The
// home panel re-reads the recents list each time it comes back.
func (c *Controller) showPanel(name string) {
	p, ok := c.panels[name]
	if !ok {
		switch name {
		case panelHome:
			p = c.buildHomePanel()
		case panelBuilder:
			p = c.buildBuilderPanel()
		case panelConfiguration:
			p = c.buildConfigurationPanel()
		case panelHelp:
			p = c.buildHelpPanel()
		default:
			return
		}
		c.panels[name] = p
	}
	if name == panelHome && c.refreshRecents != nil {
		c.refreshRecents()
	}
	c.model.ActivePanel = name
	c.view.SetPanel(p)
}

// SetCatalog installs the loaded block catalog on the model, the canvas
// and the palette. The loader calls it from the UI goroutine via fyne.Do.
func (c *Controller) SetCatalog(cat *catalog.Catalog) {
	c.model.Catalog = cat
	c.canvas.cat = cat
	if c.refreshPalette != nil {
		c.refreshPalette()
	}
}

func (c *Controller) newWorkspace() {
	c.l.Info("menu: new workspace")
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			c.l.Error("new dialog error", slog.Any("err", err))
			return
		}
		if uri == nil {
			c.l.Info("new workspace canceled at folder selection")
			return
		}
		abs := uri.Path()
		nameEntry := widget.NewEntry()
		nameEntry.SetPlaceHolder("Project Name")
		targetSelect := widget.NewSelect([]string{domain.TargetTensorFlow, domain.TargetPyTorch}, nil)
		targetSelect.SetSelected(domain.TargetTensorFlow)
		form := dialog.NewForm("New Workspace", "Create", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Name", nameEntry),
			widget.NewFormItem("Target", targetSelect),
		}, func(ok bool) {
			if !ok {
				c.l.Info("new workspace canceled at name prompt")
				return
			}
			name := strings.TrimSpace(nameEntry.Text)
			if name == "" {
				dialog.ShowInformation("New Workspace", "Please enter a project name.", c.win)
				return
			}
			c.l.Info("creating workspace", slog.String("name", name), slog.String("root", abs))
			proj := domain.Project{
				Name: name,
				Networks: []domain.Network{{
					Name:        name,
					Target:      targetSelect.Selected,
					Blocks:      []domain.Block{},
					Connections: []domain.Connection{},
				}},
			}
			ws, ierr := storage.Init(abs, proj)
			if ierr != nil {
				c.l.Error("init workspace failed", slog.Any("err", ierr))
				dialog.ShowError(ierr, c.win)
				return
			}
			c.attachWorkspace(ws, abs)
		}, c.win)
		form.Resize(fyne.NewSize(420, 180))
		form.Show()
	}, c.win)
	fd.Show()
}

func (c *Controller) openWorkspaceDialog() {
	c.l.Info("menu: open workspace")
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			c.l.Error("open dialog error", slog.Any("err", err))
			return
		}
		if uri == nil {
			c.l.Info("open workspace canceled at folder selection")
			return
		}
		c.OpenWorkspace(uri.Path())
	}, c.win)
	fd.Show()
}

// OpenWorkspace loads the workspace at dir and moves the session to the
// builder panel. Errors surface in a dialog, not a log-only path.
func (c *Controller) OpenWorkspace(dir string) {
	abs, _ := filepath.Abs(dir)
	c.l.Info("open workspace", slog.String("root", abs))
	ws, err := storage.Open(abs)
	if err != nil {
		c.l.Error("open workspace failed", slog.Any("err", err))
		dialog.ShowError(err, c.win)
		return
	}
	c.attachWorkspace(ws, abs)
}

func (c *Controller) attachWorkspace(ws *storage.WorkspaceHandle, root string) {
	c.model.Workspace = ws
	c.model.OpenFirstNetwork()
	if c.win != nil {
		c.win.SetTitle(fmt.Sprintf("TensorBuilder — %s", ws.Project.Name))
	}
	c.status.SetText(fmt.Sprintf("Opened workspace: %s", root))
	c.canvas.SetNetwork(c.model.CurrentNetwork())
	if c.refreshNets != nil {
		c.refreshNets()
	}
	if c.refreshInspect != nil {
		c.refreshInspect()
	}
	if c.app != nil {
		addRecentWorkspace(c.app.Preferences(), root)
	}
	c.l.Info("workspace opened", slog.String("name", ws.Project.Name))

	// Workspace-local block definitions extend the catalog for this session.
	if c.model.Catalog != nil {
		if n, err := c.model.Catalog.MergeDir(filepath.Join(root, "blocks")); err != nil {
			c.l.Warn("workspace block definitions not loaded", slog.Any("err", err))
		} else if n > 0 {
			c.l.Info("workspace block definitions loaded", slog.Int("count", n))
			if c.refreshPalette != nil {
				c.refreshPalette()
			}
		}
	}

	// Warm the search index off the UI goroutine; first search should not
	// pay the build cost.
	if c.jobs != nil {
		proj := ws.Project
		if err := c.jobs.Submit("index-warmup", func(ctx context.Context) error {
			return storage.BuildIndexIfEmpty(ctx, root, proj)
		}); err != nil {
			c.l.Warn("index warmup not queued", slog.Any("err", err))
		}
		c.warmPreviews(root)
	}
	c.builderClicked()
}

// warmPreviews renders missing network thumbnails into the preview cache
// on the worker. The networks are snapshotted before the job is queued
// because the user may be editing them while it runs.
func (c *Controller) warmPreviews(root string) {
	cat := c.model.Catalog
	ws := c.model.Workspace
	if c.jobs == nil || cat == nil || ws == nil {
		return
	}
	snaps := make([][]byte, 0, len(ws.Project.Networks))
	for i := range ws.Project.Networks {
		if blob, err := json.Marshal(&ws.Project.Networks[i]); err == nil {
			snaps = append(snaps, blob)
		}
	}
	if len(snaps) == 0 {
		return
	}
	err := c.jobs.Submit("preview-warmup", func(ctx context.Context) error {
		for _, blob := range snaps {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var n domain.Network
			if err := json.Unmarshal(blob, &n); err != nil {
				continue
			}
			key := storage.PreviewKey{Network: n.Name, Kind: storage.PreviewKindThumb, W: thumbBoxW, H: thumbBoxH}
			_, err := storage.CachedPreview(ctx, root, key, func(context.Context) ([]byte, error) {
				return renderThumb(&n, cat, thumbBoxW, thumbBoxH)
			})
			if err != nil {
				c.l.Warn("thumbnail not cached", slog.String("network", n.Name), slog.Any("err", err))
			}
		}
		return nil
	})
	if err != nil {
		c.l.Warn("preview warmup not queued", slog.Any("err", err))
	}
}

const (
	thumbBoxW = 320
	thumbBoxH = 240
)

// renderThumb encodes a diagram PNG scaled down to fit a w by h box.
func renderThumb(n *domain.Network, cat *catalog.Catalog, w, h int) ([]byte, error) {
	opts := render.Options{Scale: 1}
	if g, err := render.NetworkGeometry(n, false); err == nil {
		const pad = 24
		fw := float32(w) / (g.Bounds.W + 2*pad)
		fh := float32(h) / (g.Bounds.H + 2*pad)
		if s := min(fw, fh); s < 1 {
			opts.Scale = s
		}
	}
	return render.EncodePNG(n, cat, opts)
}

func (c *Controller) saveWorkspace() {
	c.l.Info("menu: save")
	if c.model.Workspace == nil {
		dialog.ShowInformation("Save", "No workspace open.", c.win)
		return
	}
	if err := storage.Save(c.model.Workspace); err != nil {
		c.l.Error("save failed", slog.Any("err", err))
		dialog.ShowError(err, c.win)
		return
	}
	c.l.Info("save completed", slog.String("manifest", c.model.Workspace.ManifestPath))
	c.status.SetText("Saved workspace.")
}

// pushUndoSnapshot records the active network state before a mutation.
func (c *Controller) pushUndoSnapshot() {
	n := c.model.CurrentNetwork()
	if n == nil {
		return
	}
	blob, err := json.Marshal(n)
	if err != nil {
		c.l.Error("snapshot marshal failed", slog.Any("err", err))
		return
	}
	c.model.Undo.PushSnapshot(undo.Snapshot{Scope: n.Name, Blob: blob, TS: time.Now()})
}

// applyNetworkSnapshot restores the active network from an undo blob and
// persists the result.
func (c *Controller) applyNetworkSnapshot(blob []byte) error {
	if c.model.Workspace == nil {
		return fmt.Errorf("no workspace open")
	}
	var n domain.Network
	if err := json.Unmarshal(blob, &n); err != nil {
		return err
	}
	cur := c.model.Workspace.Project.NetworkByName(c.model.ActiveNetwork)
	if cur == nil {
		return fmt.Errorf("network %q no longer exists", c.model.ActiveNetwork)
	}
	*cur = n
	if err := storage.Save(c.model.Workspace); err != nil {
		return err
	}
	c.canvas.SetNetwork(cur)
	if c.refreshInspect != nil {
		c.refreshInspect()
	}
	return nil
}

func (c *Controller) undoEdit() {
	if c.model.Workspace == nil {
		dialog.ShowInformation("Undo", "No workspace open.", c.win)
		return
	}
	if s, ok := c.model.Undo.Undo(c.model.ActiveNetwork); ok {
		if err := c.applyNetworkSnapshot(s.Blob); err != nil {
			dialog.ShowError(err, c.win)
			return
		}
		c.status.SetText("Undid last action")
	} else {
		dialog.ShowInformation("Undo", "Nothing to undo.", c.win)
	}
}

func (c *Controller) redoEdit() {
	if c.model.Workspace == nil {
		dialog.ShowInformation("Redo", "No workspace open.", c.win)
		return
	}
	if s, ok := c.model.Undo.Redo(c.model.ActiveNetwork); ok {
		if err := c.applyNetworkSnapshot(s.Blob); err != nil {
			dialog.ShowError(err, c.win)
			return
		}
		c.status.SetText("Redid last action")
	} else {
		dialog.ShowInformation("Redo", "Nothing to redo.", c.win)
	}
}

func (c *Controller) showAbout() {
	c.l.Info("menu: about")
	exe, _ := os.Executable()
	cwd, _ := os.Getwd()
	info := fmt.Sprintf("TensorBuilder\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nWorking Dir: %s",
		version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, cwd)
	dialog.ShowInformation("About TensorBuilder", info, c.win)
}

// runSearch executes the header search box query against the workspace
// index and lists the hits; selecting one focuses its network and block.
func (c *Controller) runSearch(raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	if c.model.Workspace == nil {
		dialog.ShowInformation("Search", "No workspace open.", c.win)
		return
	}
	c.l.Info("search", slog.String("query", raw))
	c.status.SetText("Searching…")
	root := c.model.Workspace.Root
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := storage.Search(ctx, root, storage.ParseQuery(raw))
		fyne.Do(func() {
			if err != nil {
				c.l.Error("search failed", slog.Any("err", err))
				dialog.ShowError(err, c.win)
				c.status.SetText("Search failed.")
				return
			}
			c.status.SetText(fmt.Sprintf("%d results", len(res)))
			c.showSearchResults(res)
		})
	}()
}

func (c *Controller) showSearchResults(res []storage.SearchResult) {
	items := make([]string, len(res))
	for i, r := range res {
		net := r.Network
		if net == "" {
			net = "-"
		}
		sn := strings.TrimSpace(r.Snippet)
		if sn == "" {
			sn = r.Path
		}
		if len(sn) > 120 {
			sn = sn[:120] + "…"
		}
		items[i] = fmt.Sprintf("%s — %s — %s", net, r.Type, sn)
	}
	list := widget.NewList(
		func() int { return len(items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(items[i]) },
	)
	list.OnSelected = func(id widget.ListItemID) {
		if id < 0 || int(id) >= len(res) {
			return
		}
		r := res[id]
		if r.Network != "" {
			c.model.ActiveNetwork = r.Network
			c.canvas.SetNetwork(c.model.CurrentNetwork())
			if c.refreshNets != nil {
				c.refreshNets()
			}
			// Block rows carry "network:<name>/block:<id>" paths.
			for _, part := range strings.Split(r.Path, "/") {
				if strings.HasPrefix(part, "block:") {
					c.canvas.SelectBlock(strings.TrimPrefix(part, "block:"))
					if c.refreshInspect != nil {
						c.refreshInspect()
					}
					break
				}
			}
			c.builderClicked()
		}
	}
	d := dialog.NewCustom("Search Results", "Close", container.NewStack(list), c.win)
	d.Resize(fyne.NewSize(700, 400))
	d.Show()
}

// Recent workspace persistence for the home panel.
const recentPrefsKey = "recent.workspaces"
const recentMax = 10

func loadRecentWorkspaces(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	if items == nil {
		items = []string{}
	}
	// Filter out workspaces that no longer exist on disk.
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentWorkspaces(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentWorkspace(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentWorkspaces(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentWorkspaces(p, out)
}
