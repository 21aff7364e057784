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
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/config"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/export"
	"github.com/JulianOrteil/TensorBuilder/internal/graph"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/vector"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

// buildHomePanel is the landing view: workspace shortcuts and the recent
// workspaces list kept in the app preferences.
func (c *Controller) buildHomePanel() fyne.CanvasObject {
	title := widget.NewLabel("TensorBuilder")
	title.TextStyle = fyne.TextStyle{Bold: true}
	tagline := widget.NewLabel("Neural network building made exceptionally easy.")

	newBtn := widget.NewButton("New Workspace…", c.newWorkspace)
	openBtn := widget.NewButton("Open Workspace…", c.openWorkspaceDialog)

	recent := []string{}
	recList := widget.NewList(
		func() int { return len(recent) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(recent) {
				o.(*widget.Label).SetText(recent[i])
			} else {
				o.(*widget.Label).SetText("")
			}
		},
	)
	recList.OnSelected = func(id widget.ListItemID) {
		if id < 0 || int(id) >= len(recent) {
			return
		}
		path := recent[id]
		recList.UnselectAll()
		c.OpenWorkspace(path)
	}
	c.refreshRecents = func() {
		if c.app == nil {
			return
		}
		recent = loadRecentWorkspaces(c.app.Preferences())
		recList.Refresh()
	}
	c.refreshRecents()

	header := widget.NewLabel("Recent Workspaces")
	return container.NewBorder(
		container.NewVBox(title, tagline, widget.NewSeparator(), container.NewHBox(newBtn, openBtn)),
		nil, nil, nil,
		container.NewBorder(header, nil, nil, nil, recList),
	)
}

// buildBuilderPanel assembles the editor: block palette on the left, the
// network canvas in the middle, the inspector on the right and the network
// toolbar across the top.
func (c *Controller) buildBuilderPanel() fyne.CanvasObject {
	// --- palette (left) ---
	paletteTypes := []string{}
	paletteFilter := ""
	rebuildPaletteTypes := func() {
		paletteTypes = paletteTypes[:0]
		cat := c.model.Catalog
		if cat == nil {
			return
		}
		if strings.TrimSpace(paletteFilter) == "" {
			for _, s := range cat.All() {
				paletteTypes = append(paletteTypes, s.Type)
			}
			return
		}
		for _, s := range cat.Search(paletteFilter) {
			paletteTypes = append(paletteTypes, s.Type)
		}
	}
	paletteList := widget.NewList(
		func() int { return len(paletteTypes) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i < 0 || int(i) >= len(paletteTypes) {
				return
			}
			t := paletteTypes[i]
			name := t
			if cat := c.model.Catalog; cat != nil {
				if spec, ok := cat.Lookup(t); ok && spec.DisplayName != "" {
					name = spec.DisplayName
				}
			}
			o.(*widget.Label).SetText(name)
		},
	)
	paletteList.OnSelected = func(id widget.ListItemID) {
		paletteList.UnselectAll()
		if id < 0 || int(id) >= len(paletteTypes) {
			return
		}
		c.addBlockOfType(paletteTypes[id])
	}
	paletteSearch := widget.NewEntry()
	paletteSearch.SetPlaceHolder("Filter blocks")
	paletteSearch.OnChanged = func(s string) {
		paletteFilter = s
		rebuildPaletteTypes()
		paletteList.Refresh()
	}
	c.refreshPalette = func() {
		rebuildPaletteTypes()
		paletteList.Refresh()
	}
	c.refreshPalette()
	palette := container.NewBorder(
		container.NewVBox(widget.NewLabel("Blocks"), paletteSearch),
		nil, nil, nil, paletteList,
	)

	// --- toolbar (top) ---
	netSelect := widget.NewSelect([]string{}, nil)
	netSelect.PlaceHolder = "(no workspace)"
	netSelect.OnChanged = func(name string) {
		if name == "" || name == c.model.ActiveNetwork {
			return
		}
		c.model.ActiveNetwork = name
		c.canvas.SetNetwork(c.model.CurrentNetwork())
		c.refreshInspect()
	}
	c.refreshNets = func() {
		names := []string{}
		if c.model.Workspace != nil {
			for _, n := range c.model.Workspace.Project.Networks {
				names = append(names, n.Name)
			}
		}
		netSelect.Options = names
		netSelect.SetSelected(c.model.ActiveNetwork)
		netSelect.Refresh()
	}
	addNetBtn := widget.NewButton("Add Network…", c.addNetworkDialog)
	renameNetBtn := widget.NewButton("Rename…", c.renameNetworkDialog)
	undoBtn := widget.NewButton("Undo", c.undoEdit)
	redoBtn := widget.NewButton("Redo", c.redoEdit)
	layoutBtn := widget.NewButton("Auto-Layout", c.autoLayout)
	validateBtn := widget.NewButton("Validate", c.validateNetwork)
	generateBtn := widget.NewButton("Generate Code", c.generateCode)
	toolbar := container.NewHBox(
		widget.NewLabel("Network"), netSelect, addNetBtn, renameNetBtn,
		widget.NewSeparator(), undoBtn, redoBtn,
		widget.NewSeparator(), layoutBtn, validateBtn, generateBtn,
	)

	// --- inspector (right) ---
	inspector := c.buildInspector()

	c.canvas.OnSelect = func(string) { c.refreshInspect() }
	c.canvas.OnMove = func(id string, x, y float64) {
		ws := c.model.Workspace
		if ws == nil {
			return
		}
		// The drag already moved the block in memory, so a pre-drag undo
		// snapshot is out of reach here. Write the final position through
		// the storage helper and persist it; undo still works edit-to-edit.
		if err := storage.SetBlockPosition(ws, c.model.ActiveNetwork, id, x, y); err != nil {
			c.l.Error("move failed", slog.Any("err", err))
			dialog.ShowError(err, c.win)
			return
		}
		if err := storage.Save(ws); err != nil {
			c.l.Error("save after move failed", slog.Any("err", err))
			dialog.ShowError(err, c.win)
			return
		}
		c.status.SetText(fmt.Sprintf("Moved %s to (%.0f, %.0f)", id, x, y))
	}

	c.refreshNets()
	c.refreshInspect()

	center := container.NewBorder(toolbar, c.status, nil, nil, c.canvas)
	split := container.NewHSplit(center, inspector)
	split.SetOffset(0.75)
	outer := container.NewHSplit(palette, split)
	outer.SetOffset(0.18)
	return outer
}

// buildInspector renders the selected block's identity, parameters and
// connections. Apply pushes an undo snapshot, mutates and saves.
func (c *Controller) buildInspector() fyne.CanvasObject {
	heading := widget.NewLabel("Inspector")
	heading.TextStyle = fyne.TextStyle{Bold: true}
	blockInfo := widget.NewLabel("No block selected.")
	blockInfo.Wrapping = fyne.TextWrapWord

	idEntry := widget.NewEntry()
	idEntry.SetPlaceHolder("Block ID")
	labelEntry := widget.NewEntry()
	labelEntry.SetPlaceHolder("Label")
	notesEntry := widget.NewMultiLineEntry()
	notesEntry.SetPlaceHolder("Notes")
	notesEntry.SetMinRowsVisible(3)

	// Parameter editors are rebuilt per selection.
	paramsBox := container.NewVBox()
	type paramEditor struct {
		spec catalog.ParamSpec
		get  func() (any, error)
	}
	var editors []paramEditor

	rebuildParams := func(b *domain.Block) {
		paramsBox.Objects = nil
		editors = nil
		if b == nil || c.model.Catalog == nil {
			paramsBox.Refresh()
			return
		}
		spec, ok := c.model.Catalog.Lookup(b.Type)
		if !ok {
			paramsBox.Refresh()
			return
		}
		for _, ps := range spec.Params {
			ps := ps
			cur, has := b.Params[ps.Name]
			switch ps.Kind {
			case catalog.ParamBool:
				chk := widget.NewCheck(ps.Name, nil)
				if has {
					if v, ok := cur.(bool); ok {
						chk.SetChecked(v)
					}
				} else if v, ok := ps.Default.(bool); ok {
					chk.SetChecked(v)
				}
				paramsBox.Add(chk)
				editors = append(editors, paramEditor{spec: ps, get: func() (any, error) { return chk.Checked, nil }})
			case catalog.ParamEnum:
				sel := widget.NewSelect(ps.Choices, nil)
				if has {
					sel.SetSelected(fmt.Sprintf("%v", cur))
				} else if ps.Default != nil {
					sel.SetSelected(fmt.Sprintf("%v", ps.Default))
				}
				paramsBox.Add(widget.NewLabel(ps.Name))
				paramsBox.Add(sel)
				editors = append(editors, paramEditor{spec: ps, get: func() (any, error) {
					if sel.Selected == "" {
						return nil, fmt.Errorf("%s: choose a value", ps.Name)
					}
					return sel.Selected, nil
				}})
			default:
				ent := widget.NewEntry()
				if has {
					ent.SetText(paramText(cur))
				} else if ps.Default != nil {
					ent.SetText(paramText(ps.Default))
				}
				paramsBox.Add(widget.NewLabel(ps.Name))
				paramsBox.Add(ent)
				editors = append(editors, paramEditor{spec: ps, get: func() (any, error) {
					return parseParamValue(ps, ent.Text)
				}})
			}
		}
		paramsBox.Refresh()
	}

	// Connections of the selected block, tap to disconnect.
	connRows := []domain.Connection{}
	connList := widget.NewList(
		func() int { return len(connRows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(connRows) {
				cn := connRows[i]
				o.(*widget.Label).SetText(fmt.Sprintf("%s → %s", cn.From, cn.To))
			}
		},
	)
	connList.OnSelected = func(id widget.ListItemID) {
		connList.UnselectAll()
		if id < 0 || int(id) >= len(connRows) {
			return
		}
		cn := connRows[id]
		dialog.ShowConfirm("Disconnect", fmt.Sprintf("Remove %s → %s?", cn.From, cn.To), func(ok bool) {
			if !ok {
				return
			}
			c.mutateNetwork("disconnect", func(ws *storage.WorkspaceHandle) error {
				return storage.Disconnect(ws, c.model.ActiveNetwork, cn.From, cn.To)
			})
		}, c.win)
	}

	connTarget := widget.NewSelect([]string{}, nil)
	connTarget.PlaceHolder = "(block)"
	connectBtn := widget.NewButton("Connect →", func() {
		sel := c.canvas.Selected()
		if sel == "" || connTarget.Selected == "" {
			return
		}
		to := connTarget.Selected
		c.mutateNetwork("connect", func(ws *storage.WorkspaceHandle) error {
			return storage.Connect(ws, c.model.ActiveNetwork, sel, to)
		})
	})

	applyBtn := widget.NewButton("Apply", func() {
		sel := c.canvas.Selected()
		n := c.model.CurrentNetwork()
		if sel == "" || n == nil {
			return
		}
		params := map[string]any{}
		for _, ed := range editors {
			v, err := ed.get()
			if err != nil {
				dialog.ShowError(err, c.win)
				return
			}
			if v != nil {
				params[ed.spec.Name] = v
			}
		}
		// An emptied ID field keeps the current ID; a changed one renames
		// the block and rewrites its connection endpoints.
		newID := strings.TrimSpace(idEntry.Text)
		c.mutateNetwork("edit block", func(ws *storage.WorkspaceHandle) error {
			if err := storage.UpdateBlockMeta(ws, c.model.ActiveNetwork, sel, newID,
				strings.TrimSpace(labelEntry.Text), notesEntry.Text); err != nil {
				return err
			}
			id := sel
			if newID != "" {
				id = newID
			}
			b := n.BlockByID(id)
			if b == nil {
				return fmt.Errorf("block %s not found", id)
			}
			b.Params = params
			return nil
		})
		if newID != "" && newID != sel && n.BlockByID(newID) != nil {
			c.canvas.SelectBlock(newID)
			c.refreshInspect()
		}
	})

	deleteBtn := widget.NewButton("Delete Block", func() {
		sel := c.canvas.Selected()
		if sel == "" {
			return
		}
		dialog.ShowConfirm("Delete Block", fmt.Sprintf("Delete %s and its connections?", sel), func(ok bool) {
			if !ok {
				return
			}
			c.mutateNetwork("delete block", func(ws *storage.WorkspaceHandle) error {
				return storage.RemoveBlock(ws, c.model.ActiveNetwork, sel)
			})
			c.canvas.SelectBlock("")
		}, c.win)
	})

	shapeLabel := widget.NewLabel("")
	shapeLabel.Wrapping = fyne.TextWrapWord

	c.refreshInspect = func() {
		n := c.model.CurrentNetwork()
		sel := ""
		var b *domain.Block
		if n != nil {
			sel = c.canvas.Selected()
			b = n.BlockByID(sel)
		}
		if b == nil {
			blockInfo.SetText("No block selected.")
			idEntry.SetText("")
			labelEntry.SetText("")
			notesEntry.SetText("")
			rebuildParams(nil)
			connRows = connRows[:0]
			connList.Refresh()
			connTarget.Options = nil
			connTarget.Refresh()
			shapeLabel.SetText("")
			return
		}
		blockInfo.SetText(fmt.Sprintf("%s (%s)", b.ID, b.Type))
		idEntry.SetText(b.ID)
		labelEntry.SetText(b.Label)
		notesEntry.SetText(b.Notes)
		rebuildParams(b)

		connRows = connRows[:0]
		for _, cn := range n.Connections {
			if cn.From == b.ID || cn.To == b.ID {
				connRows = append(connRows, cn)
			}
		}
		connList.Refresh()

		targets := []string{}
		for _, other := range n.Blocks {
			if other.ID != b.ID {
				targets = append(targets, other.ID)
			}
		}
		connTarget.Options = targets
		connTarget.Refresh()

		if c.model.Catalog != nil {
			shapes, issues := graph.InferShapes(n, c.model.Catalog)
			if s, ok := shapes[b.ID]; ok {
				shapeLabel.SetText("Output shape: " + formatShapeList(s))
			} else if len(issues) > 0 {
				shapeLabel.SetText("Shape unavailable: " + issues[0].String())
			} else {
				shapeLabel.SetText("")
			}
		}
	}

	form := container.NewVBox(
		heading, blockInfo, widget.NewSeparator(),
		widget.NewLabel("ID"), idEntry,
		widget.NewLabel("Label"), labelEntry,
		widget.NewLabel("Notes"), notesEntry,
		widget.NewSeparator(), widget.NewLabel("Parameters"), paramsBox,
		applyBtn, deleteBtn, shapeLabel,
	)
	connHeader := container.NewVBox(
		widget.NewLabel("Connections"),
		container.NewHBox(connTarget, connectBtn),
	)
	split := container.NewVSplit(
		container.NewVScroll(form),
		container.NewBorder(connHeader, nil, nil, nil, connList),
	)
	split.SetOffset(0.65)
	return split
}

// mutateNetwork wraps an edit: undo snapshot first, then the mutation,
// then a save and a refresh. Any failure surfaces in a dialog.
func (c *Controller) mutateNetwork(what string, fn func(ws *storage.WorkspaceHandle) error) {
	ws := c.model.Workspace
	if ws == nil {
		dialog.ShowInformation("Builder", "No workspace open.", c.win)
		return
	}
	c.pushUndoSnapshot()
	if err := fn(ws); err != nil {
		c.l.Error(what+" failed", slog.Any("err", err))
		dialog.ShowError(err, c.win)
		return
	}
	if err := storage.Save(ws); err != nil {
		c.l.Error("save failed", slog.Any("err", err))
		dialog.ShowError(err, c.win)
		return
	}
	c.canvas.SetNetwork(c.model.CurrentNetwork())
	c.refreshInspect()
	c.status.SetText(strings.ToUpper(what[:1]) + what[1:] + " done.")
}

// addBlockOfType drops a new block of the given type onto the canvas with
// the catalog defaults, cascading placement until the user drags it.
func (c *Controller) addBlockOfType(typeName string) {
	ws := c.model.Workspace
	if ws == nil {
		dialog.ShowInformation("Builder", "No workspace open.", c.win)
		return
	}
	n := c.model.CurrentNetwork()
	if n == nil {
		dialog.ShowInformation("Builder", "No network selected.", c.win)
		return
	}
	var params map[string]any
	if c.model.Catalog != nil {
		params = c.model.Catalog.DefaultParams(typeName)
	}
	step := float64(24 * (len(n.Blocks)%10 + 1))
	blk := domain.Block{
		Type:     typeName,
		Params:   params,
		Position: domain.Point{X: step, Y: step},
	}
	var added domain.Block
	c.mutateNetwork("add block", func(ws *storage.WorkspaceHandle) error {
		var err error
		added, err = storage.AddBlock(ws, c.model.ActiveNetwork, blk)
		return err
	})
	if added.ID != "" {
		c.canvas.SelectBlock(added.ID)
		c.refreshInspect()
	}
}

func (c *Controller) addNetworkDialog() {
	if c.model.Workspace == nil {
		dialog.ShowInformation("Builder", "No workspace open.", c.win)
		return
	}
	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("Network Name")
	form := dialog.NewForm("Add Network", "Create", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Name", nameEntry),
	}, func(ok bool) {
		if !ok {
			return
		}
		name := strings.TrimSpace(nameEntry.Text)
		if name == "" {
			return
		}
		c.mutateNetwork("add network", func(ws *storage.WorkspaceHandle) error {
			_, err := storage.EnsureNetwork(ws, name)
			return err
		})
		c.model.ActiveNetwork = name
		c.canvas.SetNetwork(c.model.CurrentNetwork())
		if c.refreshNets != nil {
			c.refreshNets()
		}
	}, c.win)
	form.Resize(fyne.NewSize(420, 140))
	form.Show()
}

func (c *Controller) renameNetworkDialog() {
	ws := c.model.Workspace
	if ws == nil || c.model.CurrentNetwork() == nil {
		dialog.ShowInformation("Builder", "No network selected.", c.win)
		return
	}
	oldName := c.model.ActiveNetwork
	nameEntry := widget.NewEntry()
	nameEntry.SetText(oldName)
	form := dialog.NewForm("Rename Network", "Rename", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Name", nameEntry),
	}, func(ok bool) {
		if !ok {
			return
		}
		newName := strings.TrimSpace(nameEntry.Text)
		if newName == "" || newName == oldName {
			return
		}
		c.mutateNetwork("rename network", func(ws *storage.WorkspaceHandle) error {
			return storage.RenameNetwork(ws, oldName, newName)
		})
		if ws.Project.NetworkByName(newName) == nil {
			return
		}
		c.model.ActiveNetwork = newName
		c.canvas.SetNetwork(c.model.CurrentNetwork())
		if c.refreshNets != nil {
			c.refreshNets()
		}
		// Cached previews are keyed by name and now point at nothing.
		if err := storage.DropNetworkPreviews(context.Background(), ws.Root, oldName); err != nil {
			c.l.Warn("stale previews kept", slog.Any("err", err))
		}
	}, c.win)
	form.Resize(fyne.NewSize(420, 140))
	form.Show()
}

// autoLayout recomputes every block position from the dependency order.
func (c *Controller) autoLayout() {
	n := c.model.CurrentNetwork()
	if n == nil {
		dialog.ShowInformation("Builder", "No network selected.", c.win)
		return
	}
	c.mutateNetwork("auto-layout", func(ws *storage.WorkspaceHandle) error {
		order, err := graph.TopoOrder(n)
		if err != nil {
			return err
		}
		pos := vector.AutoLayout(vector.LayoutGraph{
			Order: order,
			Preds: graph.Predecessors(n),
		}, vector.LayoutOptions{})
		for id, p := range pos {
			if b := n.BlockByID(id); b != nil {
				b.Position.X = float64(p.X)
				b.Position.Y = float64(p.Y)
			}
		}
		return nil
	})
}

func (c *Controller) validateNetwork() {
	n := c.model.CurrentNetwork()
	if n == nil {
		dialog.ShowInformation("Validate", "No network selected.", c.win)
		return
	}
	issues := graph.Validate(n, c.model.Catalog)
	if c.model.Catalog != nil && len(issues) == 0 {
		_, shapeIssues := graph.InferShapes(n, c.model.Catalog)
		issues = append(issues, shapeIssues...)
	}
	if len(issues) == 0 {
		dialog.ShowInformation("Validate", "No problems found.", c.win)
		c.status.SetText("Validation passed.")
		return
	}
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	dialog.ShowInformation("Validate", strings.Join(lines, "\n"), c.win)
	c.status.SetText(fmt.Sprintf("%d validation issue(s).", len(issues)))
}

// generateCode runs the code preset for the active network on the worker
// so a slow disk never blocks the UI goroutine.
func (c *Controller) generateCode() {
	ws := c.model.Workspace
	n := c.model.CurrentNetwork()
	if ws == nil || n == nil {
		dialog.ShowInformation("Generate Code", "No network selected.", c.win)
		return
	}
	if c.jobs == nil {
		dialog.ShowInformation("Generate Code", "Background worker unavailable.", c.win)
		return
	}
	name := n.Name
	cat := c.model.Catalog
	c.status.SetText("Generating code…")
	err := c.jobs.Submit("generate-code", func(ctx context.Context) error {
		err := export.BatchExport(ws, cat, export.BatchOptions{
			Preset:   export.PresetCode,
			Networks: []string{name},
		})
		fyne.Do(func() {
			if err != nil {
				c.status.SetText("Code generation failed.")
				dialog.ShowError(err, c.win)
				return
			}
			c.status.SetText("Code written to exports/code/.")
			dialog.ShowInformation("Generate Code", "Sources written under exports/code/.", c.win)
		})
		return err
	})
	if err != nil {
		c.l.Error("generate not queued", slog.Any("err", err))
		dialog.ShowError(err, c.win)
	}
}

// buildConfigurationPanel edits the user config file and the registry
// token in the OS keyring.
func (c *Controller) buildConfigurationPanel() fyne.CanvasObject {
	cfg, token, err := config.Load()
	if err != nil {
		c.l.Error("config load failed", slog.Any("err", err))
		cfg = config.Defaults()
	}

	themeSel := widget.NewSelect([]string{"system", "light", "dark"}, nil)
	themeSel.SetSelected(cfg.General.Theme)
	telemetryChk := widget.NewCheck("Send anonymous usage events (opt-in)", nil)
	telemetryChk.SetChecked(cfg.General.TelemetryOptIn)

	snapChk := widget.NewCheck("Snap blocks to grid", nil)
	snapChk.SetChecked(cfg.Builder.SnapToGrid)
	gridEntry := widget.NewEntry()
	gridEntry.SetText(strconv.Itoa(cfg.Builder.GridStep))
	autosaveEntry := widget.NewEntry()
	autosaveEntry.SetText(strconv.Itoa(cfg.Builder.AutosaveSec))
	targetSel := widget.NewSelect([]string{domain.TargetTensorFlow, domain.TargetPyTorch}, nil)
	targetSel.SetSelected(cfg.Builder.DefaultTarget)

	registryChk := widget.NewCheck("Enable shared registry", nil)
	registryChk.SetChecked(cfg.General.EnableRegistry)
	urlEntry := widget.NewEntry()
	urlEntry.SetText(cfg.Registry.BaseURL)
	urlEntry.SetPlaceHolder("https://registry.example.com")
	tokenEntry := widget.NewPasswordEntry()
	tokenEntry.SetText(token)
	tokenEntry.SetPlaceHolder("Registry token (stored in the OS keychain)")

	levelSel := widget.NewSelect([]string{"debug", "info", "warn", "error"}, nil)
	levelSel.SetSelected(cfg.Logging.Level)
	formatSel := widget.NewSelect([]string{"console", "json"}, nil)
	formatSel.SetSelected(cfg.Logging.Format)

	saveBtn := widget.NewButton("Save Configuration", func() {
		gs, err := strconv.Atoi(strings.TrimSpace(gridEntry.Text))
		if err != nil || gs <= 0 {
			dialog.ShowError(fmt.Errorf("grid step must be a positive integer"), c.win)
			return
		}
		as, err := strconv.Atoi(strings.TrimSpace(autosaveEntry.Text))
		if err != nil || as < 0 {
			dialog.ShowError(fmt.Errorf("autosave seconds must be zero or more"), c.win)
			return
		}
		cfg.General.Theme = themeSel.Selected
		cfg.General.TelemetryOptIn = telemetryChk.Checked
		cfg.General.EnableRegistry = registryChk.Checked
		cfg.Builder.SnapToGrid = snapChk.Checked
		cfg.Builder.GridStep = gs
		cfg.Builder.AutosaveSec = as
		cfg.Builder.DefaultTarget = targetSel.Selected
		cfg.Registry.BaseURL = strings.TrimSpace(urlEntry.Text)
		cfg.Logging.Level = levelSel.Selected
		cfg.Logging.Format = formatSel.Selected
		if err := config.Save(cfg, strings.TrimSpace(tokenEntry.Text)); err != nil {
			c.l.Error("config save failed", slog.Any("err", err))
			dialog.ShowError(err, c.win)
			return
		}
		c.applyBuilderConfig(cfg)
		c.status.SetText("Configuration saved.")
		dialog.ShowInformation("Configuration", "Saved. Some settings apply on restart.", c.win)
	})
	clearTokenBtn := widget.NewButton("Clear Token", func() {
		if err := config.ClearToken(); err != nil {
			dialog.ShowError(err, c.win)
			return
		}
		tokenEntry.SetText("")
		c.status.SetText("Registry token cleared.")
	})

	c.applyBuilderConfig(cfg)

	form := container.NewVBox(
		widget.NewLabelWithStyle("General", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Theme"), themeSel,
		telemetryChk,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Builder", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		snapChk,
		widget.NewLabel("Grid step"), gridEntry,
		widget.NewLabel("Autosave interval (seconds, 0 disables)"), autosaveEntry,
		widget.NewLabel("Default target"), targetSel,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Registry", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		registryChk,
		widget.NewLabel("Base URL"), urlEntry,
		widget.NewLabel("Token"), tokenEntry,
		clearTokenBtn,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Logging", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Level"), levelSel,
		widget.NewLabel("Format"), formatSel,
		widget.NewSeparator(),
		saveBtn,
	)
	return container.NewVScroll(form)
}

// applyBuilderConfig pushes canvas-affecting settings to the widget.
func (c *Controller) applyBuilderConfig(cfg config.AppConfig) {
	if cfg.Builder.SnapToGrid && cfg.Builder.GridStep > 0 {
		c.canvas.SetGridStep(float32(cfg.Builder.GridStep))
	} else {
		c.canvas.SetGridStep(0)
	}
}

// buildHelpPanel lists the keyboard-free workflow and version details.
func (c *Controller) buildHelpPanel() fyne.CanvasObject {
	heading := widget.NewLabelWithStyle("Help", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	usage := widget.NewLabel(strings.Join([]string{
		"Getting started:",
		"  1. Create or open a workspace from the Home panel.",
		"  2. Tap a palette entry to drop that block onto the canvas.",
		"  3. Drag blocks to arrange them; edges snap to neighbors and the grid.",
		"  4. Select a block to edit its parameters in the inspector.",
		"  5. Use Connect to wire the selected block to another one.",
		"  6. Validate, then Generate Code to emit Keras or PyTorch sources.",
		"",
		"Search accepts type:, net: and block: filters plus free text,",
		"for example: type:block net:mnist relu",
	}, "\n"))
	usage.Wrapping = fyne.TextWrapWord

	about := widget.NewLabel(version.String())
	copyright := widget.NewLabel("Copyright © 2025 Julian_Orteil\nLicensed under the Apache License, Version 2.0.")

	return container.NewVScroll(container.NewVBox(
		heading, usage, widget.NewSeparator(),
		widget.NewLabelWithStyle("About", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		about, copyright,
	))
}

// paramText renders a stored parameter value for an entry widget.
func paramText(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = fmt.Sprintf("%v", e)
		}
		return strings.Join(parts, ",")
	case []int:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = strconv.Itoa(e)
		}
		return strings.Join(parts, ",")
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseParamValue converts entry text back to the parameter's kind.
// Empty text yields nil so the catalog default applies.
func parseParamValue(ps catalog.ParamSpec, text string) (any, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, nil
	}
	switch ps.Kind {
	case catalog.ParamInt:
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", ps.Name, s)
		}
		if ps.Min != nil && float64(v) < *ps.Min {
			return nil, fmt.Errorf("%s: %d is below the minimum %g", ps.Name, v, *ps.Min)
		}
		if ps.Max != nil && float64(v) > *ps.Max {
			return nil, fmt.Errorf("%s: %d is above the maximum %g", ps.Name, v, *ps.Max)
		}
		return v, nil
	case catalog.ParamFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", ps.Name, s)
		}
		if ps.Min != nil && v < *ps.Min {
			return nil, fmt.Errorf("%s: %g is below the minimum %g", ps.Name, v, *ps.Min)
		}
		if ps.Max != nil && v > *ps.Max {
			return nil, fmt.Errorf("%s: %g is above the maximum %g", ps.Name, v, *ps.Max)
		}
		return v, nil
	case catalog.ParamShape:
		parts := strings.Split(s, ",")
		out := make([]int, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a comma-separated int list", ps.Name, s)
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return s, nil
	}
}

func formatShapeList(s []int) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
