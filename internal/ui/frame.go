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
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// frame is the fixed widget tree of the main window: a menu bar spanning
// the top, the navigation column on the left and the content panel filling
// the rest. The builder populates a fresh value on every call; attaching a
// panel replaces the previous one, so repeated construction cannot leak
// widgets into the tree.
type frame struct {
	root fyne.CanvasObject

	menu      *fyne.MainMenu
	fileNew   *fyne.MenuItem
	fileOpen  *fyne.MenuItem
	fileSave  *fyne.MenuItem
	fileQuit  *fyne.MenuItem
	editUndo  *fyne.MenuItem
	editRedo  *fyne.MenuItem
	helpAbout *fyne.MenuItem

	nav        *fyne.Container
	navButtons []*navButton
	copyright  *canvas.Text

	search  *widget.Entry
	content *fyne.Container
}

// buildFrame constructs the window frame. Menu actions and nav callbacks
// are left unset; the view and controller wire them after construction.
func buildFrame() *frame {
	f := &frame{}

	f.fileNew = fyne.NewMenuItem("New Workspace…", nil)
	f.fileOpen = fyne.NewMenuItem("Open Workspace…", nil)
	f.fileSave = fyne.NewMenuItem("Save", nil)
	f.fileQuit = fyne.NewMenuItem("Quit", nil)
	f.editUndo = fyne.NewMenuItem("Undo", nil)
	f.editRedo = fyne.NewMenuItem("Redo", nil)
	f.helpAbout = fyne.NewMenuItem("About TensorBuilder", nil)
	f.menu = fyne.NewMainMenu(
		fyne.NewMenu("File", f.fileNew, f.fileOpen, f.fileSave, fyne.NewMenuItemSeparator(), f.fileQuit),
		fyne.NewMenu("Edit", f.editUndo, f.editRedo),
		fyne.NewMenu("Help", f.helpAbout),
	)

	for _, name := range []string{"Home", "Builder", "Configuration", "Help"} {
		f.navButtons = append(f.navButtons, newNavButton(name, nil))
	}
	f.copyright = canvas.NewText("© 2025 Julian_Orteil", copyrightGray)
	navItems := make([]fyne.CanvasObject, 0, len(f.navButtons)+2)
	for _, b := range f.navButtons {
		navItems = append(navItems, b)
	}
	navItems = append(navItems, layout.NewSpacer(), f.copyright)
	f.nav = container.NewVBox(navItems...)

	f.search = widget.NewEntry()
	f.search.SetPlaceHolder("Search networks and blocks")
	underline := searchUnderline()
	underline.SetMinSize(fyne.NewSize(0, 1))
	header := container.NewVBox(f.search, underline)

	f.content = container.NewStack()
	main := container.NewStack(
		contentCard(),
		container.NewPadded(container.NewBorder(header, nil, nil, nil, f.content)),
	)

	f.root = container.NewStack(
		shellGradient(),
		container.NewBorder(nil, nil, container.NewPadded(f.nav), nil, main),
	)
	return f
}

// setPanel swaps the active content panel.
func (f *frame) setPanel(obj fyne.CanvasObject) {
	f.content.Objects = []fyne.CanvasObject{obj}
	f.content.Refresh()
}
