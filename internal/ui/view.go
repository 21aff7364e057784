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

import "fyne.io/fyne/v2"

// View wraps the built frame and manages what the window displays. Nav
// activations are forwarded to observers registered through the On*
// methods; each activation notifies every observer exactly once, in
// registration order, on the calling goroutine.
//
// The window may be nil (headless tests construct the view without one);
// Show and Close still track the hidden/shown state.
type View struct {
	frame *frame
	win   fyne.Window
	shown bool

	onHome          []func()
	onBuilder       []func()
	onConfiguration []func()
	onHelp          []func()
}

// NewView builds a fresh frame and wires its nav controls to the
// notification fan-out.
func NewView(win fyne.Window) *View {
	v := &View{frame: buildFrame(), win: win}
	v.frame.navButtons[0].onTapped = v.notifyHome
	v.frame.navButtons[1].onTapped = v.notifyBuilder
	v.frame.navButtons[2].onTapped = v.notifyConfiguration
	v.frame.navButtons[3].onTapped = v.notifyHelp
	return v
}

// OnHome registers an observer for the Home nav control.
func (v *View) OnHome(fn func()) { v.onHome = append(v.onHome, fn) }

// OnBuilder registers an observer for the Builder nav control.
func (v *View) OnBuilder(fn func()) { v.onBuilder = append(v.onBuilder, fn) }

// OnConfiguration registers an observer for the Configuration nav control.
func (v *View) OnConfiguration(fn func()) { v.onConfiguration = append(v.onConfiguration, fn) }

// OnHelp registers an observer for the Help nav control.
func (v *View) OnHelp(fn func()) { v.onHelp = append(v.onHelp, fn) }

func (v *View) notifyHome() {
	for _, fn := range v.onHome {
		fn()
	}
}

func (v *View) notifyBuilder() {
	for _, fn := range v.onBuilder {
		fn()
	}
}

func (v *View) notifyConfiguration() {
	for _, fn := range v.onConfiguration {
		fn()
	}
}

func (v *View) notifyHelp() {
	for _, fn := range v.onHelp {
		fn()
	}
}

// Show attaches the frame to the window and makes it visible.
func (v *View) Show() {
	if v.shown {
		return
	}
	v.shown = true
	if v.win != nil {
		v.win.SetMainMenu(v.frame.menu)
		v.win.SetContent(v.frame.root)
		v.win.Show()
	}
}

// Close hides the window. Calling it before Show is a harmless no-op.
func (v *View) Close() {
	if !v.shown {
		return
	}
	v.shown = false
	if v.win != nil {
		v.win.Hide()
	}
}

// Shown reports whether the view is currently displayed.
func (v *View) Shown() bool { return v.shown }

// SetPanel swaps the main content panel.
func (v *View) SetPanel(obj fyne.CanvasObject) { v.frame.setPanel(obj) }
