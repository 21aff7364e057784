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
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// navButton is a flat navigation control: transparent at rest, a rounded
// translucent highlight when hovered, a stronger one while pressed. Text is
// left-aligned with a wide leading inset, matching the original sidebar.
type navButton struct {
	widget.BaseWidget

	label    string
	onTapped func()

	hovered bool
	pressed bool
}

func newNavButton(label string, onTapped func()) *navButton {
	b := &navButton{label: label, onTapped: onTapped}
	b.ExtendBaseWidget(b)
	return b
}

func (b *navButton) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.Transparent)
	bg.CornerRadius = navHoverRadius
	text := canvas.NewText(b.label, navTextColor)
	return &navButtonRenderer{b: b, bg: bg, text: text, objects: []fyne.CanvasObject{bg, text}}
}

// Tapped notifies the registered callback once per activation.
func (b *navButton) Tapped(_ *fyne.PointEvent) {
	if b.onTapped != nil {
		b.onTapped()
	}
}

func (b *navButton) MouseIn(_ *desktop.MouseEvent) {
	b.hovered = true
	b.Refresh()
}

func (b *navButton) MouseMoved(_ *desktop.MouseEvent) {}

func (b *navButton) MouseOut() {
	b.hovered = false
	b.pressed = false
	b.Refresh()
}

func (b *navButton) MouseDown(_ *desktop.MouseEvent) {
	b.pressed = true
	b.Refresh()
}

func (b *navButton) MouseUp(_ *desktop.MouseEvent) {
	b.pressed = false
	b.Refresh()
}

func (b *navButton) Cursor() desktop.Cursor { return desktop.PointerCursor }

type navButtonRenderer struct {
	b       *navButton
	bg      *canvas.Rectangle
	text    *canvas.Text
	objects []fyne.CanvasObject
}

func (r *navButtonRenderer) Destroy()                     {}
func (r *navButtonRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *navButtonRenderer) MinSize() fyne.Size {
	ts := r.text.MinSize()
	return fyne.NewSize(ts.Width+navPadLeft, ts.Height+2*navPadV)
}

func (r *navButtonRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	ts := r.text.MinSize()
	r.text.Resize(ts)
	r.text.Move(fyne.NewPos(navPadLeft, (size.Height-ts.Height)/2))
}

func (r *navButtonRenderer) Refresh() {
	switch {
	case r.b.pressed:
		r.bg.FillColor = navPressedFill
	case r.b.hovered:
		r.bg.FillColor = navHoverFill
	default:
		r.bg.FillColor = color.Transparent
	}
	r.bg.Refresh()
	r.text.Text = r.b.label
	r.text.Refresh()
}
