//go:build fyne

/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based UI components. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
//
// Ensure you have the Fyne dependencies installed and a working OS driver.
package ui

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/render"
	"github.com/JulianOrteil/TensorBuilder/internal/vector"
)

func almostEqual(a, b, eps float32) bool {
	if a > b {
		return a-b <= eps
	}
	return b-a <= eps
}

func TestBuildFrame_Census(t *testing.T) {
	f := buildFrame()

	if f.menu == nil || len(f.menu.Items) != 3 {
		t.Fatalf("expected one menu bar with 3 menus, got %+v", f.menu)
	}
	menus := []string{"File", "Edit", "Help"}
	for i, m := range f.menu.Items {
		if m.Label != menus[i] {
			t.Fatalf("menu %d: got %q, want %q", i, m.Label, menus[i])
		}
	}

	if len(f.navButtons) != 4 {
		t.Fatalf("expected 4 nav buttons, got %d", len(f.navButtons))
	}
	labels := []string{"Home", "Builder", "Configuration", "Help"}
	for i, b := range f.navButtons {
		if b.label != labels[i] {
			t.Fatalf("nav button %d: got %q, want %q", i, b.label, labels[i])
		}
	}

	// The nav column holds the four buttons, one spacer and one copyright label.
	if got, want := len(f.nav.Objects), len(f.navButtons)+2; got != want {
		t.Fatalf("nav column has %d objects, want %d", got, want)
	}
	if f.copyright == nil || f.copyright.Text != "© 2025 Julian_Orteil" {
		t.Fatalf("unexpected copyright label: %+v", f.copyright)
	}

	if f.search == nil {
		t.Fatal("expected a search entry in the frame")
	}
	if f.content == nil || len(f.content.Objects) != 0 {
		t.Fatalf("content panel should start empty, got %v", f.content)
	}
}

func TestBuildFrame_FreshInstancesPerCall(t *testing.T) {
	a := buildFrame()
	b := buildFrame()
	if a == b || a.nav == b.nav || a.content == b.content || a.menu == b.menu {
		t.Fatal("expected fully distinct frames per build")
	}
	if a.navButtons[0] == b.navButtons[0] {
		t.Fatal("expected distinct nav buttons per frame")
	}
}

func TestFrame_SetPanelReplaces(t *testing.T) {
	f := buildFrame()
	p1 := widget.NewLabel("one")
	p2 := widget.NewLabel("two")

	f.setPanel(p1)
	if len(f.content.Objects) != 1 || f.content.Objects[0] != fyne.CanvasObject(p1) {
		t.Fatalf("expected content to hold only p1, got %v", f.content.Objects)
	}
	f.setPanel(p2)
	if len(f.content.Objects) != 1 || f.content.Objects[0] != fyne.CanvasObject(p2) {
		t.Fatalf("expected content to hold only p2 after the swap, got %v", f.content.Objects)
	}
}

func TestView_NotifiesEachObserverOncePerActivation(t *testing.T) {
	v := NewView(nil)

	var calls []string
	v.OnHome(func() { calls = append(calls, "first") })
	v.OnHome(func() { calls = append(calls, "second") })

	v.frame.navButtons[0].Tapped(&fyne.PointEvent{})
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("expected one call per observer in registration order, got %v", calls)
	}

	calls = calls[:0]
	v.frame.navButtons[0].Tapped(&fyne.PointEvent{})
	if len(calls) != 2 {
		t.Fatalf("second activation should notify each observer exactly once again, got %v", calls)
	}
}

func TestView_ButtonsNotifyTheirOwnObservers(t *testing.T) {
	v := NewView(nil)

	got := map[string]int{}
	v.OnHome(func() { got["home"]++ })
	v.OnBuilder(func() { got["builder"]++ })
	v.OnConfiguration(func() { got["configuration"]++ })
	v.OnHelp(func() { got["help"]++ })

	for _, b := range v.frame.navButtons {
		b.Tapped(&fyne.PointEvent{})
	}
	if len(got) != 4 {
		t.Fatalf("expected all four observers to fire, got %v", got)
	}
	for name, n := range got {
		if n != 1 {
			t.Fatalf("observer %s fired %d times, want exactly 1", name, n)
		}
	}
}

func TestView_ShowCloseLifecycle(t *testing.T) {
	v := NewView(nil)

	v.Close()
	if v.Shown() {
		t.Fatal("close before show must leave the view hidden")
	}

	v.Show()
	if !v.Shown() {
		t.Fatal("expected view shown after Show")
	}
	v.Show()
	if !v.Shown() {
		t.Fatal("repeated Show must keep the view shown")
	}

	v.Close()
	if v.Shown() {
		t.Fatal("expected view hidden after Close")
	}
	v.Close()
	if v.Shown() {
		t.Fatal("repeated Close must keep the view hidden")
	}
}

func TestNavButton_FillStates(t *testing.T) {
	b := newNavButton("Home", nil)
	r, ok := b.CreateRenderer().(*navButtonRenderer)
	if !ok {
		t.Fatalf("expected navButtonRenderer, got %T", b.CreateRenderer())
	}

	r.Refresh()
	if r.bg.FillColor != color.Transparent {
		t.Fatalf("resting fill should be transparent, got %v", r.bg.FillColor)
	}

	b.MouseIn(&desktop.MouseEvent{})
	r.Refresh()
	if r.bg.FillColor != navHoverFill {
		t.Fatalf("hover fill: got %v, want %v", r.bg.FillColor, navHoverFill)
	}

	b.MouseDown(&desktop.MouseEvent{})
	r.Refresh()
	if r.bg.FillColor != navPressedFill {
		t.Fatalf("pressed fill: got %v, want %v", r.bg.FillColor, navPressedFill)
	}

	b.MouseUp(&desktop.MouseEvent{})
	b.MouseOut()
	r.Refresh()
	if r.bg.FillColor != color.Transparent {
		t.Fatalf("fill after mouse out should be transparent, got %v", r.bg.FillColor)
	}
}

func TestNavButton_TapCallsBackOncePerTap(t *testing.T) {
	count := 0
	b := newNavButton("Builder", func() { count++ })
	b.Tapped(&fyne.PointEvent{})
	b.Tapped(&fyne.PointEvent{})
	if count != 2 {
		t.Fatalf("expected one callback per tap, got %d after two taps", count)
	}

	// A button without a callback must stay inert.
	nb := newNavButton("Help", nil)
	nb.Tapped(&fyne.PointEvent{})
}

func TestNetworkCanvas_Defaults(t *testing.T) {
	c := NewNetworkCanvas(nil)
	if c.zoom != 1 {
		t.Fatalf("expected default zoom 1, got %v", c.zoom)
	}
	sz := c.PreferredSize()
	if sz.Width != 800 || sz.Height != 600 {
		t.Fatalf("unexpected PreferredSize: %v", sz)
	}
}

func TestNetworkCanvas_ScreenTransform(t *testing.T) {
	c := NewNetworkCanvas(nil)
	c.zoom = 2
	c.offsetX = 10
	c.offsetY = 20

	p := c.toScreen(vector.Pt{X: 5, Y: 7})
	if !almostEqual(p.X, canvasMargin+10+10, 0.01) || !almostEqual(p.Y, canvasMargin+20+14, 0.01) {
		t.Fatalf("unexpected screen point: %v", p)
	}

	back := c.toCanvas(p)
	if !almostEqual(back.X, 5, 0.01) || !almostEqual(back.Y, 7, 0.01) {
		t.Fatalf("round trip drifted: %v", back)
	}
}

func TestNetworkCanvas_TapSelectsAndDragMoves(t *testing.T) {
	net := &domain.Network{
		Name: "mnist",
		Blocks: []domain.Block{
			{ID: "b1", Type: "dense", Position: domain.Point{X: 0, Y: 0}},
			{ID: "b2", Type: "relu", Position: domain.Point{X: 300, Y: 200}},
		},
		Connections: []domain.Connection{{From: "b1", To: "b2"}},
	}
	c := NewNetworkCanvas(nil)
	c.SetNetwork(net)

	var selections []string
	c.OnSelect = func(id string) { selections = append(selections, id) }
	var movedID string
	var movedX, movedY float64
	c.OnMove = func(id string, x, y float64) { movedID, movedX, movedY = id, x, y }

	at := func(x, y float32) fyne.PointEvent {
		return fyne.PointEvent{Position: fyne.NewPos(canvasMargin+x, canvasMargin+y)}
	}

	ev := at(10, 10)
	c.Tapped(&ev)
	if c.Selected() != "b1" {
		t.Fatalf("expected b1 selected, got %q", c.Selected())
	}
	if len(selections) != 1 || selections[0] != "b1" {
		t.Fatalf("expected exactly one OnSelect for b1, got %v", selections)
	}

	// Tapping empty space clears the selection and fires once more.
	ev = at(250, 10)
	c.Tapped(&ev)
	if c.Selected() != "" || len(selections) != 2 || selections[1] != "" {
		t.Fatalf("expected cleared selection, got %q after %v", c.Selected(), selections)
	}

	// Drag b1 fifty units right; no anchor or grid is within snap range.
	c.Dragged(&fyne.DragEvent{PointEvent: at(10, 10)})
	c.Dragged(&fyne.DragEvent{PointEvent: at(60, 10)})
	c.DragEnd()

	if movedID != "b1" {
		t.Fatalf("expected OnMove for b1, got %q", movedID)
	}
	if !almostEqual(float32(movedX), 50, 0.01) || !almostEqual(float32(movedY), 0, 0.01) {
		t.Fatalf("unexpected final position (%v, %v)", movedX, movedY)
	}
	if net.Blocks[0].Position.X != movedX || net.Blocks[0].Position.Y != movedY {
		t.Fatalf("network not updated in place: %+v", net.Blocks[0].Position)
	}
}

func TestNetworkCanvas_PanAndZoomBounds(t *testing.T) {
	c := NewNetworkCanvas(nil)
	c.SetNetwork(&domain.Network{Name: "n"})

	// Dragging empty space pans.
	c.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(400, 300)},
		Dragged:    fyne.Delta{DX: 25, DY: -10},
	})
	c.DragEnd()
	if c.offsetX != 25 || c.offsetY != -10 {
		t.Fatalf("unexpected pan offsets (%v, %v)", c.offsetX, c.offsetY)
	}

	// Zoom clamps to [0.25, 3].
	for i := 0; i < 100; i++ {
		c.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: 1}})
	}
	if c.zoom != 3 {
		t.Fatalf("zoom should clamp at 3, got %v", c.zoom)
	}
	for i := 0; i < 200; i++ {
		c.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: -1}})
	}
	if c.zoom != 0.25 {
		t.Fatalf("zoom should clamp at 0.25, got %v", c.zoom)
	}
}

func TestNetworkCanvasRenderer_LayoutGeometry(t *testing.T) {
	net := &domain.Network{
		Name: "mnist",
		Blocks: []domain.Block{
			{ID: "b1", Type: "dense", Position: domain.Point{X: 0, Y: 0}},
			{ID: "b2", Type: "relu", Position: domain.Point{X: 300, Y: 200}},
		},
		Connections: []domain.Connection{{From: "b1", To: "b2"}},
	}
	c := NewNetworkCanvas(nil)
	c.SetNetwork(net)

	r, ok := c.CreateRenderer().(*networkCanvasRenderer)
	if !ok {
		t.Fatalf("expected networkCanvasRenderer, got %T", c.CreateRenderer())
	}

	containerSize := fyne.NewSize(1000, 800)
	r.Layout(containerSize)

	if len(r.rects) < 2 {
		t.Fatalf("expected rects for both blocks, got %d", len(r.rects))
	}
	p := r.rects[0].Position()
	if !almostEqual(p.X, canvasMargin, 0.01) || !almostEqual(p.Y, canvasMargin, 0.01) {
		t.Fatalf("block at origin should sit at the margin, got %v", p)
	}
	sz := r.rects[0].Size()
	if !almostEqual(sz.Width, render.BlockW, 0.01) || !almostEqual(sz.Height, render.BlockH, 0.01) {
		t.Fatalf("unexpected block size at zoom 1: %v", sz)
	}

	visible := 0
	for _, ln := range r.lines {
		if ln.Visible() {
			visible++
		}
	}
	if visible == 0 {
		t.Fatal("expected at least one visible connector segment")
	}

	if r.sel.Visible() {
		t.Fatal("selection outline should start hidden")
	}
	c.selected = "b1"
	r.Layout(containerSize)
	if !r.sel.Visible() {
		t.Fatal("expected selection outline for the selected block")
	}

	// Panning moves the drawn blocks accordingly.
	oldX := r.rects[0].Position().X
	c.offsetX += 100
	r.Layout(containerSize)
	newX := r.rects[0].Position().X
	if newX <= oldX+80 { // allow for minor rounding
		t.Fatalf("expected block to move with pan; before %v, after %v", oldX, newX)
	}

	// Clearing the network hides everything instead of removing objects.
	c.SetNetwork(nil)
	r.Layout(containerSize)
	for _, rc := range r.rects {
		if rc.Visible() {
			t.Fatal("expected block rects hidden after the network is cleared")
		}
	}
}
