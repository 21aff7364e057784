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
	"fyne.io/fyne/v2/widget"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/render"
	"github.com/JulianOrteil/TensorBuilder/internal/vector"
)

// canvasMargin offsets the diagram origin from the widget's top-left so
// blocks at (0,0) are not glued to the edge.
const canvasMargin float32 = 16

// NetworkCanvas draws the active network as blocks and routed connectors.
// Tapping selects a block; dragging a block moves it with alignment and
// grid snapping; dragging empty space pans; the wheel zooms.
type NetworkCanvas struct {
	widget.BaseWidget

	zoom    float32
	offsetX float32
	offsetY float32

	net      *domain.Network
	cat      *catalog.Catalog
	selected string
	snap     vector.SnapOptions
	palette  render.Palette

	dragMode   canvasDrag
	startPt    vector.Pt
	blockStart vector.Pt
	guides     []vector.GuideLine

	// OnSelect fires whenever the selection changes; id is empty when the
	// selection is cleared.
	OnSelect func(blockID string)
	// OnMove fires when a block drag ends, with the final snapped origin.
	OnMove func(blockID string, x, y float64)
}

type canvasDrag int

const (
	canvasDragNone canvasDrag = iota
	canvasDragPan
	canvasDragMove
)

func NewNetworkCanvas(cat *catalog.Catalog) *NetworkCanvas {
	c := &NetworkCanvas{
		zoom:    1,
		cat:     cat,
		palette: render.DefaultPalette(),
		snap: vector.SnapOptions{
			Threshold:     6,
			SnapToEdges:   true,
			SnapToCenters: true,
		},
	}
	c.ExtendBaseWidget(c)
	return c
}

// SetNetwork points the canvas at a network (nil clears it).
func (c *NetworkCanvas) SetNetwork(n *domain.Network) {
	c.net = n
	c.selected = ""
	c.guides = nil
	c.Refresh()
}

// SetGridStep enables grid snapping; zero or negative disables it.
func (c *NetworkCanvas) SetGridStep(step float32) {
	if step < 0 {
		step = 0
	}
	c.snap.GridStep = step
}

// SelectBlock highlights the given block without firing OnSelect; the
// inspector uses it to mirror list selection onto the canvas.
func (c *NetworkCanvas) SelectBlock(id string) {
	c.selected = id
	c.Refresh()
}

// Selected returns the selected block id, or empty.
func (c *NetworkCanvas) Selected() string { return c.selected }

func (c *NetworkCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

func (c *NetworkCanvas) origin() (float32, float32) {
	return canvasMargin + c.offsetX, canvasMargin + c.offsetY
}

func (c *NetworkCanvas) toScreen(pt vector.Pt) fyne.Position {
	ox, oy := c.origin()
	return fyne.NewPos(ox+pt.X*c.zoom, oy+pt.Y*c.zoom)
}

func (c *NetworkCanvas) toCanvas(pos fyne.Position) vector.Pt {
	ox, oy := c.origin()
	return vector.Pt{X: (pos.X - ox) / c.zoom, Y: (pos.Y - oy) / c.zoom}
}

func blockRect(b domain.Block) vector.Rect {
	return vector.R(float32(b.Position.X), float32(b.Position.Y), render.BlockW, render.BlockH)
}

// diagramRect is the union of all block boxes in canvas units.
func (c *NetworkCanvas) diagramRect() (vector.Rect, bool) {
	if c.net == nil || len(c.net.Blocks) == 0 {
		return vector.Rect{}, false
	}
	r := blockRect(c.net.Blocks[0])
	for _, b := range c.net.Blocks[1:] {
		r = r.Union(blockRect(b))
	}
	return r, true
}

// clampPan nudges the pan offsets back when a drag would push the whole
// diagram out of the viewport. At least a keepPx-sized corner stays
// visible so the user can always drag their way back.
func (c *NetworkCanvas) clampPan() {
	const keepPx = 48
	d, ok := c.diagramRect()
	sz := c.Size()
	if !ok || sz.Width <= 0 || sz.Height <= 0 {
		return
	}
	minP := c.toScreen(d.Min())
	maxP := c.toScreen(d.Max())
	screen := vector.R(minP.X, minP.Y, maxP.X-minP.X, maxP.Y-minP.Y)
	view := vector.R(0, 0, sz.Width, sz.Height)

	keep := min(keepPx, screen.W, screen.H)
	if screen.Intersection(view).Area() >= keep*keep {
		return
	}
	moved := screen.ClampTo(view.Inset(keep-screen.W, keep-screen.H))
	c.offsetX += moved.X - screen.X
	c.offsetY += moved.Y - screen.Y
}

// blockAt hit-tests in canvas units, top-most (last drawn) first.
func (c *NetworkCanvas) blockAt(pt vector.Pt) string {
	if c.net == nil {
		return ""
	}
	for i := len(c.net.Blocks) - 1; i >= 0; i-- {
		if blockRect(c.net.Blocks[i]).Contains(pt) {
			return c.net.Blocks[i].ID
		}
	}
	return ""
}

// anchorsExcluding collects the static rects every other block presents to
// the snap engine while one block is being dragged.
func (c *NetworkCanvas) anchorsExcluding(id string) []vector.Anchor {
	if c.net == nil {
		return nil
	}
	anchors := make([]vector.Anchor, 0, len(c.net.Blocks))
	for _, b := range c.net.Blocks {
		if b.ID == id {
			continue
		}
		anchors = append(anchors, vector.Anchor{Rect: blockRect(b), Weight: 1})
	}
	return anchors
}

// Tapped selects the block under the cursor, or clears the selection.
func (c *NetworkCanvas) Tapped(e *fyne.PointEvent) {
	id := c.blockAt(c.toCanvas(e.Position))
	changed := id != c.selected
	c.selected = id
	c.dragMode = canvasDragNone
	c.Refresh()
	if changed && c.OnSelect != nil {
		c.OnSelect(id)
	}
}

// Dragged moves the block under the drag origin, or pans the view.
func (c *NetworkCanvas) Dragged(e *fyne.DragEvent) {
	if c.dragMode == canvasDragNone {
		pt := c.toCanvas(e.Position)
		if id := c.blockAt(pt); id != "" {
			if id != c.selected {
				c.selected = id
				if c.OnSelect != nil {
					c.OnSelect(id)
				}
			}
			c.dragMode = canvasDragMove
			c.startPt = pt
			if b := c.net.BlockByID(id); b != nil {
				c.blockStart = vector.Pt{X: float32(b.Position.X), Y: float32(b.Position.Y)}
			}
		} else {
			c.dragMode = canvasDragPan
		}
	}

	switch c.dragMode {
	case canvasDragPan:
		c.offsetX += e.Dragged.DX
		c.offsetY += e.Dragged.DY
		c.clampPan()
		c.Refresh()
	case canvasDragMove:
		b := c.net.BlockByID(c.selected)
		if b == nil {
			c.dragMode = canvasDragNone
			return
		}
		cur := c.toCanvas(e.Position)
		moving := vector.R(
			c.blockStart.X+cur.X-c.startPt.X,
			c.blockStart.Y+cur.Y-c.startPt.Y,
			render.BlockW, render.BlockH,
		)
		snapped, guides := vector.SnapRect(moving, c.anchorsExcluding(b.ID), c.snap)
		b.Position.X = float64(snapped.X)
		b.Position.Y = float64(snapped.Y)
		c.guides = guides
		c.Refresh()
	}
}

// DragEnd reports the final position of a moved block.
func (c *NetworkCanvas) DragEnd() {
	if c.dragMode == canvasDragMove && c.OnMove != nil {
		if b := c.net.BlockByID(c.selected); b != nil {
			c.OnMove(b.ID, b.Position.X, b.Position.Y)
		}
	}
	c.dragMode = canvasDragNone
	c.guides = nil
	c.Refresh()
}

// Scrolled zooms around the current origin.
func (c *NetworkCanvas) Scrolled(e *fyne.ScrollEvent) {
	c.zoom += e.Scrolled.DY * 0.05
	if c.zoom < 0.25 {
		c.zoom = 0.25
	}
	if c.zoom > 3 {
		c.zoom = 3
	}
	c.Refresh()
}

func (c *NetworkCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.NRGBA{R: 245, G: 245, B: 245, A: 255})

	sel := canvas.NewRectangle(color.NRGBA{})
	sel.FillColor = color.NRGBA{}
	sel.StrokeColor = color.NRGBA{R: 255, G: 120, B: 0, A: 255}
	sel.StrokeWidth = 2
	sel.Hide()

	return &networkCanvasRenderer{
		c:       c,
		bg:      bg,
		sel:     sel,
		objects: []fyne.CanvasObject{bg, sel},
	}
}

// networkCanvasRenderer lays the scene out from the widget state on every
// pass: connector segments first, then block rects and labels, then the
// selection outline and snap guides on top. Visual objects are grown on
// demand and surplus ones hidden, never removed.
type networkCanvasRenderer struct {
	c       *NetworkCanvas
	objects []fyne.CanvasObject

	bg     *canvas.Rectangle
	lines  []*canvas.Line
	rects  []*canvas.Rectangle
	labels []*canvas.Text
	sel    *canvas.Rectangle
	guides []*canvas.Line
}

func (r *networkCanvasRenderer) Destroy()                     {}
func (r *networkCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *networkCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(320, 240) }
func (r *networkCanvasRenderer) Refresh() {
	r.Layout(r.c.Size())
	canvas.Refresh(r.c)
}

// insertBeforeSel splices grown objects into the draw order just below the
// selection outline so it stays on top.
func (r *networkCanvasRenderer) insertBeforeSel(objs []fyne.CanvasObject) {
	ins := len(r.objects)
	for i, o := range r.objects {
		if o == r.sel {
			ins = i
			break
		}
	}
	out := make([]fyne.CanvasObject, 0, len(r.objects)+len(objs))
	out = append(out, r.objects[:ins]...)
	out = append(out, objs...)
	out = append(out, r.objects[ins:]...)
	r.objects = out
}

func (r *networkCanvasRenderer) ensureLines(n int) {
	if n <= len(r.lines) {
		return
	}
	add := make([]fyne.CanvasObject, 0, n-len(r.lines))
	for i := len(r.lines); i < n; i++ {
		ln := canvas.NewLine(r.c.palette.Connector)
		ln.StrokeWidth = 1.5
		r.lines = append(r.lines, ln)
		add = append(add, ln)
	}
	r.insertBeforeSel(add)
}

func (r *networkCanvasRenderer) ensureBlocks(n int) {
	if n <= len(r.rects) {
		return
	}
	add := make([]fyne.CanvasObject, 0, 2*(n-len(r.rects)))
	for i := len(r.rects); i < n; i++ {
		rc := canvas.NewRectangle(r.c.palette.Fallback)
		rc.StrokeColor = r.c.palette.Border
		rc.StrokeWidth = 1
		rc.CornerRadius = 4
		r.rects = append(r.rects, rc)
		add = append(add, rc)

		tx := canvas.NewText("", r.c.palette.Label)
		tx.Alignment = fyne.TextAlignCenter
		r.labels = append(r.labels, tx)
		add = append(add, tx)
	}
	r.insertBeforeSel(add)
}

func (r *networkCanvasRenderer) ensureGuides(n int) {
	if n <= len(r.guides) {
		return
	}
	add := make([]fyne.CanvasObject, 0, n-len(r.guides))
	for i := len(r.guides); i < n; i++ {
		ln := canvas.NewLine(color.NRGBA{R: 255, G: 120, B: 0, A: 200})
		ln.StrokeWidth = 1
		r.guides = append(r.guides, ln)
		add = append(add, ln)
	}
	// Guides draw above everything, selection included.
	r.objects = append(r.objects, add...)
}

func (r *networkCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	net := r.c.net
	if net == nil {
		for _, ln := range r.lines {
			ln.Hide()
		}
		for _, rc := range r.rects {
			rc.Hide()
		}
		for _, tx := range r.labels {
			tx.Hide()
		}
		r.sel.Hide()
		for _, g := range r.guides {
			g.Hide()
		}
		return
	}

	// Connectors: one polyline per edge, one Line per segment.
	type segment struct{ a, b fyne.Position }
	var segs []segment
	for _, cn := range net.Connections {
		from := net.BlockByID(cn.From)
		to := net.BlockByID(cn.To)
		if from == nil || to == nil {
			continue
		}
		route := vector.RouteConnector(blockRect(*from), blockRect(*to), vector.RouteOptions{})
		for i := 0; i+1 < len(route); i++ {
			segs = append(segs, segment{r.c.toScreen(route[i]), r.c.toScreen(route[i+1])})
		}
	}
	r.ensureLines(len(segs))
	for i, s := range segs {
		ln := r.lines[i]
		ln.Show()
		ln.Position1 = s.a
		ln.Position2 = s.b
		ln.Refresh()
	}
	for i := len(segs); i < len(r.lines); i++ {
		r.lines[i].Hide()
	}

	// Blocks and labels. Blocks scrolled out of the viewport stay hidden.
	r.ensureBlocks(len(net.Blocks))
	view := vector.R(0, 0, size.Width, size.Height)
	cull := size.Width > 0 && size.Height > 0
	for i, b := range net.Blocks {
		rc := r.rects[i]
		tx := r.labels[i]
		pos := r.c.toScreen(vector.Pt{X: float32(b.Position.X), Y: float32(b.Position.Y)})
		w := render.BlockW * r.c.zoom
		h := render.BlockH * r.c.zoom
		if cull && !vector.R(pos.X, pos.Y, w, h).Intersects(view) {
			rc.Hide()
			tx.Hide()
			continue
		}

		fill := r.c.palette.Fallback
		if r.c.cat != nil {
			if spec, ok := r.c.cat.Lookup(b.Type); ok {
				fill = r.c.palette.BlockFill(spec.Category)
			}
		}
		rc.FillColor = fill
		rc.Show()
		rc.Resize(fyne.NewSize(w, h))
		rc.Move(pos)
		rc.Refresh()

		tx.Text = b.DisplayLabel()
		tx.TextSize = 13 * r.c.zoom
		tx.Show()
		ts := tx.MinSize()
		tx.Resize(fyne.NewSize(w, ts.Height))
		tx.Move(fyne.NewPos(pos.X, pos.Y+(h-ts.Height)/2))
		tx.Refresh()
	}
	for i := len(net.Blocks); i < len(r.rects); i++ {
		r.rects[i].Hide()
		r.labels[i].Hide()
	}

	// Selection outline.
	if b := net.BlockByID(r.c.selected); b != nil {
		pos := r.c.toScreen(vector.Pt{X: float32(b.Position.X), Y: float32(b.Position.Y)})
		r.sel.Show()
		r.sel.Resize(fyne.NewSize(render.BlockW*r.c.zoom+4, render.BlockH*r.c.zoom+4))
		r.sel.Move(fyne.NewPos(pos.X-2, pos.Y-2))
	} else {
		r.sel.Hide()
	}

	// Snap guides while dragging.
	r.ensureGuides(len(r.c.guides))
	for i, g := range r.c.guides {
		ln := r.guides[i]
		ln.Show()
		ln.Position1 = r.c.toScreen(g.From)
		ln.Position2 = r.c.toScreen(g.To)
		ln.Refresh()
	}
	for i := len(r.c.guides); i < len(r.guides); i++ {
		r.guides[i].Hide()
	}
}
