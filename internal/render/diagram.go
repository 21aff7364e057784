/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render draws a network as a raster diagram: one box per block,
// orthogonal connectors with arrowheads, labels in a fixed bitmap font.
// Output is deterministic for identical input, which makes it cacheable
// by fingerprint and comparable in tests. Used by the PNG export, the
// preview cache and the UI.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/graph"
	"github.com/JulianOrteil/TensorBuilder/internal/vector"
)

// Block box size in canvas units. The canvas widget uses the same box
// so stored positions line up between editing and export.
const (
	BlockW float32 = 132
	BlockH float32 = 56
)

// Options controls diagram rendering.
type Options struct {
	// Scale multiplies the whole geometry; labels keep the fixed bitmap
	// font size. Default 1.
	Scale float32
	// Padding is the margin around the content in canvas units. Default 24.
	Padding float32
	// ShowShapes annotates each block with its inferred output shape.
	ShowShapes bool
	// ForceLayout ignores stored positions and auto-arranges.
	ForceLayout bool
	// Palette overrides the stock colors when non-nil.
	Palette *Palette
}

// Geometry is the laid-out diagram before rasterization: one rectangle
// per block and one polyline per connection, in canvas units. It is the
// shared input of the PNG and SVG exporters and the cached "geom" preview.
type Geometry struct {
	Bounds vector.Rect            `json:"bounds"`
	Blocks map[string]vector.Rect `json:"blocks"`
	Routes [][]vector.Pt          `json:"routes"`
}

// NetworkGeometry lays out n without drawing it.
func NetworkGeometry(n *domain.Network, forceLayout bool) (*Geometry, error) {
	if n == nil {
		return nil, fmt.Errorf("render: nil network")
	}
	rects, err := blockRects(n, forceLayout)
	if err != nil {
		return nil, err
	}
	routes := make([][]vector.Pt, 0, len(n.Connections))
	for _, c := range n.Connections {
		from, okF := rects[c.From]
		to, okT := rects[c.To]
		if !okF || !okT || c.From == c.To {
			continue
		}
		routes = append(routes, vector.RouteConnector(from, to, vector.RouteOptions{}))
	}
	return &Geometry{
		Bounds: contentBounds(n, rects, routes),
		Blocks: rects,
		Routes: routes,
	}, nil
}

// RenderNetwork draws n onto a fresh image.
func RenderNetwork(n *domain.Network, cat *catalog.Catalog, opts Options) (*image.RGBA, error) {
	if n == nil {
		return nil, fmt.Errorf("render: nil network")
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Padding <= 0 {
		opts.Padding = 24
	}
	pal := DefaultPalette()
	if opts.Palette != nil {
		pal = *opts.Palette
	}

	if len(n.Blocks) == 0 {
		img := image.NewRGBA(image.Rect(0, 0, 320, 200))
		fillRect(img, img.Bounds(), pal.Background)
		drawStringCentered(img, 160, 100, pal.Shape, "empty network")
		return img, nil
	}

	g, err := NetworkGeometry(n, opts.ForceLayout)
	if err != nil {
		return nil, err
	}
	rects, routes, bounds := g.Blocks, g.Routes, g.Bounds

	m := vector.Scale(opts.Scale, opts.Scale).
		Mul(vector.Translate(opts.Padding-bounds.X, opts.Padding-bounds.Y))
	w := int(math.Ceil(float64(opts.Scale * (bounds.W + 2*opts.Padding))))
	h := int(math.Ceil(float64(opts.Scale * (bounds.H + 2*opts.Padding))))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fillRect(img, img.Bounds(), pal.Background)

	for _, route := range routes {
		drawRoute(img, m, route, pal)
	}

	var shapes map[string][]int
	if opts.ShowShapes {
		shapes, _ = graph.InferShapes(n, cat)
	}
	for i := range n.Blocks {
		b := &n.Blocks[i]
		r, ok := rects[b.ID]
		if !ok {
			continue
		}
		drawBlock(img, m, r, b, cat, shapes, pal, opts.ShowShapes)
	}
	return img, nil
}

// EncodePNG renders n and returns the encoded bytes.
func EncodePNG(n *domain.Network, cat *catalog.Catalog, opts Options) ([]byte, error) {
	img, err := RenderNetwork(n, cat, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// blockRects maps every block to its box, auto-arranging when no block
// has been placed yet (or when forced).
func blockRects(n *domain.Network, force bool) (map[string]vector.Rect, error) {
	placed := false
	for _, b := range n.Blocks {
		if b.Position.X != 0 || b.Position.Y != 0 {
			placed = true
			break
		}
	}
	rects := make(map[string]vector.Rect, len(n.Blocks))
	if placed && !force {
		for _, b := range n.Blocks {
			rects[b.ID] = vector.R(float32(b.Position.X), float32(b.Position.Y), BlockW, BlockH)
		}
		return rects, nil
	}

	order, err := graph.TopoOrder(n)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	pos := vector.AutoLayout(vector.LayoutGraph{Order: order, Preds: graph.Predecessors(n)}, vector.LayoutOptions{
		NodeSize: vector.Size{W: BlockW, H: BlockH},
	})
	for id, p := range pos {
		rects[id] = vector.R(p.X, p.Y, BlockW, BlockH)
	}
	return rects, nil
}

func contentBounds(n *domain.Network, rects map[string]vector.Rect, routes [][]vector.Pt) vector.Rect {
	var bounds vector.Rect
	first := true
	for _, b := range n.Blocks {
		r, ok := rects[b.ID]
		if !ok {
			continue
		}
		if first {
			bounds = r
			first = false
		} else {
			bounds = bounds.Union(r)
		}
	}
	for _, route := range routes {
		for _, p := range route {
			bounds = bounds.Union(vector.R(p.X, p.Y, 0, 0))
		}
	}
	return bounds
}

func drawRoute(img *image.RGBA, m vector.Affine2D, route []vector.Pt, pal Palette) {
	for i := 1; i < len(route); i++ {
		a := m.Apply(route[i-1])
		b := m.Apply(route[i])
		drawLine(img, round(a.X), round(a.Y), round(b.X), round(b.Y), pal.Connector)
	}
	head := vector.ArrowHead(route, 7)
	tip := m.Apply(head[1])
	for _, wing := range []vector.Pt{head[0], head[2]} {
		wp := m.Apply(wing)
		drawLine(img, round(wp.X), round(wp.Y), round(tip.X), round(tip.Y), pal.Connector)
	}
}

func drawBlock(img *image.RGBA, m vector.Affine2D, r vector.Rect, b *domain.Block, cat *catalog.Catalog, shapes map[string][]int, pal Palette, showShapes bool) {
	minP := m.Apply(r.Min())
	maxP := m.Apply(r.Max())
	box := image.Rect(round(minP.X), round(minP.Y), round(maxP.X), round(maxP.Y))

	category := ""
	if cat != nil {
		if spec, ok := cat.Lookup(b.Type); ok {
			category = spec.Category
		}
	}
	fillRect(img, box, pal.BlockFill(category))
	strokeRect(img, box, pal.Border)

	inner := box.Dx() - 12
	cx := (box.Min.X + box.Max.X) / 2
	label := TruncateToWidth(b.DisplayLabel(), inner)

	second := ""
	if showShapes {
		if s, ok := shapes[b.ID]; ok {
			second = FormatShape(s)
		} else {
			second = "?"
		}
	} else if b.Label != "" && b.Label != b.Type {
		second = b.Type
	}

	if second == "" {
		drawStringCentered(img, cx, (box.Min.Y+box.Max.Y)/2+Ascent()/2, pal.Label, label)
		return
	}
	mid := (box.Min.Y + box.Max.Y) / 2
	drawStringCentered(img, cx, mid-2, pal.Label, label)
	drawStringCentered(img, cx, mid+LineHeight()-2, pal.Shape, TruncateToWidth(second, inner))
}

// FormatShape prints an inferred shape like 26x26x8.
func FormatShape(s []int) string {
	if len(s) == 0 {
		return "?"
	}
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

func round(v float32) int { return int(math.Round(float64(v))) }
