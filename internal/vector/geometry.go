/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

// Geometry primitives shared by the builder canvas, the diagram renderer
// and the exporters. Coordinates are float32 to match the UI toolkit;
// code that serializes positions rounds through FloatRound first.

import "math"

// Pt is a point on the canvas plane.
type Pt struct{ X, Y float32 }

// Size is a width/height pair.
type Size struct{ W, H float32 }

// Rect is an axis-aligned rectangle: min corner plus extent.
type Rect struct{ X, Y, W, H float32 }

// R builds a Rect from its four components.
func R(x, y, w, h float32) Rect { return Rect{x, y, w, h} }

func (r Rect) Min() Pt    { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt    { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

// Area is zero for degenerate rectangles, never negative.
func (r Rect) Area() float32 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Contains reports whether p lies in r, borders included.
func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.X <= r.X+r.W &&
		p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Inset shrinks r by dx,dy on every side; negative values grow it.
func (r Rect) Inset(dx, dy float32) Rect {
	return R(r.X+dx, r.Y+dy, r.W-2*dx, r.H-2*dy)
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return R(x0, y0, x1-x0, y1-y0)
}

// Intersects reports whether the interiors of r and o overlap. Rects
// that merely share an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W &&
		r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Intersection returns the overlap of r and o, or the zero Rect when
// their interiors are disjoint.
func (r Rect) Intersection(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return R(x0, y0, x1-x0, y1-y0)
}

// ClampTo moves r the minimal distance needed to lie within bounds.
// When r does not fit, the max corner stays aligned with bounds.
func (r Rect) ClampTo(bounds Rect) Rect {
	if r.X < bounds.X {
		r.X = bounds.X
	}
	if r.Y < bounds.Y {
		r.Y = bounds.Y
	}
	if over := r.X + r.W - bounds.X - bounds.W; over > 0 {
		r.X -= over
	}
	if over := r.Y + r.H - bounds.Y - bounds.H; over > 0 {
		r.Y -= over
	}
	return r
}

// Affine2D maps the plane by
//
//	x' = A*x + C*y + E
//	y' = B*x + D*y + F
//
// matching the [a b c d e f] sextet SVG and PDF use. The canvas applies
// one for pan/zoom, the renderer for fitting model space onto an image.
type Affine2D struct{ A, B, C, D, E, F float32 }

// Identity leaves points where they are.
var Identity = Affine2D{A: 1, D: 1}

// Mul composes transforms: m.Mul(n) applies n first, then m.
func (m Affine2D) Mul(n Affine2D) Affine2D {
	t := m.Apply(Pt{n.E, n.F})
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: t.X,
		F: t.Y,
	}
}

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{m.A*p.X + m.C*p.Y + m.E, m.B*p.X + m.D*p.Y + m.F}
}

// Invert returns the inverse transform, or Identity when singular.
func (m Affine2D) Invert() Affine2D {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Identity
	}
	id := 1 / det
	return Affine2D{
		A: m.D * id,
		B: -m.B * id,
		C: -m.C * id,
		D: m.A * id,
		E: (m.C*m.F - m.D*m.E) * id,
		F: (m.B*m.E - m.A*m.F) * id,
	}
}

// Translate offsets points by tx,ty.
func Translate(tx, ty float32) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }

// Scale scales about the origin.
func Scale(sx, sy float32) Affine2D { return Affine2D{A: sx, D: sy} }

func hypot(dx, dy float32) float32 { return float32(math.Hypot(float64(dx), float64(dy))) }

// FloatRound rounds v to the given number of decimal places. Layout and
// routing round to three so saved coordinates diff cleanly.
func FloatRound(v float32, places int) float32 {
	if places < 0 {
		return v
	}
	scale := float32(math.Pow(10, float64(places)))
	return float32(math.Round(float64(v*scale))) / scale
}
