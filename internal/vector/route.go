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

// Connector routing for the builder canvas and the diagram renderer.
// Data flows left to right between blocks; routes are orthogonal
// polylines with points rounded to 3 decimals so identical inputs yield
// identical geometry.

import "math"

// PortOut is where a connection leaves a block: right edge midpoint.
func PortOut(r Rect) Pt { return Pt{r.X + r.W, r.Y + r.H/2} }

// PortIn is where a connection enters a block: left edge midpoint.
func PortIn(r Rect) Pt { return Pt{r.X, r.Y + r.H/2} }

// RouteOptions controls connector clearance from block edges.
type RouteOptions struct {
	// Clearance is the distance a route keeps from block edges before
	// turning. Defaults to 12.
	Clearance float32
}

// RouteConnector returns the polyline from the out port of from to the
// in port of to. A forward connection routes as a Z through the midpoint
// between the blocks; a backward or overlapping one loops around the
// outside, above when the target sits level or higher, below otherwise.
func RouteConnector(from, to Rect, opts RouteOptions) []Pt {
	if opts.Clearance <= 0 {
		opts.Clearance = 12
	}
	start := PortOut(from)
	end := PortIn(to)
	rp := func(x, y float32) Pt { return Pt{FloatRound(x, 3), FloatRound(y, 3)} }

	if end.X-start.X >= 2*opts.Clearance {
		if abs32(end.Y-start.Y) < 0.5 {
			return []Pt{rp(start.X, start.Y), rp(end.X, end.Y)}
		}
		midX := (start.X + end.X) / 2
		return []Pt{
			rp(start.X, start.Y),
			rp(midX, start.Y),
			rp(midX, end.Y),
			rp(end.X, end.Y),
		}
	}

	outX := start.X + opts.Clearance
	inX := end.X - opts.Clearance
	var detourY float32
	if end.Y <= start.Y {
		detourY = min(from.Y, to.Y) - opts.Clearance
	} else {
		detourY = max(from.Y+from.H, to.Y+to.H) + opts.Clearance
	}
	return []Pt{
		rp(start.X, start.Y),
		rp(outX, start.Y),
		rp(outX, detourY),
		rp(inX, detourY),
		rp(inX, end.Y),
		rp(end.X, end.Y),
	}
}

// ArrowHead returns the triangle drawn at the end of a route, pointing
// along the final segment: [left wing, tip, right wing].
func ArrowHead(route []Pt, size float32) [3]Pt {
	if size <= 0 {
		size = 8
	}
	tip := route[len(route)-1]
	prev := tip
	for i := len(route) - 2; i >= 0; i-- {
		if route[i] != tip {
			prev = route[i]
			break
		}
	}
	ux, uy := tip.X-prev.X, tip.Y-prev.Y
	if ux == 0 && uy == 0 {
		ux = 1 // degenerate route; point right
	}
	mag := hypot(ux, uy)
	ux, uy = ux/mag, uy/mag
	px, py := -uy, ux
	bx, by := tip.X-ux*size, tip.Y-uy*size
	half := size / 2
	return [3]Pt{
		{FloatRound(bx+px*half, 3), FloatRound(by+py*half, 3)},
		{FloatRound(tip.X, 3), FloatRound(tip.Y, 3)},
		{FloatRound(bx-px*half, 3), FloatRound(by-py*half, 3)},
	}
}

// PolylineLength sums the segment lengths of a route.
func PolylineLength(pts []Pt) float32 {
	var sum float32
	for i := 1; i < len(pts); i++ {
		sum += hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	return FloatRound(sum, 3)
}

func abs32(v float32) float32 { return float32(math.Abs(float64(v))) }
