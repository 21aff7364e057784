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

// Snap guides for dragging blocks on the builder canvas. UI-agnostic and
// deterministic so the behavior is unit-testable without a window.

import "math"

// SnapOptions controls which guide candidates are considered.
type SnapOptions struct {
	// Threshold is the maximum distance (canvas units) at which alignment
	// snapping occurs. Typical UI values are 6-8 points.
	Threshold float32
	// Snap to edges (left, right, top, bottom) of other blocks.
	SnapToEdges bool
	// Snap to centers (cx, cy) of other blocks.
	SnapToCenters bool
	// GridStep, when positive, rounds the dragged position to the grid.
	// Alignment with another block wins over the grid on each axis.
	GridStep float32
}

// Anchor is a static reference rect (another block or the canvas bounds).
// Weight biases selection when distances tie; 1 when uncertain.
type Anchor struct {
	Rect   Rect
	Weight float32
}

// GuideLine is a visual guide produced by an alignment snap.
// Orientation is "vertical" or "horizontal"; Kind is "edge" or "center".
// From and To are the extents to draw; Position is the aligned x or y.
// Values are rounded to 3 decimals for deterministic behavior.
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float32
	From        Pt
	To          Pt
}

// SnapRect adjusts a rect being dragged. Each axis snaps independently:
// alignment with an anchor edge or center takes priority, then the grid.
// Returns the snapped rect and the guide lines to render.
func SnapRect(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	var guides []GuideLine

	bestDX, bestDXDist, bestDXGuide := float32(0), float32(+1e9), (GuideLine{})
	bestDY, bestDYDist, bestDYGuide := float32(0), float32(+1e9), (GuideLine{})

	mL, mR, mT, mB := moving.X, moving.X+moving.W, moving.Y, moving.Y+moving.H
	mCX, mCY := moving.X+moving.W/2, moving.Y+moving.H/2

	for _, a := range anchors {
		aL, aR, aT, aB := a.Rect.X, a.Rect.X+a.Rect.W, a.Rect.Y, a.Rect.Y+a.Rect.H
		aCX, aCY := a.Rect.X+a.Rect.W/2, a.Rect.Y+a.Rect.H/2

		if opts.SnapToEdges {
			consider(&bestDX, &bestDXDist, &bestDXGuide, mL-aL, opts.Threshold, a.Weight, verticalGuide(aL, moving, a.Rect, "edge"))
			consider(&bestDX, &bestDXDist, &bestDXGuide, mR-aR, opts.Threshold, a.Weight, verticalGuide(aR, moving, a.Rect, "edge"))
			consider(&bestDX, &bestDXDist, &bestDXGuide, mL-aR, opts.Threshold, a.Weight, verticalGuide(aR, moving, a.Rect, "edge"))
			consider(&bestDX, &bestDXDist, &bestDXGuide, mR-aL, opts.Threshold, a.Weight, verticalGuide(aL, moving, a.Rect, "edge"))

			consider(&bestDY, &bestDYDist, &bestDYGuide, mT-aT, opts.Threshold, a.Weight, horizontalGuide(aT, moving, a.Rect, "edge"))
			consider(&bestDY, &bestDYDist, &bestDYGuide, mB-aB, opts.Threshold, a.Weight, horizontalGuide(aB, moving, a.Rect, "edge"))
			consider(&bestDY, &bestDYDist, &bestDYGuide, mT-aB, opts.Threshold, a.Weight, horizontalGuide(aB, moving, a.Rect, "edge"))
			consider(&bestDY, &bestDYDist, &bestDYGuide, mB-aT, opts.Threshold, a.Weight, horizontalGuide(aT, moving, a.Rect, "edge"))
		}
		if opts.SnapToCenters {
			consider(&bestDX, &bestDXDist, &bestDXGuide, mCX-aCX, opts.Threshold, a.Weight, verticalGuide(aCX, moving, a.Rect, "center"))
			consider(&bestDY, &bestDYDist, &bestDYGuide, mCY-aCY, opts.Threshold, a.Weight, horizontalGuide(aCY, moving, a.Rect, "center"))
		}
	}

	snapped := moving
	switch {
	case bestDXDist <= opts.Threshold:
		snapped.X = FloatRound(moving.X-bestDX, 3)
		guides = append(guides, bestDXGuide)
	case opts.GridStep > 0:
		snapped.X = gridRound(moving.X, opts.GridStep)
	}
	switch {
	case bestDYDist <= opts.Threshold:
		snapped.Y = FloatRound(moving.Y-bestDY, 3)
		guides = append(guides, bestDYGuide)
	case opts.GridStep > 0:
		snapped.Y = gridRound(moving.Y, opts.GridStep)
	}
	return snapped, guides
}

func consider(best *float32, bestDist *float32, bestGuide *GuideLine, delta, threshold, weight float32, g GuideLine) {
	dist := float32(math.Abs(float64(delta)))
	if dist > threshold {
		return
	}
	score := dist / max(1, weight)
	if score < *bestDist {
		*bestDist = dist
		*best = delta
		*bestGuide = g
	}
}

func gridRound(v, step float32) float32 {
	return FloatRound(float32(math.Round(float64(v/step)))*step, 3)
}

func verticalGuide(x float32, a Rect, b Rect, kind string) GuideLine {
	span := a.Union(b)
	x = FloatRound(x, 3)
	return GuideLine{
		Orientation: "vertical",
		Kind:        kind,
		Position:    x,
		From:        Pt{x, span.Y},
		To:          Pt{x, span.Y + span.H},
	}
}

func horizontalGuide(y float32, a Rect, b Rect, kind string) GuideLine {
	span := a.Union(b)
	y = FloatRound(y, 3)
	return GuideLine{
		Orientation: "horizontal",
		Kind:        kind,
		Position:    y,
		From:        Pt{span.X, y},
		To:          Pt{span.X + span.W, y},
	}
}
