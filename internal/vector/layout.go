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

import "sort"

// LayoutGraph is the structural input to AutoLayout, kept free of any
// model types so the algorithm stays unit-testable on its own. Order
// must be a topological order of the node ids; Preds lists the direct
// predecessors of each id.
type LayoutGraph struct {
	Order []string
	Preds map[string][]string
}

// LayoutOptions controls spacing. All units are canvas units. The
// algorithm is deterministic for identical inputs.
type LayoutOptions struct {
	NodeSize  Size
	ColumnGap float32
	RowGap    float32
	Margin    float32
}

// AutoLayout arranges nodes into columns by dependency depth: roots in
// the first column, each node one column right of its deepest
// predecessor. Rows fill top-down in topological order, nudged toward
// the mean row of the predecessors to keep connectors short. Returns
// the top-left position of every node.
func AutoLayout(g LayoutGraph, opts LayoutOptions) map[string]Pt {
	if opts.NodeSize.W <= 0 {
		opts.NodeSize.W = 132
	}
	if opts.NodeSize.H <= 0 {
		opts.NodeSize.H = 56
	}
	if opts.ColumnGap <= 0 {
		opts.ColumnGap = 64
	}
	if opts.RowGap <= 0 {
		opts.RowGap = 32
	}
	if opts.Margin <= 0 {
		opts.Margin = 24
	}

	depth := make(map[string]int, len(g.Order))
	for _, id := range g.Order {
		d := 0
		for _, p := range g.Preds[id] {
			if pd, ok := depth[p]; ok && pd+1 > d {
				d = pd + 1
			}
		}
		depth[id] = d
	}

	// Desired row per node: mean predecessor row, else next free slot.
	row := make(map[string]float32, len(g.Order))
	taken := make(map[int][]float32) // occupied rows per column
	for _, id := range g.Order {
		col := depth[id]
		want := float32(len(taken[col]))
		if ps := g.Preds[id]; len(ps) > 0 {
			var sum float32
			for _, p := range ps {
				sum += row[p]
			}
			want = sum / float32(len(ps))
		}
		row[id] = freeRow(taken[col], want)
		taken[col] = append(taken[col], row[id])
	}

	out := make(map[string]Pt, len(g.Order))
	for _, id := range g.Order {
		x := opts.Margin + float32(depth[id])*(opts.NodeSize.W+opts.ColumnGap)
		y := opts.Margin + row[id]*(opts.NodeSize.H+opts.RowGap)
		out[id] = Pt{X: FloatRound(x, 3), Y: FloatRound(y, 3)}
	}
	return out
}

// freeRow returns the row nearest to want that no sibling occupies,
// probing outward in half-row steps. Preferring the downward candidate
// on ties keeps the result stable.
func freeRow(occupied []float32, want float32) float32 {
	if want < 0 {
		want = 0
	}
	used := func(r float32) bool {
		for _, o := range occupied {
			if o > r-0.5 && o < r+0.5 {
				return true
			}
		}
		return false
	}
	if !used(want) {
		return want
	}
	for step := float32(0.5); ; step += 0.5 {
		if down := want + step; !used(down) {
			return down
		}
		if up := want - step; up >= 0 && !used(up) {
			return up
		}
	}
}

// Bounds returns the rect enclosing every node box in the placement.
func Bounds(pos map[string]Pt, node Size) Rect {
	if len(pos) == 0 {
		return Rect{}
	}
	ids := make([]string, 0, len(pos))
	for id := range pos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	b := R(pos[ids[0]].X, pos[ids[0]].Y, node.W, node.H)
	for _, id := range ids[1:] {
		b = b.Union(R(pos[id].X, pos[id].Y, node.W, node.H))
	}
	return b
}
