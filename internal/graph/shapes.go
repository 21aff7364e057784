/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package graph

import (
	"fmt"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

// InferShapes walks the network in topological order and applies each
// block's shape rule. Shapes never carry the batch dimension. A block
// whose rule fails gets an issue and no shape; its downstream blocks
// stay unresolved without piling on more issues.
func InferShapes(n *domain.Network, cat *catalog.Catalog) (map[string][]int, []Issue) {
	shapes := make(map[string][]int, len(n.Blocks))
	var issues []Issue
	report := func(id, format string, args ...any) {
		issues = append(issues, Issue{BlockID: id, Code: CodeShape, Message: fmt.Sprintf(format, args...)})
	}

	order, err := TopoOrder(n)
	if err != nil {
		return shapes, []Issue{{Code: CodeCycle, Message: err.Error()}}
	}
	preds := Predecessors(n)

	for _, id := range order {
		b := n.BlockByID(id)
		if b == nil {
			continue
		}
		spec, ok := cat.Lookup(b.Type)
		if !ok {
			report(id, "unknown block type %q", b.Type)
			continue
		}
		var ins [][]int
		unresolved := false
		for _, from := range preds[id] {
			s, ok := shapes[from]
			if !ok {
				unresolved = true
				break
			}
			ins = append(ins, s)
		}
		if unresolved {
			continue
		}
		out, err := applyRule(spec, b, n, ins)
		if err != nil {
			report(id, "%v", err)
			continue
		}
		shapes[id] = out
	}
	return shapes, issues
}

func applyRule(spec catalog.BlockSpec, b *domain.Block, n *domain.Network, ins [][]int) ([]int, error) {
	one := func() ([]int, error) {
		if len(ins) != 1 {
			return nil, fmt.Errorf("%s expects exactly one input, has %d", spec.Type, len(ins))
		}
		return ins[0], nil
	}

	switch spec.ShapeRule {
	case "input":
		if len(n.InputShape) == 0 {
			return nil, fmt.Errorf("network input shape is not set")
		}
		return append([]int(nil), n.InputShape...), nil

	case "identity":
		return one()

	case "dense":
		in, err := one()
		if err != nil {
			return nil, err
		}
		if len(in) == 0 {
			return nil, fmt.Errorf("dense needs at least a one dimensional input")
		}
		units := b.ParamInt("units", 0)
		if units <= 0 {
			return nil, fmt.Errorf("units must be positive, got %d", units)
		}
		out := append([]int(nil), in...)
		out[len(out)-1] = units
		return out, nil

	case "conv2d":
		in, err := one()
		if err != nil {
			return nil, err
		}
		if len(in) != 3 {
			return nil, fmt.Errorf("conv2d expects height x width x channels, got %v", in)
		}
		filters := b.ParamInt("filters", 0)
		if filters <= 0 {
			return nil, fmt.Errorf("filters must be positive, got %d", filters)
		}
		kernel := b.ParamInts("kernel", []int{3, 3})
		strides := b.ParamInts("strides", []int{1, 1})
		padding := b.ParamString("padding", "valid")
		h, err := convDim(in[0], kernel, strides, padding, 0)
		if err != nil {
			return nil, err
		}
		w, err := convDim(in[1], kernel, strides, padding, 1)
		if err != nil {
			return nil, err
		}
		return []int{h, w, filters}, nil

	case "pool2d":
		in, err := one()
		if err != nil {
			return nil, err
		}
		if len(in) != 3 {
			return nil, fmt.Errorf("%s expects height x width x channels, got %v", spec.Type, in)
		}
		pool := b.ParamInts("pool", []int{2, 2})
		strides := b.ParamInts("strides", pool)
		padding := b.ParamString("padding", "valid")
		h, err := convDim(in[0], pool, strides, padding, 0)
		if err != nil {
			return nil, err
		}
		w, err := convDim(in[1], pool, strides, padding, 1)
		if err != nil {
			return nil, err
		}
		return []int{h, w, in[2]}, nil

	case "flatten":
		in, err := one()
		if err != nil {
			return nil, err
		}
		total := 1
		for _, d := range in {
			total *= d
		}
		return []int{total}, nil

	case "reshape":
		in, err := one()
		if err != nil {
			return nil, err
		}
		want := b.ParamInts("shape", nil)
		if len(want) == 0 {
			return nil, fmt.Errorf("reshape needs a target shape")
		}
		return resolveReshape(in, want)

	case "concat":
		if len(ins) < 2 {
			return nil, fmt.Errorf("concat needs at least two inputs, has %d", len(ins))
		}
		axis := b.ParamInt("axis", -1)
		return concatShapes(ins, axis)

	case "elementwise":
		if len(ins) < 2 {
			return nil, fmt.Errorf("%s needs at least two inputs, has %d", spec.Type, len(ins))
		}
		first := ins[0]
		for i, s := range ins[1:] {
			if !sameShape(first, s) {
				return nil, fmt.Errorf("input %d has shape %v, want %v", i+2, s, first)
			}
		}
		return append([]int(nil), first...), nil

	case "recurrent":
		in, err := one()
		if err != nil {
			return nil, err
		}
		if len(in) != 2 {
			return nil, fmt.Errorf("%s expects timesteps x features, got %v", spec.Type, in)
		}
		units := b.ParamInt("units", 0)
		if units <= 0 {
			return nil, fmt.Errorf("units must be positive, got %d", units)
		}
		if b.ParamBool("returnSequences", false) {
			return []int{in[0], units}, nil
		}
		return []int{units}, nil

	case "embedding":
		in, err := one()
		if err != nil {
			return nil, err
		}
		if len(in) != 1 {
			return nil, fmt.Errorf("embedding expects a sequence of token ids, got %v", in)
		}
		dim := b.ParamInt("dim", 0)
		if dim <= 0 {
			return nil, fmt.Errorf("dim must be positive, got %d", dim)
		}
		return []int{in[0], dim}, nil

	default:
		return nil, fmt.Errorf("no shape rule %q", spec.ShapeRule)
	}
}

// convDim applies the conv/pool arithmetic for one spatial axis.
func convDim(size int, window, strides []int, padding string, axis int) (int, error) {
	if axis >= len(window) || axis >= len(strides) {
		return 0, fmt.Errorf("window %v and strides %v must cover both spatial axes", window, strides)
	}
	w, s := window[axis], strides[axis]
	if w <= 0 || s <= 0 {
		return 0, fmt.Errorf("window and stride must be positive, got %d and %d", w, s)
	}
	switch padding {
	case "same":
		return (size + s - 1) / s, nil
	case "valid", "":
		out := (size-w)/s + 1
		if out <= 0 {
			return 0, fmt.Errorf("window %d does not fit axis of size %d", w, size)
		}
		return out, nil
	default:
		return 0, fmt.Errorf("unknown padding %q", padding)
	}
}

// resolveReshape checks element counts and fills a single -1 wildcard.
func resolveReshape(in, want []int) ([]int, error) {
	total := 1
	for _, d := range in {
		total *= d
	}
	known := 1
	wild := -1
	out := append([]int(nil), want...)
	for i, d := range out {
		switch {
		case d == -1:
			if wild >= 0 {
				return nil, fmt.Errorf("at most one -1 allowed in a reshape, got %v", want)
			}
			wild = i
		case d <= 0:
			return nil, fmt.Errorf("reshape dimensions must be positive or -1, got %v", want)
		default:
			known *= d
		}
	}
	if wild >= 0 {
		if total%known != 0 {
			return nil, fmt.Errorf("cannot reshape %v into %v", in, want)
		}
		out[wild] = total / known
		return out, nil
	}
	if known != total {
		return nil, fmt.Errorf("cannot reshape %v (%d values) into %v (%d values)", in, total, want, known)
	}
	return out, nil
}

func concatShapes(ins [][]int, axis int) ([]int, error) {
	rank := len(ins[0])
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, fmt.Errorf("axis %d out of range for rank %d", axis, rank)
	}
	out := append([]int(nil), ins[0]...)
	for i, s := range ins[1:] {
		if len(s) != rank {
			return nil, fmt.Errorf("input %d has rank %d, want %d", i+2, len(s), rank)
		}
		for d := range s {
			if d == axis {
				continue
			}
			if s[d] != out[d] {
				return nil, fmt.Errorf("input %d has shape %v, incompatible off axis %d", i+2, s, axis)
			}
		}
		out[axis] += s[axis]
	}
	return out, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
