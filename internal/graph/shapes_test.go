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
	"reflect"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

func TestInferShapesConvChain(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:       "lenet-ish",
		InputShape: []int{28, 28, 1},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("c1", "conv2d", map[string]any{"filters": 8, "kernel": []any{3, 3}, "strides": []any{1, 1}, "padding": "valid"}),
			block("p1", "maxpool2d", map[string]any{"pool": []any{2, 2}}),
			block("f", "flatten", nil),
			block("d", "dense", map[string]any{"units": 10}),
		},
		Connections: connect(
			[2]string{"in", "c1"}, [2]string{"c1", "p1"},
			[2]string{"p1", "f"}, [2]string{"f", "d"},
		),
	}
	shapes, issues := InferShapes(n, cat)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	want := map[string][]int{
		"in": {28, 28, 1},
		"c1": {26, 26, 8},
		"p1": {13, 13, 8},
		"f":  {1352},
		"d":  {10},
	}
	for id, s := range want {
		if !reflect.DeepEqual(shapes[id], s) {
			t.Errorf("%s: got %v, want %v", id, shapes[id], s)
		}
	}
}

func TestInferShapesSamePadding(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:       "same",
		InputShape: []int{28, 28, 3},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("c", "conv2d", map[string]any{"filters": 16, "kernel": []any{5, 5}, "strides": []any{2, 2}, "padding": "same"}),
		},
		Connections: connect([2]string{"in", "c"}),
	}
	shapes, issues := InferShapes(n, cat)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if got := shapes["c"]; !reflect.DeepEqual(got, []int{14, 14, 16}) {
		t.Fatalf("same padding shape = %v", got)
	}
}

func TestInferShapesBranchAndConcat(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:       "forked",
		InputShape: []int{16},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("a", "dense", map[string]any{"units": 3}),
			block("b", "dense", map[string]any{"units": 5}),
			block("cat", "concat", map[string]any{"axis": -1}),
		},
		Connections: connect(
			[2]string{"in", "a"}, [2]string{"in", "b"},
			[2]string{"a", "cat"}, [2]string{"b", "cat"},
		),
	}
	shapes, issues := InferShapes(n, cat)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if got := shapes["cat"]; !reflect.DeepEqual(got, []int{8}) {
		t.Fatalf("concat shape = %v", got)
	}
}

func TestInferShapesAddRequiresSameShapes(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:       "mismatch",
		InputShape: []int{16},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("a", "dense", map[string]any{"units": 3}),
			block("b", "dense", map[string]any{"units": 5}),
			block("sum", "add", nil),
		},
		Connections: connect(
			[2]string{"in", "a"}, [2]string{"in", "b"},
			[2]string{"a", "sum"}, [2]string{"b", "sum"},
		),
	}
	shapes, issues := InferShapes(n, cat)
	if len(issues) != 1 || issues[0].BlockID != "sum" || issues[0].Code != CodeShape {
		t.Fatalf("issues = %v", issues)
	}
	if _, ok := shapes["sum"]; ok {
		t.Fatalf("mismatched add must not get a shape")
	}
}

func TestInferShapesRecurrent(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:       "seq",
		InputShape: []int{50},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("emb", "embedding", map[string]any{"vocabSize": 1000, "dim": 64}),
			block("l1", "lstm", map[string]any{"units": 32, "returnSequences": true}),
			block("l2", "gru", map[string]any{"units": 16}),
		},
		Connections: connect(
			[2]string{"in", "emb"}, [2]string{"emb", "l1"}, [2]string{"l1", "l2"},
		),
	}
	shapes, issues := InferShapes(n, cat)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if got := shapes["emb"]; !reflect.DeepEqual(got, []int{50, 64}) {
		t.Fatalf("embedding shape = %v", got)
	}
	if got := shapes["l1"]; !reflect.DeepEqual(got, []int{50, 32}) {
		t.Fatalf("lstm shape = %v", got)
	}
	if got := shapes["l2"]; !reflect.DeepEqual(got, []int{16}) {
		t.Fatalf("gru shape = %v", got)
	}
}

func TestInferShapesReshape(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:       "reshape",
		InputShape: []int{784},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("r", "reshape", map[string]any{"shape": []any{28, -1, 1}}),
		},
		Connections: connect([2]string{"in", "r"}),
	}
	shapes, issues := InferShapes(n, cat)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if got := shapes["r"]; !reflect.DeepEqual(got, []int{28, 28, 1}) {
		t.Fatalf("reshape = %v", got)
	}

	n.Blocks[1].Params["shape"] = []any{5, -1}
	_, issues = InferShapes(n, cat)
	if len(issues) != 1 || issues[0].BlockID != "r" {
		t.Fatalf("expected one reshape issue, got %v", issues)
	}
}

func TestInferShapesStopsDownstreamOfFailure(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:       "tiny",
		InputShape: []int{4, 4, 1},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("c", "conv2d", map[string]any{"filters": 4, "kernel": []any{9, 9}, "padding": "valid"}),
			block("f", "flatten", nil),
		},
		Connections: connect([2]string{"in", "c"}, [2]string{"c", "f"}),
	}
	shapes, issues := InferShapes(n, cat)
	if len(issues) != 1 || issues[0].BlockID != "c" {
		t.Fatalf("issues = %v", issues)
	}
	if _, ok := shapes["f"]; ok {
		t.Fatalf("downstream of a failed rule must stay unresolved")
	}
}
