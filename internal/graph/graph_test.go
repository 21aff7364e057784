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
	"strings"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

func mustCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func block(id, typ string, params map[string]any) domain.Block {
	return domain.Block{ID: id, Type: typ, Params: params}
}

func connect(pairs ...[2]string) []domain.Connection {
	out := make([]domain.Connection, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, domain.Connection{From: p[0], To: p[1]})
	}
	return out
}

func denseChain() *domain.Network {
	return &domain.Network{
		Name:       "mnist",
		Target:     domain.TargetTensorFlow,
		InputShape: []int{784},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("d1", "dense", map[string]any{"units": 128, "activation": "relu"}),
			block("d2", "dense", map[string]any{"units": 10, "activation": "softmax"}),
		},
		Connections: connect([2]string{"in", "d1"}, [2]string{"d1", "d2"}),
	}
}

func TestValidateCleanNetwork(t *testing.T) {
	cat := mustCatalog(t)
	if issues := Validate(denseChain(), cat); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestValidateFindsStructuralProblems(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:       "broken",
		InputShape: []int{8},
		Blocks: []domain.Block{
			block("in", "input", nil),
			block("d1", "dense", map[string]any{"units": 4}),
			block("d1", "dense", map[string]any{"units": 4}),
			block("x", "warp", nil),
			block("m", "add", nil),
			block("lone", "dense", map[string]any{"units": 2}),
		},
		Connections: []domain.Connection{
			{From: "in", To: "d1"},
			{From: "in", To: "d1"},
			{From: "d1", To: "d1"},
			{From: "ghost", To: "d1"},
			{From: "in", To: "m"},
		},
	}
	issues := Validate(n, cat)
	want := map[string]bool{
		CodeDuplicateID:   false,
		CodeUnknownType:   false,
		CodeDuplicateEdge: false,
		CodeSelfLoop:      false,
		CodeBadEndpoint:   false,
		CodeArity:         false, // add with a single input
		CodeDisconnected:  false, // lone dense
	}
	for _, i := range issues {
		if _, tracked := want[i.Code]; tracked {
			want[i.Code] = true
		}
	}
	for code, hit := range want {
		if !hit {
			t.Errorf("missing %s in %v", code, issues)
		}
	}
}

func TestValidateReportsMissingInput(t *testing.T) {
	cat := mustCatalog(t)
	n := &domain.Network{
		Name:        "headless",
		Blocks:      []domain.Block{block("f", "flatten", nil)},
		Connections: nil,
	}
	found := false
	for _, i := range Validate(n, cat) {
		if i.Code == CodeNoInput {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a %s issue", CodeNoInput)
	}
}

func TestValidateReportsCycle(t *testing.T) {
	cat := mustCatalog(t)
	n := denseChain()
	n.Connections = append(n.Connections, domain.Connection{From: "d2", To: "d1"})
	found := false
	for _, i := range Validate(n, cat) {
		if i.Code == CodeCycle {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a %s issue", CodeCycle)
	}
}

func TestTopoOrderChain(t *testing.T) {
	order, err := TopoOrder(denseChain())
	if err != nil {
		t.Fatalf("TopoOrder: %v", err)
	}
	if got := strings.Join(order, ","); got != "in,d1,d2" {
		t.Fatalf("order = %s", got)
	}
}

func TestTopoOrderBreaksTiesBySliceOrder(t *testing.T) {
	diamond := func(first, second string) *domain.Network {
		return &domain.Network{
			Name:       "d",
			InputShape: []int{4},
			Blocks: []domain.Block{
				block("in", "input", nil),
				block(first, "dense", map[string]any{"units": 4}),
				block(second, "dense", map[string]any{"units": 4}),
				block("m", "add", nil),
			},
			Connections: connect(
				[2]string{"in", "a"}, [2]string{"in", "b"},
				[2]string{"a", "m"}, [2]string{"b", "m"},
			),
		}
	}

	order, err := TopoOrder(diamond("a", "b"))
	if err != nil {
		t.Fatalf("TopoOrder: %v", err)
	}
	if got := strings.Join(order, ","); got != "in,a,b,m" {
		t.Fatalf("order = %s", got)
	}
	order, err = TopoOrder(diamond("b", "a"))
	if err != nil {
		t.Fatalf("TopoOrder: %v", err)
	}
	if got := strings.Join(order, ","); got != "in,b,a,m" {
		t.Fatalf("order = %s", got)
	}
}

func TestTopoOrderRejectsCycle(t *testing.T) {
	n := denseChain()
	n.Connections = append(n.Connections, domain.Connection{From: "d2", To: "d1"})
	if _, err := TopoOrder(n); err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestRootsAndLeaves(t *testing.T) {
	n := denseChain()
	if got := Roots(n); len(got) != 1 || got[0] != "in" {
		t.Fatalf("roots = %v", got)
	}
	if got := Leaves(n); len(got) != 1 || got[0] != "d2" {
		t.Fatalf("leaves = %v", got)
	}
}

func TestFingerprintIgnoresSliceOrder(t *testing.T) {
	a := denseChain()
	b := denseChain()
	b.Blocks[1], b.Blocks[2] = b.Blocks[2], b.Blocks[1]
	b.Connections[0], b.Connections[1] = b.Connections[1], b.Connections[0]
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("reordering slices changed the fingerprint")
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	a := denseChain()
	b := denseChain()
	b.Blocks[1].Params["units"] = 256
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatalf("param change did not change the fingerprint")
	}
	c := denseChain()
	c.Blocks[1].Position = domain.Point{X: 10, Y: 20}
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatalf("moving a block should change the fingerprint")
	}
}
