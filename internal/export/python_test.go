/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"strings"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

func exportCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("builtin catalog: %v", err)
	}
	return c
}

// chainNetwork is a plain single-path classifier.
func chainNetwork() *domain.Network {
	return &domain.Network{
		Name:       "mnist",
		Target:     domain.TargetTensorFlow,
		InputShape: []int{28, 28, 1},
		Blocks: []domain.Block{
			{ID: "in", Type: "input"},
			{ID: "f", Type: "flatten"},
			{ID: "d1", Type: "dense", Params: map[string]any{"units": 128, "activation": "relu"}},
			{ID: "drop", Type: "dropout", Params: map[string]any{"rate": 0.25}},
			{ID: "d2", Type: "dense", Params: map[string]any{"units": 10, "activation": "softmax"}},
		},
		Connections: []domain.Connection{
			{From: "in", To: "f"},
			{From: "f", To: "d1"},
			{From: "d1", To: "drop"},
			{From: "drop", To: "d2"},
		},
	}
}

// branchNetwork forks after the input and rejoins with an add block.
func branchNetwork() *domain.Network {
	return &domain.Network{
		Name:       "branchy",
		Target:     domain.TargetTensorFlow,
		InputShape: []int{784},
		Blocks: []domain.Block{
			{ID: "in", Type: "input"},
			{ID: "d1", Type: "dense", Params: map[string]any{"units": 16}},
			{ID: "d2", Type: "dense", Params: map[string]any{"units": 16}},
			{ID: "join", Type: "add"},
			{ID: "out", Type: "dense", Params: map[string]any{"units": 10}},
		},
		Connections: []domain.Connection{
			{From: "in", To: "d1"},
			{From: "in", To: "d2"},
			{From: "d1", To: "join"},
			{From: "d2", To: "join"},
			{From: "join", To: "out"},
		},
	}
}

func wantContains(t *testing.T, src string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(src, w) {
			t.Fatalf("generated source missing %q:\n%s", w, src)
		}
	}
}

func TestGenerateKerasSequentialChain(t *testing.T) {
	cat := exportCatalog(t)
	src, err := GenerateKeras(chainNetwork(), cat)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	wantContains(t, src,
		"# Network: mnist (target: tensorflow)",
		"model = keras.Sequential(name=\"mnist\")",
		"model.add(layers.InputLayer(input_shape=(28, 28, 1)))",
		"model.add(layers.Flatten())",
		"model.add(layers.Dense(units=128, activation=\"relu\", use_bias=True))",
		"model.add(layers.Dropout(rate=0.25))",
		"model.add(layers.Dense(units=10, activation=\"softmax\", use_bias=True))",
		"return model",
	)
	if strings.Contains(src, "keras.Model(") {
		t.Fatalf("chain should use the sequential API:\n%s", src)
	}
}

func TestGenerateKerasFunctionalBranch(t *testing.T) {
	cat := exportCatalog(t)
	src, err := GenerateKeras(branchNetwork(), cat)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	wantContains(t, src,
		"in_ = keras.Input(shape=(784,), name=\"in\")",
		"d1 = layers.Dense(units=16, activation=\"relu\", use_bias=True)(in_)",
		"join = layers.Add()([d1, d2])",
		"out = layers.Dense(units=10, activation=\"relu\", use_bias=True)(join)",
		"return keras.Model(inputs=[in_], outputs=[out], name=\"branchy\")",
	)
	if strings.Contains(src, "keras.Sequential(") {
		t.Fatalf("branched graph should use the functional API:\n%s", src)
	}
}

func TestGenerateKerasDeterministic(t *testing.T) {
	cat := exportCatalog(t)
	for _, n := range []*domain.Network{chainNetwork(), branchNetwork()} {
		a, err := GenerateKeras(n, cat)
		if err != nil {
			t.Fatalf("generate %s: %v", n.Name, err)
		}
		b, err := GenerateKeras(n, cat)
		if err != nil {
			t.Fatalf("generate %s again: %v", n.Name, err)
		}
		if a != b {
			t.Fatalf("output for %s changed between runs", n.Name)
		}
	}
}

func TestGenerateKerasUnknownTypeFails(t *testing.T) {
	cat := exportCatalog(t)
	n := chainNetwork()
	n.Blocks[2].Type = "quantum_gate"
	if _, err := GenerateKeras(n, cat); err == nil || !strings.Contains(err.Error(), "quantum_gate") {
		t.Fatalf("want unknown-type error, got %v", err)
	}
}

func TestGenerateKerasBranchNeedsInputShape(t *testing.T) {
	cat := exportCatalog(t)
	n := branchNetwork()
	n.InputShape = nil
	if _, err := GenerateKeras(n, cat); err == nil {
		t.Fatalf("want error for missing input shape")
	}
}

func TestPyIdentKeywordsAndCollisions(t *testing.T) {
	taken := map[string]bool{}
	if got := pyIdent("in", taken); got != "in_" {
		t.Fatalf("keyword: got %q", got)
	}
	if got := pyIdent("2fast", taken); got != "v2fast" {
		t.Fatalf("leading digit: got %q", got)
	}
	if got := pyIdent("a-b", taken); got != "a_b" {
		t.Fatalf("punctuation: got %q", got)
	}
	if got := pyIdent("a.b", taken); got != "a_b_2" {
		t.Fatalf("collision: got %q", got)
	}
}

func TestPyTupleSingleElement(t *testing.T) {
	got, err := pyTuple([]any{784})
	if err != nil {
		t.Fatalf("tuple: %v", err)
	}
	if got != "(784,)" {
		t.Fatalf("one-element tuple needs a trailing comma, got %q", got)
	}
}
