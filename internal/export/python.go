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
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/graph"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

// Keras code generation. A single-input chain becomes keras.Sequential;
// anything with branches or merges uses the functional API. Output is
// deterministic: blocks are emitted in topological order and parameters
// in catalog declaration order.

// kerasArg maps one catalog parameter to a Keras constructor keyword.
type kerasArg struct {
	param string
	kwarg string
	tuple bool // shape-kind values render as Python tuples
}

type kerasLayer struct {
	class string
	args  []kerasArg
}

// kerasLayers maps block types to layer constructors. The input type is
// special-cased by the generators and custom pack types are rejected.
var kerasLayers = map[string]kerasLayer{
	"dense": {"Dense", []kerasArg{
		{param: "units", kwarg: "units"},
		{param: "activation", kwarg: "activation"},
		{param: "useBias", kwarg: "use_bias"},
	}},
	"conv2d": {"Conv2D", []kerasArg{
		{param: "filters", kwarg: "filters"},
		{param: "kernel", kwarg: "kernel_size", tuple: true},
		{param: "strides", kwarg: "strides", tuple: true},
		{param: "padding", kwarg: "padding"},
		{param: "activation", kwarg: "activation"},
	}},
	"maxpool2d": {"MaxPooling2D", []kerasArg{
		{param: "pool", kwarg: "pool_size", tuple: true},
		{param: "strides", kwarg: "strides", tuple: true},
		{param: "padding", kwarg: "padding"},
	}},
	"avgpool2d": {"AveragePooling2D", []kerasArg{
		{param: "pool", kwarg: "pool_size", tuple: true},
		{param: "strides", kwarg: "strides", tuple: true},
		{param: "padding", kwarg: "padding"},
	}},
	"flatten": {"Flatten", nil},
	"reshape": {"Reshape", []kerasArg{
		{param: "shape", kwarg: "target_shape", tuple: true},
	}},
	"dropout": {"Dropout", []kerasArg{
		{param: "rate", kwarg: "rate"},
	}},
	"batchnorm": {"BatchNormalization", nil},
	"activation": {"Activation", []kerasArg{
		{param: "fn", kwarg: "activation"},
	}},
	"embedding": {"Embedding", []kerasArg{
		{param: "vocabSize", kwarg: "input_dim"},
		{param: "dim", kwarg: "output_dim"},
	}},
	"lstm": {"LSTM", []kerasArg{
		{param: "units", kwarg: "units"},
		{param: "returnSequences", kwarg: "return_sequences"},
	}},
	"gru": {"GRU", []kerasArg{
		{param: "units", kwarg: "units"},
		{param: "returnSequences", kwarg: "return_sequences"},
	}},
	"add": {"Add", nil},
	"concat": {"Concatenate", []kerasArg{
		{param: "axis", kwarg: "axis"},
	}},
}

// GenerateKeras emits Python source that builds the network with Keras.
func GenerateKeras(n *domain.Network, cat *catalog.Catalog) (string, error) {
	if n == nil {
		return "", fmt.Errorf("keras: nil network")
	}
	order, err := graph.TopoOrder(n)
	if err != nil {
		return "", fmt.Errorf("keras: %w", err)
	}
	if len(order) == 0 {
		return "", fmt.Errorf("keras: network %q has no blocks", n.Name)
	}
	for _, id := range order {
		b := n.BlockByID(id)
		if b.Type == "input" {
			continue
		}
		if _, ok := kerasLayers[b.Type]; !ok {
			return "", fmt.Errorf("keras: no layer mapping for block type %q (block %s)", b.Type, id)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Generated by %s\n", version.String())
	fmt.Fprintf(&sb, "# Network: %s (target: %s)\n\n", n.Name, n.Target)
	sb.WriteString("from tensorflow import keras\nfrom tensorflow.keras import layers\n\n\n")

	if isChain(n) && inputOnlyAtRoot(n, order) {
		if err := emitSequential(&sb, n, cat, order); err != nil {
			return "", err
		}
	} else {
		if err := emitFunctional(&sb, n, cat, order); err != nil {
			return "", err
		}
	}

	sb.WriteString("\n\nif __name__ == \"__main__\":\n    build_model().summary()\n")
	return sb.String(), nil
}

func emitSequential(sb *strings.Builder, n *domain.Network, cat *catalog.Catalog, order []string) error {
	sb.WriteString("def build_model():\n")
	fmt.Fprintf(sb, "    model = keras.Sequential(name=%s)\n", pyString(n.Name))
	for i, id := range order {
		b := n.BlockByID(id)
		if b.Type == "input" {
			if len(n.InputShape) > 0 {
				fmt.Fprintf(sb, "    model.add(layers.InputLayer(input_shape=%s))\n", pyIntTuple(n.InputShape))
			}
			continue
		}
		if i == 0 && len(n.InputShape) > 0 {
			// Chain without an input block still gets its shape pinned.
			fmt.Fprintf(sb, "    model.add(layers.InputLayer(input_shape=%s))\n", pyIntTuple(n.InputShape))
		}
		expr, err := kerasLayerExpr(b, cat)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "    model.add(%s)\n", expr)
	}
	sb.WriteString("    return model\n")
	return nil
}

func emitFunctional(sb *strings.Builder, n *domain.Network, cat *catalog.Catalog, order []string) error {
	preds := graph.Predecessors(n)
	taken := map[string]bool{"keras": true, "layers": true, "model": true}
	names := make(map[string]string, len(order))
	for _, id := range order {
		names[id] = pyIdent(id, taken)
	}

	sb.WriteString("def build_model():\n")
	for _, id := range order {
		b := n.BlockByID(id)
		if b.Type == "input" {
			if len(n.InputShape) == 0 {
				return fmt.Errorf("keras: network %q needs an input shape for block %s", n.Name, id)
			}
			fmt.Fprintf(sb, "    %s = keras.Input(shape=%s, name=%s)\n", names[id], pyIntTuple(n.InputShape), pyString(id))
			continue
		}
		in := preds[id]
		if len(in) == 0 {
			return fmt.Errorf("keras: block %s has no inbound connection; branched networks must start at input blocks", id)
		}
		expr, err := kerasLayerExpr(b, cat)
		if err != nil {
			return err
		}
		if len(in) == 1 {
			fmt.Fprintf(sb, "    %s = %s(%s)\n", names[id], expr, names[in[0]])
			continue
		}
		args := make([]string, len(in))
		for i, p := range in {
			args[i] = names[p]
		}
		fmt.Fprintf(sb, "    %s = %s([%s])\n", names[id], expr, strings.Join(args, ", "))
	}

	var ins, outs []string
	for _, id := range graph.Roots(n) {
		ins = append(ins, names[id])
	}
	for _, id := range graph.Leaves(n) {
		outs = append(outs, names[id])
	}
	fmt.Fprintf(sb, "    return keras.Model(inputs=[%s], outputs=[%s], name=%s)\n",
		strings.Join(ins, ", "), strings.Join(outs, ", "), pyString(n.Name))
	return nil
}

// kerasLayerExpr renders one layer constructor, e.g.
// layers.Dense(units=128, activation="relu", use_bias=True).
func kerasLayerExpr(b *domain.Block, cat *catalog.Catalog) (string, error) {
	l := kerasLayers[b.Type]
	parts := make([]string, 0, len(l.args))
	for _, a := range l.args {
		v := paramValue(b, cat, a.param)
		if v == nil {
			continue
		}
		var rendered string
		if a.tuple {
			t, err := pyTuple(v)
			if err != nil {
				return "", fmt.Errorf("keras: block %s param %s: %w", b.ID, a.param, err)
			}
			rendered = t
		} else {
			rendered = pyValue(v)
		}
		parts = append(parts, fmt.Sprintf("%s=%s", a.kwarg, rendered))
	}
	return fmt.Sprintf("layers.%s(%s)", l.class, strings.Join(parts, ", ")), nil
}

// paramValue resolves a block parameter: explicit value first, then the
// catalog default, then nil (omit the keyword).
func paramValue(b *domain.Block, cat *catalog.Catalog, name string) any {
	if v, ok := b.Params[name]; ok {
		return v
	}
	if cat == nil {
		return nil
	}
	spec, ok := cat.Lookup(b.Type)
	if !ok {
		return nil
	}
	for _, p := range spec.Params {
		if p.Name == name {
			return p.Default
		}
	}
	return nil
}

// isChain reports whether every block has at most one inbound and one
// outbound edge and at most one block starts the network.
func isChain(n *domain.Network) bool {
	preds := graph.Predecessors(n)
	type edge struct{ from, to string }
	seen := make(map[edge]bool, len(n.Connections))
	succs := make(map[string]int, len(n.Blocks))
	for _, c := range n.Connections {
		if c.From == c.To {
			continue
		}
		e := edge{c.From, c.To}
		if seen[e] {
			continue
		}
		seen[e] = true
		succs[c.From]++
	}
	for _, b := range n.Blocks {
		if len(preds[b.ID]) > 1 || succs[b.ID] > 1 {
			return false
		}
	}
	return len(graph.Roots(n)) <= 1
}

// inputOnlyAtRoot rejects chains with an input block anywhere but first.
func inputOnlyAtRoot(n *domain.Network, order []string) bool {
	for i, id := range order {
		if b := n.BlockByID(id); b != nil && b.Type == "input" && i > 0 {
			return false
		}
	}
	return true
}

var pyKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true,
	"finally": true, "for": true, "from": true, "global": true, "if": true,
	"import": true, "in": true, "is": true, "lambda": true, "nonlocal": true,
	"not": true, "or": true, "pass": true, "raise": true, "return": true,
	"try": true, "while": true, "with": true, "yield": true,
}

// pyIdent turns a block id into a unique Python identifier.
func pyIdent(id string, taken map[string]bool) string {
	var b strings.Builder
	for _, r := range id {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" {
		s = "v"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "v" + s
	}
	if pyKeywords[s] {
		s += "_"
	}
	base := s
	for i := 2; taken[s]; i++ {
		s = fmt.Sprintf("%s_%d", base, i)
	}
	taken[s] = true
	return s
}

// pyValue renders a parameter value as a Python literal.
func pyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return pyString(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return pyFloat(float64(t))
	case float64:
		return pyFloat(t)
	}
	return fmt.Sprintf("%v", v)
}

func pyFloat(f float64) string {
	// JSON numbers decode as float64; keep integral values as ints.
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func pyString(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n")
	return "\"" + r.Replace(s) + "\""
}

// pyTuple renders a shape-kind value as a Python tuple, with the trailing
// comma a one-element tuple needs.
func pyTuple(v any) (string, error) {
	ints, ok := asIntSlice(v)
	if !ok {
		return "", fmt.Errorf("expected a list of ints, got %T", v)
	}
	if len(ints) == 1 {
		return fmt.Sprintf("(%d,)", ints[0]), nil
	}
	parts := make([]string, len(ints))
	for i, d := range ints {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

func pyIntTuple(ints []int) string {
	s, _ := pyTuple(ints)
	return s
}

// asIntSlice normalizes the int-list shapes YAML and JSON decode to.
func asIntSlice(v any) ([]int, bool) {
	switch t := v.(type) {
	case []int:
		return t, true
	case int:
		return []int{t}, true
	case int64:
		return []int{int(t)}, true
	case float64:
		if t != math.Trunc(t) {
			return nil, false
		}
		return []int{int(t)}, true
	case []any:
		out := make([]int, 0, len(t))
		for _, e := range t {
			switch d := e.(type) {
			case int:
				out = append(out, d)
			case int64:
				out = append(out, int(d))
			case float64:
				if d != math.Trunc(d) {
					return nil, false
				}
				out = append(out, int(d))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}
