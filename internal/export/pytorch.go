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
	"strconv"
	"strings"
	"unicode"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/graph"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

// PyTorch code generation. The network becomes one nn.Module subclass:
// __init__ declares a module per block in topological order and forward
// replays the graph. Lazy modules stand in wherever the in-channel or
// in-feature count would otherwise have to be inferred here.

// activationModules maps activation names to torch module constructors.
// linear means no module at all.
var activationModules = map[string]string{
	"linear":  "",
	"relu":    "nn.ReLU()",
	"sigmoid": "nn.Sigmoid()",
	"softmax": "nn.Softmax(dim=-1)",
	"tanh":    "nn.Tanh()",
	"elu":     "nn.ELU()",
	"selu":    "nn.SELU()",
}

// GeneratePyTorch emits Python source defining a torch module for the
// network plus a build_model() constructor.
func GeneratePyTorch(n *domain.Network, cat *catalog.Catalog) (string, error) {
	if n == nil {
		return "", fmt.Errorf("pytorch: nil network")
	}
	order, err := graph.TopoOrder(n)
	if err != nil {
		return "", fmt.Errorf("pytorch: %w", err)
	}
	if len(order) == 0 {
		return "", fmt.Errorf("pytorch: network %q has no blocks", n.Name)
	}
	preds := graph.Predecessors(n)
	shapes, _ := graph.InferShapes(n, cat)

	taken := map[string]bool{"self": true, "torch": true, "nn": true, "x": true}
	names := make(map[string]string, len(order))
	for _, id := range order {
		names[id] = pyIdent(id, taken)
	}

	var params []string
	needsTorch := false
	var initLines, fwdLines []string
	for _, id := range order {
		b := n.BlockByID(id)
		in := preds[id]
		switch b.Type {
		case "input":
			if len(in) > 0 {
				return "", fmt.Errorf("pytorch: input block %s cannot have inbound connections", id)
			}
			params = append(params, names[id])
			continue
		case "add", "concat":
			if len(in) < 2 {
				return "", fmt.Errorf("pytorch: %s block %s needs at least two inputs, has %d", b.Type, id, len(in))
			}
		default:
			if len(in) == 0 {
				return "", fmt.Errorf("pytorch: block %s has no inbound connection", id)
			}
			if len(in) > 1 {
				return "", fmt.Errorf("pytorch: %s block %s takes one input, has %d", b.Type, id, len(in))
			}
		}

		args := make([]string, len(in))
		for i, p := range in {
			args[i] = names[p]
		}
		name := names[id]

		switch b.Type {
		case "dense":
			ctor := fmt.Sprintf("nn.LazyLinear(%d)", b.ParamInt("units", 64))
			if !b.ParamBool("useBias", true) {
				ctor = fmt.Sprintf("nn.LazyLinear(%d, bias=False)", b.ParamInt("units", 64))
			}
			initLines = append(initLines, fmt.Sprintf("self.%s = %s", name, ctor))
			fwdLines = append(fwdLines, fmt.Sprintf("%s = self.%s(%s)", name, name, args[0]))
			if err := appendActivation(&initLines, &fwdLines, name, b.ParamString("activation", "relu"), id); err != nil {
				return "", err
			}

		case "conv2d":
			kernel := b.ParamInts("kernel", []int{3, 3})
			strides := b.ParamInts("strides", []int{1, 1})
			initLines = append(initLines, fmt.Sprintf(
				"self.%s = nn.LazyConv2d(%d, kernel_size=%s, stride=%s, padding=%s)",
				name, b.ParamInt("filters", 32), pyIntTuple(kernel), pyIntTuple(strides),
				pyString(b.ParamString("padding", "valid"))))
			fwdLines = append(fwdLines, fmt.Sprintf("%s = self.%s(%s)", name, name, args[0]))
			if err := appendActivation(&initLines, &fwdLines, name, b.ParamString("activation", "relu"), id); err != nil {
				return "", err
			}

		case "maxpool2d", "avgpool2d":
			class := "nn.MaxPool2d"
			if b.Type == "avgpool2d" {
				class = "nn.AvgPool2d"
			}
			pool := b.ParamInts("pool", []int{2, 2})
			strides := b.ParamInts("strides", pool)
			extra := ""
			if b.ParamString("padding", "valid") == "same" {
				// Torch pooling has no "same"; ceil_mode is the closest fit.
				extra = ", ceil_mode=True"
			}
			initLines = append(initLines, fmt.Sprintf("self.%s = %s(kernel_size=%s, stride=%s%s)",
				name, class, pyIntTuple(pool), pyIntTuple(strides), extra))
			fwdLines = append(fwdLines, fmt.Sprintf("%s = self.%s(%s)", name, name, args[0]))

		case "flatten":
			initLines = append(initLines, fmt.Sprintf("self.%s = nn.Flatten()", name))
			fwdLines = append(fwdLines, fmt.Sprintf("%s = self.%s(%s)", name, name, args[0]))

		case "reshape":
			dims := b.ParamInts("shape", []int{-1})
			parts := make([]string, len(dims))
			for i, d := range dims {
				parts[i] = strconv.Itoa(d)
			}
			fwdLines = append(fwdLines, fmt.Sprintf("%s = %s.reshape(%s.size(0), %s)",
				name, args[0], args[0], strings.Join(parts, ", ")))

		case "dropout":
			initLines = append(initLines, fmt.Sprintf("self.%s = nn.Dropout(p=%s)",
				name, pyValue(b.ParamFloat("rate", 0.5))))
			fwdLines = append(fwdLines, fmt.Sprintf("%s = self.%s(%s)", name, name, args[0]))

		case "batchnorm":
			class := "nn.LazyBatchNorm1d"
			if s, ok := shapes[in[0]]; ok && len(s) == 3 {
				class = "nn.LazyBatchNorm2d"
			}
			initLines = append(initLines, fmt.Sprintf("self.%s = %s()", name, class))
			fwdLines = append(fwdLines, fmt.Sprintf("%s = self.%s(%s)", name, name, args[0]))

		case "activation":
			fn := b.ParamString("fn", "relu")
			mod, ok := activationModules[fn]
			if !ok || mod == "" {
				return "", fmt.Errorf("pytorch: unknown activation %q (block %s)", fn, id)
			}
			initLines = append(initLines, fmt.Sprintf("self.%s = %s", name, mod))
			fwdLines = append(fwdLines, fmt.Sprintf("%s = self.%s(%s)", name, name, args[0]))

		case "embedding":
			initLines = append(initLines, fmt.Sprintf("self.%s = nn.Embedding(%d, %d)",
				name, b.ParamInt("vocabSize", 10000), b.ParamInt("dim", 128)))
			fwdLines = append(fwdLines, fmt.Sprintf("%s = self.%s(%s)", name, name, args[0]))

		case "lstm", "gru":
			class := "nn.LSTM"
			if b.Type == "gru" {
				class = "nn.GRU"
			}
			s, ok := shapes[in[0]]
			if !ok || len(s) != 2 {
				return "", fmt.Errorf("pytorch: cannot infer the feature size feeding %s block %s; fix the network shapes first", b.Type, id)
			}
			initLines = append(initLines, fmt.Sprintf("self.%s = %s(input_size=%d, hidden_size=%d, batch_first=True)",
				name, class, s[1], b.ParamInt("units", 128)))
			fwdLines = append(fwdLines, fmt.Sprintf("%s, _ = self.%s(%s)", name, name, args[0]))
			if !b.ParamBool("returnSequences", false) {
				fwdLines = append(fwdLines, fmt.Sprintf("%s = %s[:, -1, :]", name, name))
			}

		case "add":
			fwdLines = append(fwdLines, fmt.Sprintf("%s = %s", name, strings.Join(args, " + ")))

		case "concat":
			needsTorch = true
			axis := b.ParamInt("axis", -1)
			dim := axis
			if axis >= 0 {
				// Catalog axes skip the batch dimension; torch dims do not.
				dim = axis + 1
			}
			fwdLines = append(fwdLines, fmt.Sprintf("%s = torch.cat([%s], dim=%d)",
				name, strings.Join(args, ", "), dim))

		default:
			return "", fmt.Errorf("pytorch: no module mapping for block type %q (block %s)", b.Type, id)
		}
	}

	if len(params) == 0 {
		return "", fmt.Errorf("pytorch: network %q has no input block", n.Name)
	}
	var rets []string
	for _, id := range graph.Leaves(n) {
		rets = append(rets, names[id])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Generated by %s\n", version.String())
	fmt.Fprintf(&sb, "# Network: %s (target: %s)\n\n", n.Name, n.Target)
	if needsTorch {
		sb.WriteString("import torch\n")
	}
	sb.WriteString("from torch import nn\n\n\n")

	class := pyClassName(n.Name)
	fmt.Fprintf(&sb, "class %s(nn.Module):\n", class)
	sb.WriteString("    def __init__(self):\n        super().__init__()\n")
	if len(initLines) == 0 {
		sb.WriteString("        pass\n")
	}
	for _, l := range initLines {
		sb.WriteString("        " + l + "\n")
	}
	fmt.Fprintf(&sb, "\n    def forward(self, %s):\n", strings.Join(params, ", "))
	for _, l := range fwdLines {
		sb.WriteString("        " + l + "\n")
	}
	fmt.Fprintf(&sb, "        return %s\n", strings.Join(rets, ", "))

	fmt.Fprintf(&sb, "\n\ndef build_model():\n    return %s()\n", class)
	sb.WriteString("\n\nif __name__ == \"__main__\":\n    print(build_model())\n")
	return sb.String(), nil
}

func appendActivation(initLines, fwdLines *[]string, name, fn, blockID string) error {
	mod, ok := activationModules[fn]
	if !ok {
		return fmt.Errorf("pytorch: unknown activation %q (block %s)", fn, blockID)
	}
	if mod == "" {
		return nil
	}
	*initLines = append(*initLines, fmt.Sprintf("self.%s_act = %s", name, mod))
	*fwdLines = append(*fwdLines, fmt.Sprintf("%s = self.%s_act(%s)", name, name, name))
	return nil
}

// pyClassName derives a PascalCase Python class name from a network name.
func pyClassName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "Model"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "Net" + s
	}
	return s
}
