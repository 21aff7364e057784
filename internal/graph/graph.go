/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package graph checks the structure of a network and derives orderings
// and tensor shapes from it. Export refuses a network that still has
// issues; the builder surfaces them live instead.
package graph

import (
	"fmt"
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

// Issue is one finding about a network. BlockID is empty for findings
// that concern the network as a whole.
type Issue struct {
	BlockID string `json:"blockId,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.BlockID == "" {
		return i.Code + ": " + i.Message
	}
	return i.Code + " (" + i.BlockID + "): " + i.Message
}

// Issue codes reported by Validate and InferShapes.
const (
	CodeEmptyID       = "empty-id"
	CodeDuplicateID   = "duplicate-id"
	CodeUnknownType   = "unknown-type"
	CodeBadEndpoint   = "bad-endpoint"
	CodeSelfLoop      = "self-loop"
	CodeDuplicateEdge = "duplicate-edge"
	CodeNoInput       = "no-input"
	CodeArity         = "arity"
	CodeDisconnected  = "disconnected"
	CodeCycle         = "cycle"
	CodeShape         = "shape"
)

// Validate reports every structural problem it can find. A nil catalog
// skips the type and arity checks, leaving the id and edge checks.
func Validate(n *domain.Network, cat *catalog.Catalog) []Issue {
	var issues []Issue
	report := func(blockID, code, format string, args ...any) {
		issues = append(issues, Issue{BlockID: blockID, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	known := make(map[string]bool, len(n.Blocks))
	hasInput := false
	for _, b := range n.Blocks {
		if b.ID == "" {
			report("", CodeEmptyID, "block of type %q has no id", b.Type)
			continue
		}
		if known[b.ID] {
			report(b.ID, CodeDuplicateID, "block id %q used more than once", b.ID)
			continue
		}
		known[b.ID] = true
		if cat != nil {
			if _, ok := cat.Lookup(b.Type); !ok {
				report(b.ID, CodeUnknownType, "unknown block type %q", b.Type)
			}
		}
		if b.Type == "input" {
			hasInput = true
		}
	}
	if !hasInput {
		report("", CodeNoInput, "network has no input block")
	}

	type edge struct{ from, to string }
	seen := make(map[edge]bool, len(n.Connections))
	incoming := make(map[string]int)
	for _, c := range n.Connections {
		if !known[c.From] {
			report(c.From, CodeBadEndpoint, "connection source %q does not exist", c.From)
			continue
		}
		if !known[c.To] {
			report(c.To, CodeBadEndpoint, "connection target %q does not exist", c.To)
			continue
		}
		if c.From == c.To {
			report(c.From, CodeSelfLoop, "block %q connects to itself", c.From)
			continue
		}
		e := edge{c.From, c.To}
		if seen[e] {
			report(c.To, CodeDuplicateEdge, "duplicate connection %s -> %s", c.From, c.To)
			continue
		}
		seen[e] = true
		incoming[c.To]++
	}

	if cat != nil {
		for _, b := range n.Blocks {
			spec, ok := cat.Lookup(b.Type)
			if !ok {
				continue
			}
			in := incoming[b.ID]
			switch {
			case spec.Inputs == 0 && in > 0:
				report(b.ID, CodeArity, "%s takes no inputs but has %d", b.Type, in)
			case spec.Inputs == 1 && in > 1:
				report(b.ID, CodeArity, "%s takes one input but has %d", b.Type, in)
			case spec.Inputs == 1 && in == 0:
				report(b.ID, CodeDisconnected, "%s %q has no incoming connection", b.Type, b.ID)
			case spec.Inputs < 0 && in < 2:
				report(b.ID, CodeArity, "%s needs at least two inputs, has %d", b.Type, in)
			}
		}
	}

	if _, err := TopoOrder(n); err != nil {
		report("", CodeCycle, "%v", err)
	}
	return issues
}

// TopoOrder returns the block ids in dependency order. Ties are broken
// by position in the block slice so the order is stable across runs.
// Connections with unknown endpoints are ignored; a cycle is an error.
func TopoOrder(n *domain.Network) ([]string, error) {
	index := make(map[string]int, len(n.Blocks))
	for i, b := range n.Blocks {
		if _, dup := index[b.ID]; !dup && b.ID != "" {
			index[b.ID] = i
		}
	}

	type edge struct{ from, to string }
	seen := make(map[edge]bool, len(n.Connections))
	indeg := make(map[string]int, len(n.Blocks))
	succ := make(map[string][]string)
	for _, c := range n.Connections {
		if _, ok := index[c.From]; !ok {
			continue
		}
		if _, ok := index[c.To]; !ok {
			continue
		}
		if c.From == c.To {
			return nil, fmt.Errorf("connections form a cycle (%s)", c.From)
		}
		e := edge{c.From, c.To}
		if seen[e] {
			continue
		}
		seen[e] = true
		indeg[c.To]++
		succ[c.From] = append(succ[c.From], c.To)
	}

	order := make([]string, 0, len(index))
	done := make(map[string]bool, len(index))
	for len(order) < len(index) {
		picked := ""
		for _, b := range n.Blocks {
			if b.ID != "" && !done[b.ID] && indeg[b.ID] == 0 {
				picked = b.ID
				break
			}
		}
		if picked == "" {
			var stuck []string
			for _, b := range n.Blocks {
				if b.ID != "" && !done[b.ID] {
					stuck = append(stuck, b.ID)
				}
			}
			return nil, fmt.Errorf("connections form a cycle (%s)", strings.Join(stuck, ", "))
		}
		done[picked] = true
		order = append(order, picked)
		for _, t := range succ[picked] {
			indeg[t]--
		}
	}
	return order, nil
}

// Roots returns the blocks with no incoming connection, in slice order.
func Roots(n *domain.Network) []string {
	hasIn := make(map[string]bool, len(n.Connections))
	for _, c := range n.Connections {
		hasIn[c.To] = true
	}
	var out []string
	for _, b := range n.Blocks {
		if b.ID != "" && !hasIn[b.ID] {
			out = append(out, b.ID)
		}
	}
	return out
}

// Leaves returns the blocks with no outgoing connection, in slice order.
func Leaves(n *domain.Network) []string {
	hasOut := make(map[string]bool, len(n.Connections))
	for _, c := range n.Connections {
		hasOut[c.From] = true
	}
	var out []string
	for _, b := range n.Blocks {
		if b.ID != "" && !hasOut[b.ID] {
			out = append(out, b.ID)
		}
	}
	return out
}

// Predecessors returns the ids feeding each block, in connection order
// with duplicates and self loops dropped. The order matters: it is the
// argument order for merge blocks.
func Predecessors(n *domain.Network) map[string][]string {
	type edge struct{ from, to string }
	seen := make(map[edge]bool, len(n.Connections))
	out := make(map[string][]string)
	for _, c := range n.Connections {
		if c.From == c.To {
			continue
		}
		e := edge{c.From, c.To}
		if seen[e] {
			continue
		}
		seen[e] = true
		out[c.To] = append(out[c.To], c.From)
	}
	return out
}
