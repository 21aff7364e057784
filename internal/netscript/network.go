/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package netscript

import (
	"fmt"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

// Network converts the definition into a domain network. Syntax has
// already been handled by Parse; this step catches the semantic problems
// a script can still carry: duplicate block ids, chain endpoints that
// name no block and unsupported targets. Blocks get cascading default
// positions so an imported network is editable before any layout pass.
func (d NetworkDef) Network() (domain.Network, []Error) {
	var errs []Error
	report := func(line int, format string, args ...any) {
		errs = append(errs, Error{Line: line, Column: 1, Message: fmt.Sprintf(format, args...)})
	}

	n := domain.Network{
		Name:        d.Name,
		Target:      d.Target,
		InputShape:  d.InputShape,
		Notes:       d.Notes,
		Blocks:      make([]domain.Block, 0, len(d.Blocks)),
		Connections: make([]domain.Connection, 0, len(d.Conns)),
	}
	switch n.Target {
	case "":
		n.Target = domain.TargetTensorFlow
	case domain.TargetTensorFlow, domain.TargetPyTorch:
	default:
		report(d.LineNo, "unsupported target %q", n.Target)
	}

	known := make(map[string]bool, len(d.Blocks))
	for _, b := range d.Blocks {
		if known[b.ID] {
			report(b.LineNo, "block id %q used more than once", b.ID)
			continue
		}
		known[b.ID] = true
		step := float64(24 * (len(n.Blocks)%10 + 1))
		n.Blocks = append(n.Blocks, domain.Block{
			ID:       b.ID,
			Type:     b.Type,
			Params:   b.Params,
			Position: domain.Point{X: step, Y: step},
		})
	}
	for _, c := range d.Conns {
		if !known[c.From] {
			report(c.LineNo, "connection source %q does not exist", c.From)
			continue
		}
		if !known[c.To] {
			report(c.LineNo, "connection target %q does not exist", c.To)
			continue
		}
		n.Connections = append(n.Connections, domain.Connection{From: c.From, To: c.To})
	}
	return n, errs
}
