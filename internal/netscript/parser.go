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
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Parse parses a network script into a structured Document.
// Supported syntax (minimal):
// - Network headings:
//   - Lines starting with "#" or "network:" introduce a new network. The rest of the line is the name.
//
// - Directives: "target: tensorflow|pytorch" and "input: 28 28 1" (brackets and commas allowed).
// - Blocks: TYPE [ID] [key=value ...]  (TYPE names a catalog entry; ID is generated as TYPE<n> when omitted)
//   - Continuation lines indented by 2+ spaces add key=value parameters to the previous block.
//
// - Connections: "a -> b -> c" chains contribute one edge per arrow.
// - Notes: lines starting with ';' accumulate into the network's notes.
// Blank lines end a block's continuation but are otherwise ignored.
// Lines that fit none of the above are reported as errors and skipped.
func Parse(input string) (Document, []Error) {
	doc := Document{Networks: []NetworkDef{}}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	current := NetworkDef{}
	var lastBlock *BlockDef
	typeCounts := map[string]int{}

	// Patterns
	reHeading := regexp.MustCompile(`^(#+)\s*(.*)$`)
	reHeadingAlt := regexp.MustCompile(`(?i)^\s*network:\s*(.+)$`)
	reDirective := regexp.MustCompile(`(?i)^(target|input)\s*:\s*(.*)$`)
	reBlock := regexp.MustCompile(`^([a-z][a-z0-9_]*)\s*(.*)$`)
	reIdent := regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-]*$`)

	report := func(format string, args ...any) {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: fmt.Sprintf(format, args...)})
	}

	// ensureNamed starts an implicit network when content precedes a heading.
	ensureNamed := func() {
		if len(doc.Networks) == 0 && strings.TrimSpace(current.Name) == "" && len(current.Blocks) == 0 && len(current.Conns) == 0 {
			current.Name = "untitled"
			current.LineNo = lineNo
		}
	}

	flushNetwork := func() {
		if strings.TrimSpace(current.Name) != "" || len(current.Blocks) > 0 || len(current.Conns) > 0 {
			doc.Networks = append(doc.Networks, current)
		}
	}

	parseParams := func(dst map[string]any, tokens []string, allowID bool) (id string) {
		for _, tok := range tokens {
			if k, v, ok := strings.Cut(tok, "="); ok {
				if k == "" {
					report("parameter %q has no name", tok)
					continue
				}
				dst[k] = coerceValue(v)
				continue
			}
			if allowID && id == "" && reIdent.MatchString(tok) {
				id = tok
				continue
			}
			report("unexpected token %q, want key=value", tok)
		}
		return id
	}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimRight(raw, "\r\n")

		// Continuation line (indented) -> parameters for the previous block
		if strings.HasPrefix(line, "  ") && lastBlock != nil {
			if cont := strings.Fields(line); len(cont) > 0 {
				if lastBlock.Params == nil {
					lastBlock.Params = map[string]any{}
				}
				parseParams(lastBlock.Params, cont, false)
			}
			continue
		}

		trim := strings.TrimSpace(line)
		if trim == "" {
			lastBlock = nil
			continue
		}

		// Network heading
		if m := reHeading.FindStringSubmatch(trim); m != nil {
			flushNetwork()
			current = NetworkDef{Name: strings.TrimSpace(m[2]), LineNo: lineNo}
			lastBlock = nil
			typeCounts = map[string]int{}
			continue
		}
		if m := reHeadingAlt.FindStringSubmatch(trim); m != nil {
			flushNetwork()
			current = NetworkDef{Name: strings.TrimSpace(m[1]), LineNo: lineNo}
			lastBlock = nil
			typeCounts = map[string]int{}
			continue
		}

		// Note line
		if strings.HasPrefix(trim, ";") {
			ensureNamed()
			note := strings.TrimSpace(strings.TrimPrefix(trim, ";"))
			if note != "" {
				if current.Notes != "" {
					current.Notes += "\n"
				}
				current.Notes += note
			}
			lastBlock = nil
			continue
		}

		// Directive
		if m := reDirective.FindStringSubmatch(trim); m != nil {
			ensureNamed()
			val := strings.TrimSpace(m[2])
			switch strings.ToLower(m[1]) {
			case "target":
				current.Target = strings.ToLower(val)
			case "input":
				if shape, ok := parseShape(val); ok {
					current.InputShape = shape
				} else {
					report("input shape %q is not a list of integers", val)
				}
			}
			lastBlock = nil
			continue
		}

		// Connection chain
		if strings.Contains(trim, "->") {
			ensureNamed()
			parts := strings.Split(trim, "->")
			ids := make([]string, 0, len(parts))
			ok := true
			for _, p := range parts {
				id := strings.TrimSpace(p)
				if !reIdent.MatchString(id) {
					report("bad connection endpoint %q", id)
					ok = false
					break
				}
				ids = append(ids, id)
			}
			if ok {
				for i := 0; i+1 < len(ids); i++ {
					current.Conns = append(current.Conns, ConnDef{From: ids[i], To: ids[i+1], LineNo: lineNo})
				}
			}
			lastBlock = nil
			continue
		}

		// Block line: TYPE [ID] [key=value ...]
		if m := reBlock.FindStringSubmatch(trim); m != nil {
			ensureNamed()
			typ := m[1]
			typeCounts[typ]++
			b := BlockDef{Type: typ, Params: map[string]any{}, LineNo: lineNo}
			b.ID = parseParams(b.Params, strings.Fields(m[2]), true)
			if b.ID == "" {
				b.ID = fmt.Sprintf("%s%d", typ, typeCounts[typ])
			}
			if len(b.Params) == 0 {
				b.Params = nil
			}
			current.Blocks = append(current.Blocks, b)
			lastBlock = &current.Blocks[len(current.Blocks)-1]
			continue
		}

		report("unrecognized line %q", trim)
		lastBlock = nil
	}
	// Append last network
	flushNetwork()

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return doc, errs
}

// coerceValue turns a parameter literal into int, float64, bool or string.
func coerceValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return strings.Trim(s, `"'`)
}

// parseShape reads an integer list in any of the accepted spellings:
// "28 28 1", "28,28,1" or "[28, 28, 1]".
func parseShape(s string) ([]int, bool) {
	s = strings.NewReplacer("[", " ", "]", " ", ",", " ").Replace(s)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, false
	}
	shape := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		shape = append(shape, n)
	}
	return shape, true
}
