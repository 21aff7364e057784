/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package query parses the one-line search language shared by the search
// panel, the search CLI command and the registry search endpoint.
package query

import (
	"regexp"
	"strings"
)

// Query is the parsed form of a search input line.
// Supported syntax (minimal):
// - Filters: key:value tokens. Recognized keys:
//   - type:  restricts result kinds (network, block, note, template)
//   - net:   restricts to networks whose name matches the value
//   - block: restricts to networks containing the block type
//
// - Free text: every other token, handed to the full-text engine.
// - Quotes keep spaces in both positions: net:"mnist v2" or "same padding".
// - Unknown keys and empty filter values fall back to free text, so a
//   search input never fails to parse.
type Query struct {
	Terms  []string
	Types  []string
	Nets   []string
	Blocks []string
}

// Parse tokenizes the input and classifies filter tokens. Filter values
// are lower-cased; free-text terms keep their case for the FTS engine.
func Parse(input string) Query {
	var q Query

	reFilter := regexp.MustCompile(`^([A-Za-z]+):(.*)$`)

	add := func(dst *[]string, v string) {
		for _, have := range *dst {
			if have == v {
				return
			}
		}
		*dst = append(*dst, v)
	}

	for _, tok := range tokens(input) {
		m := reFilter.FindStringSubmatch(tok)
		if m == nil {
			q.Terms = append(q.Terms, tok)
			continue
		}
		val := strings.TrimSpace(unquote(m[2]))
		if val == "" {
			// A bare "type:" carries no filter; keep the token as text
			// so the user sees why nothing matched.
			q.Terms = append(q.Terms, tok)
			continue
		}
		switch strings.ToLower(m[1]) {
		case "type", "kind":
			add(&q.Types, strings.ToLower(val))
		case "net", "network":
			add(&q.Nets, strings.ToLower(val))
		case "block", "layer":
			add(&q.Blocks, strings.ToLower(val))
		default:
			q.Terms = append(q.Terms, tok)
		}
	}
	return q
}

// Empty reports whether the query carries neither text nor filters.
func (q Query) Empty() bool {
	return len(q.Terms) == 0 && len(q.Types) == 0 && len(q.Nets) == 0 && len(q.Blocks) == 0
}

// FTSText assembles the free-text terms into an FTS5 MATCH expression.
// Terms containing spaces or quotes become quoted phrases with embedded
// quotes doubled, per FTS5 string syntax.
func (q Query) FTSText() string {
	if len(q.Terms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if strings.HasPrefix(t, `"`) && strings.HasSuffix(t, `"`) && len(t) >= 2 {
			t = t[1 : len(t)-1]
		}
		if t == "" {
			continue
		}
		if strings.ContainsAny(t, " \t\"") {
			t = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

// String renders the query back into canonical input form, filters first.
func (q Query) String() string {
	var sb strings.Builder
	emit := func(key string, vals []string) {
		for _, v := range vals {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(key)
			sb.WriteByte(':')
			if strings.ContainsAny(v, " \t") {
				sb.WriteByte('"')
				sb.WriteString(v)
				sb.WriteByte('"')
			} else {
				sb.WriteString(v)
			}
		}
	}
	emit("type", q.Types)
	emit("net", q.Nets)
	emit("block", q.Blocks)
	for _, t := range q.Terms {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// tokens splits the input on whitespace while honoring double quotes.
// The quote may open mid-token (net:"mnist v2"), so state is tracked
// per rune rather than per field.
func tokens(input string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range input {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// unquote strips one balanced pair of double quotes. Unbalanced quotes
// are stripped too; the search engine never sees raw quote characters
// from filter values.
func unquote(s string) string {
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `"`, "")
}
