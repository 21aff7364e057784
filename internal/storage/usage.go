/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"sort"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

// Usage analysis over the manifest, backing the dashboard panel and the
// where-used views. These walk the in-memory project; the indexed variant
// for large workspaces is WhereUsedByPath.

// BlockTypeUsage counts how many blocks of each type exist across all networks.
func BlockTypeUsage(p domain.Project) map[string]int {
	counts := make(map[string]int)
	for _, n := range p.Networks {
		for _, b := range n.Blocks {
			if b.Type == "" {
				continue
			}
			counts[b.Type]++
		}
	}
	return counts
}

// NetworksUsing returns the names of networks containing at least one block
// of the given type, sorted.
func NetworksUsing(p domain.Project, blockType string) []string {
	var out []string
	for _, n := range p.Networks {
		for _, b := range n.Blocks {
			if b.Type == blockType {
				out = append(out, n.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// UnusedTypes returns catalog types that no network uses, sorted.
func UnusedTypes(cat *catalog.Catalog, p domain.Project) []string {
	if cat == nil {
		return nil
	}
	used := BlockTypeUsage(p)
	var out []string
	for _, t := range cat.Types() {
		if used[t] == 0 {
			out = append(out, t)
		}
	}
	return out
}

// UnknownTypes returns block types referenced by the project that the catalog
// does not define, sorted. Non-empty output usually means a block pack is
// missing from blocks/.
func UnknownTypes(cat *catalog.Catalog, p domain.Project) []string {
	if cat == nil {
		return nil
	}
	var out []string
	seen := map[string]struct{}{}
	for t := range BlockTypeUsage(p) {
		if _, ok := cat.Lookup(t); ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
