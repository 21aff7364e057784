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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

// Fingerprint hashes a canonical form of the network: blocks sorted by
// id, connections sorted by endpoints, map keys in marshal order. Two
// networks that differ only in slice ordering hash the same; any change
// to structure, params or positions changes the hash. Used as the
// render cache key and for registry publish dedupe.
func Fingerprint(n *domain.Network) string {
	c := domain.Network{
		Name:       n.Name,
		Target:     n.Target,
		InputShape: append([]int(nil), n.InputShape...),
		Notes:      n.Notes,
	}
	c.Blocks = append([]domain.Block(nil), n.Blocks...)
	sort.SliceStable(c.Blocks, func(i, j int) bool { return c.Blocks[i].ID < c.Blocks[j].ID })
	c.Connections = append([]domain.Connection(nil), n.Connections...)
	sort.SliceStable(c.Connections, func(i, j int) bool {
		if c.Connections[i].From != c.Connections[j].From {
			return c.Connections[i].From < c.Connections[j].From
		}
		return c.Connections[i].To < c.Connections[j].To
	})

	b, err := json.Marshal(&c)
	if err != nil {
		// Params hold only JSON-decoded values, so this cannot happen
		// outside of a programming error.
		return "unhashable"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
