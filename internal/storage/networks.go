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
	"fmt"
	"sort"
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

// Edit helpers for the in-memory manifest. These mutate ws.Project only;
// callers persist with Save. Structural rules enforced here are the ones a
// canvas action can violate (unknown endpoints, duplicate ids); the full
// validation pass lives in the graph package.

// EnsureNetwork returns a pointer to the network with the given name, creating
// it if it does not exist yet. New networks default to the TensorFlow target.
func EnsureNetwork(ws *WorkspaceHandle, name string) (*domain.Network, error) {
	if ws == nil {
		return nil, fmt.Errorf("workspace handle is nil")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("network name is required")
	}
	if n := ws.Project.NetworkByName(name); n != nil {
		return n, nil
	}
	n := domain.Network{
		Name:        name,
		Target:      domain.TargetTensorFlow,
		Blocks:      []domain.Block{},
		Connections: []domain.Connection{},
	}
	ws.Project.Networks = append(ws.Project.Networks, n)
	// Keep networks sorted by name for deterministic serialization
	sort.Slice(ws.Project.Networks, func(i, j int) bool {
		return ws.Project.Networks[i].Name < ws.Project.Networks[j].Name
	})
	if got := ws.Project.NetworkByName(name); got != nil {
		return got, nil
	}
	return nil, fmt.Errorf("failed to create network %q", name)
}

// AdoptNetwork adds a fully formed network to the project, e.g. one
// imported from a script or pulled from the registry. The name must be
// set and unused.
func AdoptNetwork(ws *WorkspaceHandle, n domain.Network) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("network name is required")
	}
	if ws.Project.NetworkByName(n.Name) != nil {
		return fmt.Errorf("network %s already exists", n.Name)
	}
	ws.Project.Networks = append(ws.Project.Networks, n)
	sort.Slice(ws.Project.Networks, func(i, j int) bool {
		return ws.Project.Networks[i].Name < ws.Project.Networks[j].Name
	})
	return nil
}

// NextBlockID returns a unique block ID like "b1", "b2", ... not used in the given network.
func NextBlockID(n *domain.Network) string {
	if n == nil {
		return "b1"
	}
	maxN := 0
	exists := map[string]struct{}{}
	for _, b := range n.Blocks {
		exists[b.ID] = struct{}{}
		var v int
		if _, err := fmt.Sscanf(b.ID, "b%d", &v); err == nil {
			if v > maxN {
				maxN = v
			}
		}
	}
	for v := maxN + 1; v < maxN+10000; v++ {
		id := fmt.Sprintf("b%d", v)
		if _, ok := exists[id]; !ok {
			return id
		}
	}
	return fmt.Sprintf("b%d", maxN+1)
}

// AddBlock appends a block to the named network. If block.ID is empty, a
// unique one is generated. A zero position means unplaced; auto-layout will
// position it. Returns the created block.
func AddBlock(ws *WorkspaceHandle, networkName string, block domain.Block) (domain.Block, error) {
	n, err := EnsureNetwork(ws, networkName)
	if err != nil {
		return domain.Block{}, err
	}
	if block.Type == "" {
		return domain.Block{}, fmt.Errorf("block type is required")
	}
	if block.ID == "" {
		block.ID = NextBlockID(n)
	} else {
		for _, b := range n.Blocks {
			if b.ID == block.ID {
				return domain.Block{}, fmt.Errorf("block id %s already exists in network %s", block.ID, networkName)
			}
		}
	}
	n.Blocks = append(n.Blocks, block)
	return block, nil
}

// findBlock returns network pointer, block index and pointer, or error.
func findBlock(ws *WorkspaceHandle, networkName, blockID string) (*domain.Network, int, *domain.Block, error) {
	if ws == nil {
		return nil, -1, nil, fmt.Errorf("workspace handle is nil")
	}
	n := ws.Project.NetworkByName(networkName)
	if n == nil {
		return nil, -1, nil, fmt.Errorf("network %s not found", networkName)
	}
	for i := range n.Blocks {
		if n.Blocks[i].ID == blockID {
			return n, i, &n.Blocks[i], nil
		}
	}
	return n, -1, nil, fmt.Errorf("block %s not found in network %s", blockID, networkName)
}

// RemoveBlock deletes a block and every connection touching it.
func RemoveBlock(ws *WorkspaceHandle, networkName, blockID string) error {
	n, idx, _, err := findBlock(ws, networkName, blockID)
	if err != nil {
		return err
	}
	n.Blocks = append(n.Blocks[:idx], n.Blocks[idx+1:]...)
	kept := n.Connections[:0]
	for _, c := range n.Connections {
		if c.From == blockID || c.To == blockID {
			continue
		}
		kept = append(kept, c)
	}
	n.Connections = kept
	return nil
}

// Connect adds a directed edge between two existing blocks. Self-loops and
// duplicate edges are rejected.
func Connect(ws *WorkspaceHandle, networkName, from, to string) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	n := ws.Project.NetworkByName(networkName)
	if n == nil {
		return fmt.Errorf("network %s not found", networkName)
	}
	if from == to {
		return fmt.Errorf("connection from %s to itself", from)
	}
	if n.BlockByID(from) == nil {
		return fmt.Errorf("block %s not found in network %s", from, networkName)
	}
	if n.BlockByID(to) == nil {
		return fmt.Errorf("block %s not found in network %s", to, networkName)
	}
	if n.HasConnection(from, to) {
		return fmt.Errorf("connection %s -> %s already exists", from, to)
	}
	n.Connections = append(n.Connections, domain.Connection{From: from, To: to})
	return nil
}

// Disconnect removes the exact edge from->to if present.
func Disconnect(ws *WorkspaceHandle, networkName, from, to string) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	n := ws.Project.NetworkByName(networkName)
	if n == nil {
		return fmt.Errorf("network %s not found", networkName)
	}
	for i, c := range n.Connections {
		if c.From == from && c.To == to {
			n.Connections = append(n.Connections[:i], n.Connections[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("connection %s -> %s not found", from, to)
}

// SetBlockPosition records a canvas position after a drag.
func SetBlockPosition(ws *WorkspaceHandle, networkName, blockID string, x, y float64) error {
	_, _, b, err := findBlock(ws, networkName, blockID)
	if err != nil {
		return err
	}
	b.Position = domain.Point{X: x, Y: y}
	return nil
}

// UpdateBlockMeta updates block ID (if non-empty and unique), label and notes.
// Renaming rewrites every connection endpoint so edges stay attached.
func UpdateBlockMeta(ws *WorkspaceHandle, networkName, blockID string, newID, label, notes string) error {
	n, _, b, err := findBlock(ws, networkName, blockID)
	if err != nil {
		return err
	}
	if newID != "" && newID != b.ID {
		for _, other := range n.Blocks {
			if other.ID == newID {
				return fmt.Errorf("block id %s already exists in network %s", newID, networkName)
			}
		}
		old := b.ID
		b.ID = newID
		for i := range n.Connections {
			if n.Connections[i].From == old {
				n.Connections[i].From = newID
			}
			if n.Connections[i].To == old {
				n.Connections[i].To = newID
			}
		}
	}
	b.Label = label
	b.Notes = notes
	return nil
}

// RenameNetwork changes a network's name, keeping the slice sorted. The
// caller should also invalidate previews stored under the old name.
func RenameNetwork(ws *WorkspaceHandle, oldName, newName string) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("network name is required")
	}
	if ws.Project.NetworkByName(newName) != nil {
		return fmt.Errorf("network %s already exists", newName)
	}
	n := ws.Project.NetworkByName(oldName)
	if n == nil {
		return fmt.Errorf("network %s not found", oldName)
	}
	n.Name = newName
	sort.Slice(ws.Project.Networks, func(i, j int) bool {
		return ws.Project.Networks[i].Name < ws.Project.Networks[j].Name
	})
	return nil
}
