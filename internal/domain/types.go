/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for TensorBuilder projects. A project
// holds one or more networks; each network is a directed graph of blocks
// (layers) joined by connections. The model serializes to a human-readable
// JSON manifest.

// Target names for code generation.
const (
	TargetTensorFlow = "tensorflow"
	TargetPyTorch    = "pytorch"
)

// Project represents a TensorBuilder project and its metadata.
type Project struct {
	Name     string    `json:"name"`
	Metadata Metadata  `json:"metadata,omitempty"`
	Networks []Network `json:"networks"`
}

// Metadata contains optional descriptive metadata for a project.
type Metadata struct {
	Author      string   `json:"author,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Network is a single model graph under construction.
// InputShape omits the batch dimension (e.g. [28, 28, 1]).
type Network struct {
	Name        string       `json:"name"`
	Target      string       `json:"target"`
	InputShape  []int        `json:"inputShape,omitempty"`
	Blocks      []Block      `json:"blocks"`
	Connections []Connection `json:"connections"`
	Notes       string       `json:"notes,omitempty"`
}

// Block is one placed layer on the canvas. Type names a catalog entry
// (e.g. "dense", "conv2d"); Params hold that entry's parameter values.
type Block struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Label    string         `json:"label,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	Position Point          `json:"position"`
	Notes    string         `json:"notes,omitempty"`
}

// Connection is a directed edge between two blocks.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Point is a canvas position in layout units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BlockByID returns a pointer to the block with the given id, or nil.
func (n *Network) BlockByID(id string) *Block {
	for i := range n.Blocks {
		if n.Blocks[i].ID == id {
			return &n.Blocks[i]
		}
	}
	return nil
}

// HasConnection reports whether the exact edge from->to exists.
func (n *Network) HasConnection(from, to string) bool {
	for _, c := range n.Connections {
		if c.From == from && c.To == to {
			return true
		}
	}
	return false
}

// NetworkByName returns a pointer to the named network, or nil.
func (p *Project) NetworkByName(name string) *Network {
	for i := range p.Networks {
		if p.Networks[i].Name == name {
			return &p.Networks[i]
		}
	}
	return nil
}

// DisplayLabel returns the block label, falling back to "<type> <id>".
func (b Block) DisplayLabel() string {
	if b.Label != "" {
		return b.Label
	}
	return b.Type + " " + b.ID
}
