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

// Document is a parsed network script. One file may define several
// networks, each introduced by a "# name" heading.

type Document struct {
	Networks []NetworkDef
}

// NetworkDef is one network as written in the script: directives, block
// lines and connection chains, before any semantic checks.

type NetworkDef struct {
	Name       string
	Target     string
	InputShape []int
	Notes      string
	Blocks     []BlockDef
	Conns      []ConnDef
	LineNo     int // 1-based line of the heading (0 for an implicit network)
}

// BlockDef captures a block line: the catalog type, the id (written or
// generated) and any key=value parameters, including continuation lines.

type BlockDef struct {
	Type   string
	ID     string
	Params map[string]any
	LineNo int
}

// ConnDef is a single directed edge taken from a connection chain.
// A chain "a -> b -> c" contributes two ConnDefs on the same line.

type ConnDef struct {
	From   string
	To     string
	LineNo int
}

// Error represents a parse or conversion error with position context.

type Error struct {
	Line    int
	Column  int
	Message string
}
