/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package catalog provides the library of block (layer) definitions the
// builder can place on a canvas. The built-in set ships embedded in the
// binary; workspaces may add custom definitions under their blocks/ dir.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"
)

//go:embed blocks.yaml
var builtinYAML []byte

// ParamKind enumerates the value types a block parameter can take.
type ParamKind string

const (
	ParamInt    ParamKind = "int"
	ParamFloat  ParamKind = "float"
	ParamBool   ParamKind = "bool"
	ParamString ParamKind = "string"
	ParamEnum   ParamKind = "enum"
	ParamShape  ParamKind = "shape" // list of ints, e.g. a kernel size
)

// ParamSpec describes one configurable parameter of a block type.
type ParamSpec struct {
	Name    string    `yaml:"name"`
	Kind    ParamKind `yaml:"kind"`
	Default any       `yaml:"default,omitempty"`
	Min     *float64  `yaml:"min,omitempty"`
	Max     *float64  `yaml:"max,omitempty"`
	Choices []string  `yaml:"choices,omitempty"`
	Help    string    `yaml:"help,omitempty"`
}

// BlockSpec describes one block type available in the palette.
// Inputs is the number of required inbound connections; -1 means variadic
// (merge blocks accept two or more).
type BlockSpec struct {
	Type        string      `yaml:"type"`
	DisplayName string      `yaml:"displayName"`
	Category    string      `yaml:"category"`
	Inputs      int         `yaml:"inputs"`
	Outputs     int         `yaml:"outputs"`
	ShapeRule   string      `yaml:"shapeRule"`
	Params      []ParamSpec `yaml:"params,omitempty"`
	Help        string      `yaml:"help,omitempty"`
}

type catalogFile struct {
	Blocks []BlockSpec `yaml:"blocks"`
}

// Catalog is an ordered, indexed set of block specs.
type Catalog struct {
	specs  []BlockSpec
	byType map[string]int
}

// Builtin parses the embedded block library.
func Builtin() (*Catalog, error) {
	return FromYAML(builtinYAML)
}

// FromYAML parses a catalog document.
func FromYAML(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byType: make(map[string]int)}
	for _, s := range f.Blocks {
		if err := c.add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(s BlockSpec) error {
	t := strings.TrimSpace(s.Type)
	if t == "" {
		return fmt.Errorf("catalog entry with empty type")
	}
	if _, dup := c.byType[t]; dup {
		return fmt.Errorf("duplicate catalog type %q", t)
	}
	if s.DisplayName == "" {
		s.DisplayName = t
	}
	if s.Outputs == 0 {
		s.Outputs = 1
	}
	s.Type = t
	c.byType[t] = len(c.specs)
	c.specs = append(c.specs, s)
	return nil
}

// MergeDir loads every *.yaml file under dir (a workspace's blocks/
// directory) into the catalog. Types already present are skipped so the
// built-in set always wins. Returns the number of specs added.
func (c *Catalog) MergeDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	added := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".yaml") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return added, err
		}
		var f catalogFile
		if err := yaml.Unmarshal(b, &f); err != nil {
			return added, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		for _, s := range f.Blocks {
			if _, exists := c.byType[strings.TrimSpace(s.Type)]; exists {
				continue
			}
			if err := c.add(s); err != nil {
				return added, fmt.Errorf("%s: %w", e.Name(), err)
			}
			added++
		}
	}
	return added, nil
}

// Lookup returns the spec for a block type.
func (c *Catalog) Lookup(typeName string) (BlockSpec, bool) {
	i, ok := c.byType[typeName]
	if !ok {
		return BlockSpec{}, false
	}
	return c.specs[i], true
}

// Len returns the number of specs.
func (c *Catalog) Len() int { return len(c.specs) }

// Types returns all type names, sorted.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.specs))
	for _, s := range c.specs {
		out = append(out, s.Type)
	}
	sort.Strings(out)
	return out
}

// Categories returns the distinct categories in palette order.
func (c *Catalog) Categories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range c.specs {
		if _, ok := seen[s.Category]; ok {
			continue
		}
		seen[s.Category] = struct{}{}
		out = append(out, s.Category)
	}
	return out
}

// ByCategory returns the specs of one category in catalog order.
func (c *Catalog) ByCategory(category string) []BlockSpec {
	var out []BlockSpec
	for _, s := range c.specs {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// All returns every spec in catalog order.
func (c *Catalog) All() []BlockSpec {
	return append([]BlockSpec(nil), c.specs...)
}

// Search fuzzy-matches the query against type, display name and category,
// best matches first. An empty query returns every spec.
func (c *Catalog) Search(query string) []BlockSpec {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.All()
	}
	targets := make([]string, len(c.specs))
	for i, s := range c.specs {
		targets[i] = s.Type + " " + s.DisplayName + " " + s.Category
	}
	matches := fuzzy.Find(query, targets)
	out := make([]BlockSpec, 0, len(matches))
	for _, m := range matches {
		out = append(out, c.specs[m.Index])
	}
	return out
}

// DefaultParams returns a fresh param map seeded with the spec defaults.
func (c *Catalog) DefaultParams(typeName string) map[string]any {
	s, ok := c.Lookup(typeName)
	if !ok || len(s.Params) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(s.Params))
	for _, p := range s.Params {
		if p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}
