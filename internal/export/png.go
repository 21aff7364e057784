/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/render"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
)

// PNGOptions controls diagram PNG export behavior.
// - Scale: when > 0 multiplies the diagram geometry (labels keep the fixed
//   bitmap font size)
// - ShowShapes: annotate blocks with their inferred output shape
// - ForceLayout: ignore stored canvas positions and auto-arrange
// - Networks: if empty, export all
type PNGOptions struct {
	Scale       float32
	ShowShapes  bool
	ForceLayout bool
	Networks    []string
}

// ExportDiagramPNGs renders each selected network as a separate PNG file
// named <network>.png under outDir. A relative outDir lands under the
// workspace's exports folder.
func ExportDiagramPNGs(ws *storage.WorkspaceHandle, cat *catalog.Catalog, outDir string, opt PNGOptions) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	nets := selectNetworks(&ws.Project, opt.Networks)
	if len(nets) == 0 {
		return fmt.Errorf("no networks to export")
	}

	outDir, err := resolveOutDir(ws, outDir)
	if err != nil {
		return err
	}

	for _, n := range nets {
		data, err := render.EncodePNG(n, cat, render.Options{
			Scale:       opt.Scale,
			ShowShapes:  opt.ShowShapes,
			ForceLayout: opt.ForceLayout,
		})
		if err != nil {
			return fmt.Errorf("render %s: %w", n.Name, err)
		}
		name := filepath.Join(outDir, exportFileName(n.Name)+".png")
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
	}
	return nil
}

// exportFileName makes a network name safe as a file stem.
func exportFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "network"
	}
	return b.String()
}
