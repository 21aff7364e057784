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
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/render"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

// ArchiveOptions controls diagram archive export behavior.
// Networks render as PNG, like ExportDiagramPNGs, and are zipped together
// with a plain-text manifest.
type ArchiveOptions struct {
	Scale       float32
	ShowShapes  bool
	ForceLayout bool
	Networks    []string
}

// ExportDiagramArchive packages the selected network diagrams as PNG
// images into a single ZIP archive and adds a manifest.txt listing the
// contents. A relative outPath lands under the workspace's exports folder.
func ExportDiagramArchive(ws *storage.WorkspaceHandle, cat *catalog.Catalog, outPath string, opt ArchiveOptions) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	nets := selectNetworks(&ws.Project, opt.Networks)
	if len(nets) == 0 {
		return fmt.Errorf("no networks to export")
	}

	outPath = underExports(ws, outPath)
	if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
		outPath += ".zip"
	}

	zw, f, err := createZip(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// Zero padding width based on count
	pad := 1
	switch {
	case len(nets) >= 100:
		pad = 3
	case len(nets) >= 10:
		pad = 2
	}

	entries := make([]string, 0, len(nets))
	for i, n := range nets {
		data, err := render.EncodePNG(n, cat, render.Options{
			Scale:       opt.Scale,
			ShowShapes:  opt.ShowShapes,
			ForceLayout: opt.ForceLayout,
		})
		if err != nil {
			return fmt.Errorf("render %s: %w", n.Name, err)
		}
		name := fmt.Sprintf("%0*d-%s.png", pad, i+1, exportFileName(n.Name))
		if err := addZipFile(zw, name, data); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
		entries = append(entries, name)
	}

	manifest := buildArchiveManifest(&ws.Project, nets, entries)
	if err := addZipFile(zw, "manifest.txt", []byte(manifest)); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	// Ensure directory exists
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create zip: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func buildArchiveManifest(p *domain.Project, nets []*domain.Network, entries []string) string {
	var b strings.Builder
	b.WriteString("TensorBuilder Diagram Archive\n")
	fmt.Fprintf(&b, "Project: %s\n", p.Name)
	fmt.Fprintf(&b, "Created: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Generator: %s\n\n", version.String())
	for i, n := range nets {
		fmt.Fprintf(&b, "%s  %s (%d blocks, %d connections)\n",
			entries[i], n.Name, len(n.Blocks), len(n.Connections))
	}
	return b.String()
}
