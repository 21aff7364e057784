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
	"sort"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/graph"
	"github.com/JulianOrteil/TensorBuilder/internal/render"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/version"
)

// PDFOptions controls datasheet export behavior.
// Units are points (pt); pages are A4 portrait. Built-in Helvetica keeps
// text vector without font embedding.
type PDFOptions struct {
	IncludeIssues bool     // append validation findings per network
	IncludeNotes  bool     // print network notes under the header
	Networks      []string // if empty, export all networks
}

// Datasheet table column widths in points.
const (
	colOrder  = 28.0
	colBlock  = 96.0
	colType   = 78.0
	colParams = 222.0
	colShape  = 88.0
	rowH      = 15.0
)

// ExportDatasheetPDF writes a single multi-page PDF datasheet placed at
// outPath: one page per network with its blocks in build order, their
// parameters and the inferred output shapes. A relative outPath lands
// under the workspace's exports folder.
func ExportDatasheetPDF(ws *storage.WorkspaceHandle, cat *catalog.Catalog, outPath string, opt PDFOptions) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	nets := selectNetworks(&ws.Project, opt.Networks)
	if len(nets) == 0 {
		return fmt.Errorf("no networks to export")
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s Datasheet", ws.Project.Name), false)
	pdf.SetAuthor("TensorBuilder", false)
	pdf.SetMargins(48, 48, 48)
	pdf.SetAutoPageBreak(true, 48)

	for _, n := range nets {
		datasheetPage(pdf, n, cat, opt)
	}

	outPath = underExports(ws, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func datasheetPage(pdf *gofpdf.Fpdf, n *domain.Network, cat *catalog.Catalog, opt PDFOptions) {
	pdf.AddPage()
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 24, n.Name, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	meta := "target " + n.Target
	if len(n.InputShape) > 0 {
		meta += "   input " + render.FormatShape(n.InputShape)
	}
	meta += fmt.Sprintf("   %d blocks, %d connections", len(n.Blocks), len(n.Connections))
	pdf.CellFormat(0, 14, meta, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	if opt.IncludeNotes && n.Notes != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 13, n.Notes, "", "L", false)
	}
	pdf.Ln(8)

	order, oerr := graph.TopoOrder(n)
	if oerr != nil {
		// A cyclic network still gets a table, in manifest order.
		order = order[:0]
		for _, b := range n.Blocks {
			if b.ID != "" {
				order = append(order, b.ID)
			}
		}
	}
	shapes, shapeIssues := graph.InferShapes(n, cat)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(238, 238, 238)
	pdf.CellFormat(colOrder, rowH, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colBlock, rowH, "Block", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colType, rowH, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colParams, rowH, "Parameters", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colShape, rowH, "Output", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for i, id := range order {
		b := n.BlockByID(id)
		if b == nil {
			continue
		}
		shape := "?"
		if s, ok := shapes[id]; ok {
			shape = render.FormatShape(s)
		}
		pdf.CellFormat(colOrder, rowH, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colBlock, rowH, clipCell(b.DisplayLabel(), 24), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colType, rowH, b.Type, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colParams, rowH, clipCell(formatBlockParams(b, cat), 58), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colShape, rowH, shape, "1", 1, "L", false, 0, "")
	}

	if opt.IncludeIssues {
		issues := graph.Validate(n, cat)
		for _, is := range shapeIssues {
			if is.Code == graph.CodeShape {
				issues = append(issues, is)
			}
		}
		if len(issues) > 0 {
			pdf.Ln(10)
			pdf.SetFont("Helvetica", "B", 11)
			pdf.SetTextColor(180, 30, 30)
			pdf.CellFormat(0, 16, fmt.Sprintf("Findings (%d)", len(issues)), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			for _, is := range issues {
				pdf.CellFormat(0, 12, "- "+is.String(), "", 1, "L", false, 0, "")
			}
			pdf.SetTextColor(0, 0, 0)
		}
	}

	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 10, "Generated by "+version.String(), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// formatBlockParams prints the block's explicit parameters, catalog order
// first, any extras sorted behind them.
func formatBlockParams(b *domain.Block, cat *catalog.Catalog) string {
	if len(b.Params) == 0 {
		return ""
	}
	var parts []string
	covered := make(map[string]bool, len(b.Params))
	if cat != nil {
		if spec, ok := cat.Lookup(b.Type); ok {
			for _, p := range spec.Params {
				if v, ok := b.Params[p.Name]; ok {
					parts = append(parts, p.Name+"="+compactValue(v))
					covered[p.Name] = true
				}
			}
		}
	}
	var extras []string
	for k := range b.Params {
		if !covered[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		parts = append(parts, k+"="+compactValue(b.Params[k]))
	}
	return strings.Join(parts, ", ")
}

// compactValue prints a parameter value tersely: lists as 3x3, floats
// without trailing zeroes, strings bare.
func compactValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if ints, ok := asIntSlice(v); ok {
		parts := make([]string, len(ints))
		for i, d := range ints {
			parts[i] = strconv.Itoa(d)
		}
		return strings.Join(parts, "x")
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

// clipCell keeps cell text from overrunning its column; gofpdf does not
// clip for us.
func clipCell(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes-3]) + "..."
}

// underExports anchors a relative path below <workspace>/exports.
func underExports(ws *storage.WorkspaceHandle, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ws.Root, "exports", p)
}

// resolveOutDir anchors outDir under the workspace exports folder and
// creates it.
func resolveOutDir(ws *storage.WorkspaceHandle, outDir string) (string, error) {
	outDir = underExports(ws, outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	return outDir, nil
}

// selectNetworks resolves the requested networks, all of them when names
// is empty. Unknown names are skipped.
func selectNetworks(p *domain.Project, names []string) []*domain.Network {
	if len(names) == 0 {
		out := make([]*domain.Network, 0, len(p.Networks))
		for i := range p.Networks {
			out = append(out, &p.Networks[i])
		}
		return out
	}
	var out []*domain.Network
	for _, name := range names {
		if n := p.NetworkByName(name); n != nil {
			out = append(out, n)
		}
	}
	return out
}
