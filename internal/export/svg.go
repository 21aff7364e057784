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
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/graph"
	"github.com/JulianOrteil/TensorBuilder/internal/render"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/vector"
)

// SVGOptions controls diagram SVG export behavior.
// The coordinate system is canvas units; the viewBox frames the content
// plus Padding, and 1 unit maps to 1 px at the declared size.
type SVGOptions struct {
	Padding     float32 // margin around the content; default 24
	ShowShapes  bool
	ForceLayout bool
	Networks    []string
}

const svgFontFamily = "Helvetica, Arial, sans-serif"

// ExportDiagramSVGs writes each selected network as a separate SVG file
// named <network>.svg under outDir. A relative outDir lands under the
// workspace's exports folder.
func ExportDiagramSVGs(ws *storage.WorkspaceHandle, cat *catalog.Catalog, outDir string, opt SVGOptions) error {
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
		data, err := networkSVG(n, cat, opt)
		if err != nil {
			return fmt.Errorf("render %s: %w", n.Name, err)
		}
		name := filepath.Join(outDir, exportFileName(n.Name)+".svg")
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
	}
	return nil
}

// networkSVG builds one SVG document from the shared diagram geometry,
// matching the raster renderer block for block.
func networkSVG(n *domain.Network, cat *catalog.Catalog, opt SVGOptions) ([]byte, error) {
	pad := opt.Padding
	if pad <= 0 {
		pad = 24
	}
	pal := render.DefaultPalette()

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	if len(n.Blocks) == 0 {
		wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
		wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"320px\" height=\"200px\" viewBox=\"0 0 320 200\">\n")
		wf("  <rect x=\"0\" y=\"0\" width=\"320\" height=\"200\" fill=\"%s\"/>\n", svgColor(pal.Background))
		wf("  <text x=\"160\" y=\"104\" font-family=\"%s\" font-size=\"12\" text-anchor=\"middle\" fill=\"%s\">empty network</text>\n",
			svgFontFamily, svgColor(pal.Shape))
		wf("</svg>\n")
		if werr != nil {
			return nil, fmt.Errorf("build svg: %w", werr)
		}
		return buf.Bytes(), nil
	}

	g, err := render.NetworkGeometry(n, opt.ForceLayout)
	if err != nil {
		return nil, err
	}
	var shapes map[string][]int
	if opt.ShowShapes {
		shapes, _ = graph.InferShapes(n, cat)
	}

	x0 := g.Bounds.X - pad
	y0 := g.Bounds.Y - pad
	w := g.Bounds.W + 2*pad
	h := g.Bounds.H + 2*pad

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"%g %g %g %g\">\n",
		int(math.Ceil(float64(w))), int(math.Ceil(float64(h))), x0, y0, w, h)
	wf("  <title>%s</title>\n", escText(n.Name))
	wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", x0, y0, w, h, svgColor(pal.Background))

	cc := svgColor(pal.Connector)
	for _, route := range g.Routes {
		if len(route) < 2 {
			continue
		}
		pts := make([]string, len(route))
		for i, p := range route {
			pts[i] = fmt.Sprintf("%g,%g", p.X, p.Y)
		}
		wf("  <polyline points=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"1\"/>\n", strings.Join(pts, " "), cc)
		head := vector.ArrowHead(route, 7)
		wf("  <polygon points=\"%g,%g %g,%g %g,%g\" fill=\"%s\"/>\n",
			head[0].X, head[0].Y, head[1].X, head[1].Y, head[2].X, head[2].Y, cc)
	}

	bc := svgColor(pal.Border)
	for i := range n.Blocks {
		b := &n.Blocks[i]
		r, ok := g.Blocks[b.ID]
		if !ok {
			continue
		}
		category := ""
		if cat != nil {
			if spec, ok := cat.Lookup(b.Type); ok {
				category = spec.Category
			}
		}
		wf("  <rect id=\"%s\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"1\"/>\n",
			escAttr(b.ID), r.X, r.Y, r.W, r.H, svgColor(pal.BlockFill(category)), bc)

		c := r.Center()
		second := ""
		if opt.ShowShapes {
			second = "?"
			if s, ok := shapes[b.ID]; ok {
				second = render.FormatShape(s)
			}
		} else if b.Label != "" && b.Label != b.Type {
			second = b.Type
		}
		if second == "" {
			wf("  <text x=\"%g\" y=\"%g\" font-family=\"%s\" font-size=\"12\" text-anchor=\"middle\" fill=\"%s\">%s</text>\n",
				c.X, c.Y+4, svgFontFamily, svgColor(pal.Label), escText(b.DisplayLabel()))
			continue
		}
		wf("  <text x=\"%g\" y=\"%g\" font-family=\"%s\" font-size=\"12\" text-anchor=\"middle\" fill=\"%s\">%s</text>\n",
			c.X, c.Y-3, svgFontFamily, svgColor(pal.Label), escText(b.DisplayLabel()))
		wf("  <text x=\"%g\" y=\"%g\" font-family=\"%s\" font-size=\"10\" text-anchor=\"middle\" fill=\"%s\">%s</text>\n",
			c.X, c.Y+11, svgFontFamily, svgColor(pal.Shape), escText(second))
	}

	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

func svgColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func escAttr(s string) string {
	// Attribute values only ever carry label text; quotes and line
	// breaks are the characters that need attention.
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, '&', 'q', 'u', 'o', 't', ';')
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
