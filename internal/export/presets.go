/*
 * Copyright 2025 Julian_Orteil
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
)

// PresetName selects one of the built-in export bundles.
type PresetName string

const (
	PresetCode PresetName = "code"
	PresetDocs PresetName = "docs"
	PresetAll  PresetName = "all"
)

// BatchOptions controls a batch export across formats and networks.
//
// An empty or relative OutDir is anchored under <workspace>/exports/<preset>/,
// and below it every format keeps its own subdirectory: generated sources in
// keras/ and pytorch/ (one <network>.py each), the datasheet at
// pdf/datasheet.pdf, per-network diagrams in png/ and svg/, and the PNG
// bundle at diagrams.zip.
type BatchOptions struct {
	Preset     PresetName
	Formats    []string // allowed: keras, pytorch, pdf, png, svg, zip; empty means preset defaults
	Networks   []string // network names; empty means all networks
	OutDir     string   // base directory for outputs (created per preset if relative)
	Scale      float32  // when > 0 overrides the raster scale for png/zip
	ShowShapes *bool    // when set, overrides the preset's default for shape labels
}

// BatchExport renders every requested format in one pass over the workspace.
func BatchExport(ws *storage.WorkspaceHandle, cat *catalog.Catalog, opt BatchOptions) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	if len(ws.Project.Networks) == 0 {
		return fmt.Errorf("workspace has no networks")
	}

	// Normalize into a fresh slice; the caller keeps its spelling.
	formats := make([]string, 0, len(opt.Formats))
	for _, f := range opt.Formats {
		formats = append(formats, strings.ToLower(strings.TrimSpace(f)))
	}
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}

	base := opt.OutDir
	if base == "" {
		base = string(opt.Preset)
	}
	base = underExports(ws, base)

	shapes := presetShowShapes(opt.Preset)
	if opt.ShowShapes != nil {
		shapes = *opt.ShowShapes
	}

	for _, f := range formats {
		switch f {
		case "keras":
			if err := ExportKerasSources(ws, cat, filepath.Join(base, "keras"), opt.Networks); err != nil {
				return fmt.Errorf("keras: %w", err)
			}
		case "pytorch":
			if err := ExportPyTorchSources(ws, cat, filepath.Join(base, "pytorch"), opt.Networks); err != nil {
				return fmt.Errorf("pytorch: %w", err)
			}
		case "pdf":
			out := filepath.Join(base, "pdf", "datasheet.pdf")
			po := PDFOptions{IncludeIssues: true, IncludeNotes: true, Networks: opt.Networks}
			if err := ExportDatasheetPDF(ws, cat, out, po); err != nil {
				return fmt.Errorf("pdf: %w", err)
			}
		case "png":
			po := PNGOptions{Scale: opt.Scale, ShowShapes: shapes, Networks: opt.Networks}
			if err := ExportDiagramPNGs(ws, cat, filepath.Join(base, "png"), po); err != nil {
				return fmt.Errorf("png: %w", err)
			}
		case "svg":
			so := SVGOptions{ShowShapes: shapes, Networks: opt.Networks}
			if err := ExportDiagramSVGs(ws, cat, filepath.Join(base, "svg"), so); err != nil {
				return fmt.Errorf("svg: %w", err)
			}
		case "zip":
			ao := ArchiveOptions{Scale: opt.Scale, ShowShapes: shapes, Networks: opt.Networks}
			if err := ExportDiagramArchive(ws, cat, filepath.Join(base, "diagrams.zip"), ao); err != nil {
				return fmt.Errorf("zip: %w", err)
			}
		default:
			return fmt.Errorf("unknown format: %s", f)
		}
	}
	return nil
}

// ExportKerasSources writes a Keras build script per selected network into
// outDir. A relative outDir lands under the workspace's exports folder.
func ExportKerasSources(ws *storage.WorkspaceHandle, cat *catalog.Catalog, outDir string, networks []string) error {
	return exportCodeFiles(ws, cat, outDir, networks, GenerateKeras)
}

// ExportPyTorchSources writes a torch module per selected network into
// outDir. A relative outDir lands under the workspace's exports folder.
func ExportPyTorchSources(ws *storage.WorkspaceHandle, cat *catalog.Catalog, outDir string, networks []string) error {
	return exportCodeFiles(ws, cat, outDir, networks, GeneratePyTorch)
}

func exportCodeFiles(ws *storage.WorkspaceHandle, cat *catalog.Catalog, outDir string, networks []string,
	gen func(*domain.Network, *catalog.Catalog) (string, error)) error {
	if ws == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	nets := selectNetworks(&ws.Project, networks)
	if len(nets) == 0 {
		return fmt.Errorf("no networks to export")
	}
	outDir, err := resolveOutDir(ws, outDir)
	if err != nil {
		return err
	}
	for _, n := range nets {
		src, err := gen(n, cat)
		if err != nil {
			return err
		}
		name := filepath.Join(outDir, exportFileName(n.Name)+".py")
		if err := os.WriteFile(name, []byte(src), 0o644); err != nil {
			return fmt.Errorf("write source: %w", err)
		}
	}
	return nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetCode:
		return []string{"keras", "pytorch"}
	case PresetDocs:
		return []string{"pdf", "png", "svg"}
	case PresetAll:
		return []string{"keras", "pytorch", "pdf", "png", "svg", "zip"}
	default:
		return []string{"pdf"}
	}
}

func presetShowShapes(p PresetName) bool {
	switch p {
	case PresetDocs, PresetAll:
		return true
	default:
		return false
	}
}
