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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
)

func sampleWorkspace(t *testing.T) (*storage.WorkspaceHandle, *catalog.Catalog) {
	t.Helper()
	ws, err := storage.Init(t.TempDir(), domain.Project{
		Name:     "Test Project",
		Networks: []domain.Network{*chainNetwork(), *branchNetwork()},
	})
	if err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	return ws, exportCatalog(t)
}

func TestExportDiagramPNGs(t *testing.T) {
	ws, cat := sampleWorkspace(t)
	outDir := filepath.Join(ws.Root, "exports", "pngtest")
	if err := ExportDiagramPNGs(ws, cat, outDir, PNGOptions{ShowShapes: true}); err != nil {
		t.Fatalf("export png: %v", err)
	}
	for _, name := range []string{"mnist.png", "branchy.png"} {
		st, err := os.Stat(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("png empty: %s", name)
		}
	}
}

func TestExportDiagramPNGsRelativeDir(t *testing.T) {
	ws, cat := sampleWorkspace(t)
	if err := ExportDiagramPNGs(ws, cat, "png", PNGOptions{Networks: []string{"mnist"}}); err != nil {
		t.Fatalf("export png: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws.Root, "exports", "png", "mnist.png")); err != nil {
		t.Fatalf("relative outDir should land under exports: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws.Root, "exports", "png", "branchy.png")); !os.IsNotExist(err) {
		t.Fatalf("branchy should not have been exported, stat err %v", err)
	}
}

func TestExportDiagramSVGs(t *testing.T) {
	ws, cat := sampleWorkspace(t)
	outDir := filepath.Join(ws.Root, "exports", "svgtest")
	if err := ExportDiagramSVGs(ws, cat, outDir, SVGOptions{ShowShapes: true}); err != nil {
		t.Fatalf("export svg: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "mnist.svg"))
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"<svg xmlns=\"http://www.w3.org/2000/svg\"",
		"<title>mnist</title>",
		"<rect id=\"in\"",
		"<polyline points=",
		"28x28x1",
		"</svg>",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("svg missing %q:\n%s", want, text)
		}
	}
}

func TestNetworkSVGEmptyNetwork(t *testing.T) {
	n := &domain.Network{Name: "empty", Target: domain.TargetTensorFlow}
	data, err := networkSVG(n, nil, SVGOptions{})
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.Contains(string(data), "empty network") {
		t.Fatalf("placeholder text missing:\n%s", data)
	}
}

func TestExportFileName(t *testing.T) {
	cases := map[string]string{
		"mnist":      "mnist",
		"my net/2":   "my_net_2",
		"":           "network",
		"Encoder-v1": "Encoder-v1",
	}
	for in, want := range cases {
		if got := exportFileName(in); got != want {
			t.Fatalf("exportFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
