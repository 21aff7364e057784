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
	"path/filepath"
	"strings"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
)

func TestExportDatasheetPDF_CreatesFile(t *testing.T) {
	root := t.TempDir()
	ws, err := storage.Init(root, domain.Project{
		Name:     "Test Project",
		Networks: []domain.Network{*chainNetwork(), *branchNetwork()},
	})
	if err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	cat := exportCatalog(t)

	if err := ExportDatasheetPDF(ws, cat, "datasheet.pdf", PDFOptions{IncludeIssues: true, IncludeNotes: true}); err != nil {
		t.Fatalf("export: %v", err)
	}
	wantFiles(t, filepath.Join(root, "exports", "datasheet.pdf"))
}

func TestExportDatasheetPDF_UnknownNetwork(t *testing.T) {
	root := t.TempDir()
	ws, err := storage.Init(root, domain.Project{
		Name:     "Test Project",
		Networks: []domain.Network{*chainNetwork()},
	})
	if err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	err = ExportDatasheetPDF(ws, exportCatalog(t), "out.pdf", PDFOptions{Networks: []string{"nope"}})
	if err == nil || !strings.Contains(err.Error(), "no networks") {
		t.Fatalf("want no-networks error, got %v", err)
	}
}

func TestFormatBlockParams(t *testing.T) {
	cat := exportCatalog(t)
	b := &domain.Block{ID: "c1", Type: "conv2d", Params: map[string]any{
		"filters": 8,
		"kernel":  []any{5, 5},
		"custom":  true,
	}}
	// Catalog order first, extras sorted behind.
	if got := formatBlockParams(b, cat); got != "filters=8, kernel=5x5, custom=true" {
		t.Fatalf("got %q", got)
	}
}
