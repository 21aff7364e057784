/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectAndRebuildIndexAfterCorruption(t *testing.T) {
	root := t.TempDir()
	ws, err := Init(root, testProject("Corrupt"))
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	ctx := context.Background()
	if err := UpdateIndex(ctx, root, ws.Project); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}

	// Clobber the database file with bytes that are not a SQLite header
	if err := os.WriteFile(IndexPath(root), []byte("definitely not a database file"), 0o644); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}

	rebuilt, err := DetectAndRebuildIndex(ctx, root, ws.Project)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex error: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild on corrupted index")
	}

	// The damaged file must be preserved under .tb/backups
	ents, err := os.ReadDir(filepath.Join(root, IndexDirName, "backups"))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	found := false
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), IndexFileName+".") && strings.HasSuffix(e.Name(), ".bak") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no index backup written: %v", ents)
	}

	// The rebuilt index serves searches again
	res, err := Search(ctx, root, SearchQuery{Types: []string{"block"}})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("expected 3 block rows after rebuild, got %d", len(res))
	}

	// A healthy index is left alone
	rebuilt, err = DetectAndRebuildIndex(ctx, root, ws.Project)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex error: %v", err)
	}
	if rebuilt {
		t.Fatalf("healthy index was rebuilt")
	}
}
