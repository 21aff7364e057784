package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

func testProject(name string) domain.Project {
	return domain.Project{
		Name: name,
		Networks: []domain.Network{
			{
				Name:       "mnist",
				Target:     domain.TargetTensorFlow,
				InputShape: []int{784},
				Blocks: []domain.Block{
					{ID: "in", Type: "input"},
					{ID: "d1", Type: "dense", Label: "hidden", Params: map[string]any{"units": 128}},
					{ID: "d2", Type: "dense", Params: map[string]any{"units": 10}},
				},
				Connections: []domain.Connection{
					{From: "in", To: "d1"},
					{From: "d1", To: "d2"},
				},
			},
		},
	}
}

func TestInitCreatesStructureAndManifest(t *testing.T) {
	root := t.TempDir()
	proj := testProject("Test Workspace")

	ws, err := Init(root, proj)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if ws == nil {
		t.Fatalf("Init returned nil handle")
	}
	if ws.ManifestPath == "" {
		t.Fatalf("ManifestPath not set")
	}

	b, err := os.ReadFile(ws.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var got domain.Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if got.Name != proj.Name {
		t.Fatalf("manifest name mismatch: got %q want %q", got.Name, proj.Name)
	}
	if len(got.Networks) != 1 || got.Networks[0].Name != "mnist" {
		t.Fatalf("manifest networks mismatch: %+v", got.Networks)
	}

	// Standard subdirs should exist
	wantDirs := []string{"blocks", "exports", BackupsDirName}
	for _, d := range wantDirs {
		p := filepath.Join(root, d)
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", p)
		}
	}
	// Index is initialized alongside the workspace
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	ws, err := Init(root, testProject("Backup Test"))
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	// Change something and save again to force a backup
	ws.Project.Metadata.Notes = "changed"
	if err := Save(ws); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	var bakCount int
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			bakCount++
		}
	}
	if bakCount == 0 {
		t.Fatalf("expected at least one backup file, found 0")
	}
}

func TestOpenFallsBackToLatestBackupOnCorruption(t *testing.T) {
	root := t.TempDir()
	proj := testProject("Open From Backup")
	ws, err := Init(root, proj)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	// Force a backup to exist by saving
	ws.Project.Metadata.Notes = "touch"
	if err := Save(ws); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Corrupt the manifest
	if err := os.WriteFile(ws.ManifestPath, []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}

	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Project.Name != proj.Name {
		t.Fatalf("opened project name mismatch: got %q want %q", opened.Project.Name, proj.Name)
	}
}

func TestSaveRejectsInvalidManifestWithoutClobbering(t *testing.T) {
	root := t.TempDir()
	ws, err := Init(root, testProject("Validate On Save"))
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	// An empty block id violates the schema; Save must fail and leave the
	// last good manifest in place.
	ws.Project.Networks[0].Blocks = append(ws.Project.Networks[0].Blocks, domain.Block{ID: "", Type: "dense"})
	if err := Save(ws); err == nil {
		t.Fatalf("expected Save to fail on invalid manifest")
	}

	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open after failed save: %v", err)
	}
	if len(opened.Project.Networks[0].Blocks) != 3 {
		t.Fatalf("manifest was clobbered: %d blocks", len(opened.Project.Networks[0].Blocks))
	}
}

func TestSaveAsScaffoldsNewRoot(t *testing.T) {
	root := t.TempDir()
	ws, err := Init(root, testProject("Move Me"))
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	newRoot := filepath.Join(t.TempDir(), "copy")
	if err := SaveAs(ws, newRoot); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}
	if ws.Root != newRoot {
		t.Fatalf("handle root not updated: %q", ws.Root)
	}
	if _, err := os.Stat(filepath.Join(newRoot, ManifestFileName)); err != nil {
		t.Fatalf("manifest missing in new root: %v", err)
	}
	if fi, err := os.Stat(filepath.Join(newRoot, "exports")); err != nil || !fi.IsDir() {
		t.Fatalf("exports dir missing in new root")
	}
}

func TestAutosaveCrashSnapshotWritesFile(t *testing.T) {
	root := t.TempDir()
	proj := testProject("Crash Snapshot")
	ws, err := Init(root, proj)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	path, err := AutosaveCrashSnapshot(ws)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file does not exist: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var got domain.Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if got.Name != proj.Name {
		t.Fatalf("snapshot content mismatch: got %q want %q", got.Name, proj.Name)
	}
	// The canonical manifest is untouched by a crash snapshot.
	if _, err := os.Stat(ws.ManifestPath); err != nil {
		t.Fatalf("manifest missing after crash snapshot: %v", err)
	}
}
