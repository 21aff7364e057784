/*
 * Copyright 2025 Julian_Orteil
 * Licensed under the Apache License, Version 2.0.
 */

package blockpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
)

// A block pack is a zip of YAML block definitions that installs into a
// workspace's blocks/ directory, where the catalog merges them on load.

const manifestName = "blockpack.manifest.txt"

// ExportWorkspaceBlocks zips the workspace's blocks directory (<root>/blocks) into a single .zip file.
// The produced archive preserves the directory structure and adds a small manifest file at the root
// named blockpack.manifest.txt for quick human inspection.
// If the blocks directory does not exist or is empty, it still creates the archive with only the manifest.
func ExportWorkspaceBlocks(root string, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("blockpack"), "export").With(slog.String("workspace", root))
	if strings.TrimSpace(root) == "" {
		return errors.New("root is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	blocksDir := filepath.Join(root, "blocks")
	if _, err := os.Stat(blocksDir); os.IsNotExist(err) {
		if err := os.MkdirAll(blocksDir, 0o755); err != nil {
			return fmt.Errorf("ensure blocks dir: %w", err)
		}
	}

	// Ensure target directory exists
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)
	defer func() { _ = zw.Close() }()

	manifest := fmt.Sprintf("TensorBuilder Block Pack\nCreated: %s\nWorkspace: %s\n\nContents mirror the workspace's /blocks directory.\n",
		time.Now().Format(time.RFC3339), root)
	w, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write([]byte(manifest)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	// Walk blocks folder and add files
	added := 0
	err = filepath.Walk(blocksDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		// Zip entries use forward slashes
		zipName := filepath.ToSlash(rel)
		fw, err := zw.Create(zipName)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		added++
		return nil
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return fmt.Errorf("build zip: %w", err)
	}
	l.Info("block pack exported", slog.Int("files", added), slog.String("zip", destZipPath))
	return nil
}

// InstallPack extracts the given .zip pack into the workspace's blocks directory.
// Existing files are not overwritten; if a file already exists, it is skipped.
// Entries that would escape the workspace root are rejected.
// Returns the count of files installed (skipped files are not counted).
func InstallPack(root string, packZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("blockpack"), "install").With(slog.String("workspace", root))
	if strings.TrimSpace(root) == "" {
		return 0, errors.New("root is required")
	}
	if strings.TrimSpace(packZipPath) == "" {
		return 0, errors.New("packZipPath is required")
	}
	blocksDir := filepath.Join(root, "blocks")
	if err := os.MkdirAll(blocksDir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure blocks dir: %w", err)
	}

	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	cleanRoot := filepath.Clean(root)
	cleanBlocks := filepath.Join(cleanRoot, "blocks")
	installed := 0
	for _, f := range r.File {
		name := f.Name
		if name == manifestName {
			continue
		}
		// Entries may or may not carry the blocks/ prefix; normalize so
		// everything lands under the blocks directory.
		targetRel := name
		if !strings.HasPrefix(targetRel, "blocks/") {
			targetRel = path.Join("blocks", targetRel)
		}
		targetPath := filepath.Join(cleanRoot, filepath.FromSlash(targetRel))
		// Zip-slip guard: the resolved path must stay under blocks/.
		if targetPath != cleanBlocks && !strings.HasPrefix(targetPath, cleanBlocks+string(os.PathSeparator)) {
			return installed, fmt.Errorf("unsafe path in pack: %s", name)
		}
		if _, err := os.Stat(targetPath); err == nil {
			l.Warn("skip existing file", slog.String("path", targetPath))
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return installed, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return installed, err
		}
		rc, err := f.Open()
		if err != nil {
			return installed, err
		}
		out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			_ = rc.Close()
			return installed, err
		}
		if _, err := io.Copy(out, rc); err != nil {
			_ = out.Close()
			_ = rc.Close()
			return installed, err
		}
		_ = out.Close()
		_ = rc.Close()
		installed++
	}
	l.Info("block pack installed", slog.Int("files", installed))
	return installed, nil
}

// VerifyPack parses every YAML entry in a pack without installing anything and
// returns the distinct block types it defines, sorted. It fails on the first
// entry the catalog cannot parse.
func VerifyPack(packZipPath string) ([]string, error) {
	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return nil, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	seen := map[string]struct{}{}
	var types []string
	parsed := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(f.Name)
		if !strings.HasSuffix(base, ".yaml") && !strings.HasSuffix(base, ".yml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("pack entry %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("pack entry %s: %w", f.Name, err)
		}
		c, err := catalog.FromYAML(b)
		if err != nil {
			return nil, fmt.Errorf("pack entry %s: %w", f.Name, err)
		}
		parsed++
		for _, t := range c.Types() {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			types = append(types, t)
		}
	}
	if parsed == 0 {
		return nil, errors.New("pack contains no block definitions")
	}
	sort.Strings(types)
	return types, nil
}
