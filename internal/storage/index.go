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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
	"github.com/JulianOrteil/TensorBuilder/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-workspace ephemeral/index data under the workspace root.
	IndexDirName  = ".tb"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add a matching
	// entry to indexMigrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the workspace's embedded index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex opens the workspace index at .tb/index.sqlite, creating
// the file, its schema and any pending migrations on first use. WAL mode
// keeps readers unblocked while background jobs write. The caller owns
// the returned handle and closes it when done.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	db, err := openIndexDB(root)
	if err != nil {
		l.Error("index open failed", slog.Any("err", err))
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := prepareIndex(ctx, db, l); err != nil {
		_ = db.Close()
		l.Error("index prepare failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", IndexPath(root)))
	return db, nil
}

func openIndexDB(root string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}
	// SQLite URIs want forward slashes even on Windows.
	dsn := "file:" + filepath.ToSlash(IndexPath(root)) + "?cache=shared&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded single-user database; one connection is enough.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func prepareIndex(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	// cross_refs relies on cascading deletes.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := bootstrapVersion(ctx, db); err != nil {
		return err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return applyMigrations(ctx, db)
}

// bootstrapVersion creates the meta and version tables and records which
// app build last touched the index. A fresh database starts at the
// current schema; an existing one keeps its schema number so migrations
// can catch it up.
func bootstrapVersion(ctx context.Context, db *sql.DB) error {
	for _, q := range []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	} {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, `
		INSERT INTO version (id, schema, app, created_at, updated_at) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET app=excluded.app, updated_at=excluded.updated_at`,
		schemaVersion, version.String(), now, now)
	if err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return nil
}

// indexMigrations holds one entry per schema bump. Each runs inside its
// own transaction together with the version row update, so a failed step
// leaves the recorded schema where it was.
var indexMigrations = []struct {
	to  int
	ddl []string
}{
	{to: 2, ddl: []string{
		`CREATE INDEX IF NOT EXISTS idx_cross_refs_to ON cross_refs(to_id);`,
		`CREATE INDEX IF NOT EXISTS idx_cross_refs_from ON cross_refs(from_id);`,
	}},
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	// Never downgrade an index a newer build has touched.
	if cur >= schemaVersion {
		return nil
	}
	for _, m := range indexMigrations {
		if m.to <= cur || m.to > schemaVersion {
			continue
		}
		if err := runMigration(ctx, db, m.to, m.ddl); err != nil {
			return err
		}
		cur = m.to
	}
	// Best-effort FTS optimize after structural changes.
	_, _ = db.ExecContext(ctx, `INSERT INTO fts_documents(fts_documents) VALUES('optimize')`)
	return nil
}

func runMigration(ctx context.Context, db *sql.DB, to int, ddl []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", to, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, q := range ddl {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration %d: %w", to, err)
		}
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, to, stamp); err != nil {
		return fmt.Errorf("migration %d version bump: %w", to, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d commit: %w", to, err)
	}
	return nil
}

// indexSchema declares every derived table. documents is the content
// table of the external-content FTS index; the three triggers keep
// fts_documents aligned with each write path, and keeping the content
// table lets snippet() excerpt the matched text.
var indexSchema = []string{
	// Core documents table: project metadata, networks, blocks, notes.
	`CREATE TABLE IF NOT EXISTS documents (
		doc_id     INTEGER PRIMARY KEY,
		type       TEXT    NOT NULL,
		path       TEXT    NOT NULL,
		network    TEXT,
		block_type TEXT,
		text       TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_network ON documents(network);`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
		text,
		content='documents',
		content_rowid='doc_id',
		tokenize = 'unicode61'
	);`,
	`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
		INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
	END;`,
	`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
		INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
	END;`,
	`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE OF text ON documents BEGIN
		INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
		INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
	END;`,

	// Where-used links: block rows reference their blocktype summary row.
	`CREATE TABLE IF NOT EXISTS cross_refs (
		from_id INTEGER NOT NULL,
		to_id   INTEGER NOT NULL,
		PRIMARY KEY(from_id, to_id),
		FOREIGN KEY(from_id) REFERENCES documents(doc_id) ON DELETE CASCADE,
		FOREIGN KEY(to_id)   REFERENCES documents(doc_id) ON DELETE CASCADE
	);`,

	// Preview cache: diagram thumbnails and layout geometry per network.
	`CREATE TABLE IF NOT EXISTS previews (
		id          INTEGER PRIMARY KEY,
		network     TEXT    NOT NULL,
		kind        TEXT    NOT NULL DEFAULT 'thumb',
		w           INTEGER NOT NULL DEFAULT 0,
		h           INTEGER NOT NULL DEFAULT 0,
		thumb_blob  BLOB,
		geom_blob   BLOB,
		size        INTEGER NOT NULL DEFAULT 0,
		updated_at  TEXT    NOT NULL,
		last_access TEXT
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(network, kind, w, h);`,
	`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,

	// Snapshots: edit history and crash autosaves, keyed by free-form scope.
	`CREATE TABLE IF NOT EXISTS snapshots (
		id    INTEGER PRIMARY KEY,
		scope TEXT NOT NULL,
		ts    TEXT NOT NULL,
		blob  BLOB NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_scope_ts ON snapshots(scope, ts);`,
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	for _, q := range indexSchema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex verifies the index opens and passes an integrity
// check, rebuilding it from the manifest when it does not. The damaged
// file is retired into .tb/backups first. Returns true when a rebuild
// happened.
func DetectAndRebuildIndex(ctx context.Context, root string, proj domain.Project) (bool, error) {
	db, openErr := InitOrOpenIndex(root)
	if openErr == nil {
		healthy := indexHealthy(ctx, db)
		_ = db.Close()
		if healthy {
			return false, nil
		}
	}
	retireIndexFile(IndexPath(root))
	if err := RebuildIndex(ctx, root, proj); err != nil {
		if openErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", err, openErr)
		}
		return false, err
	}
	return true, nil
}

// indexHealthy runs a quick_check and probes the documents table.
func indexHealthy(ctx context.Context, db *sql.DB) bool {
	var verdict string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&verdict); err != nil || !strings.EqualFold(verdict, "ok") {
		return false
	}
	_, err := db.ExecContext(ctx, `SELECT 1 FROM documents LIMIT 1;`)
	return err == nil
}

// retireIndexFile moves the current index file into .tb/backups with a
// timestamped name, keeping the damaged file for inspection, and clears
// the WAL side files so the rebuild starts clean.
func retireIndexFile(path string) {
	bdir := filepath.Join(filepath.Dir(path), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if err := os.Rename(path, bak); err != nil {
		if data, rerr := os.ReadFile(path); rerr == nil {
			_ = os.WriteFile(bak, data, 0o644)
		}
		_ = os.Remove(path)
	}
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
}

func withIndexDB(root string, fn func(*sql.DB) error) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// BuildIndexIfEmpty populates the index from the manifest only when the
// documents table has no rows yet. Background warmups call this so an
// already-built index is left untouched.
func BuildIndexIfEmpty(ctx context.Context, root string, proj domain.Project) error {
	return withIndexDB(root, func(db *sql.DB) error {
		var n int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents;`).Scan(&n); err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		if n > 0 {
			return nil
		}
		return rebuildDocumentsFromProject(ctx, db, root, proj)
	})
}

// UpdateIndex replaces the derived document rows with the manifest's
// current content.
func UpdateIndex(ctx context.Context, root string, proj domain.Project) error {
	return withIndexDB(root, func(db *sql.DB) error {
		return rebuildDocumentsFromProject(ctx, db, root, proj)
	})
}

// RebuildIndex drops every derived table and recreates the schema before
// repopulating from the manifest. meta and version survive; everything
// else in the index is derived from project.json.
func RebuildIndex(ctx context.Context, root string, proj domain.Project) error {
	return withIndexDB(root, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin drop: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		for _, q := range []string{
			`DROP TABLE IF EXISTS cross_refs;`,
			`DROP TABLE IF EXISTS previews;`,
			`DROP TABLE IF EXISTS snapshots;`,
			`DROP TRIGGER IF EXISTS documents_ai;`,
			`DROP TRIGGER IF EXISTS documents_ad;`,
			`DROP TRIGGER IF EXISTS documents_au;`,
			`DROP TABLE IF EXISTS documents;`,
			`DROP TABLE IF EXISTS fts_documents;`,
		} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("drop schema: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("drop commit: %w", err)
		}
		if err := ensureIndexSchema(ctx, db); err != nil {
			return err
		}
		return rebuildDocumentsFromProject(ctx, db, root, proj)
	})
}

// rebuildDocumentsFromProject replaces the documents table content from
// the manifest. Every block row gets a cross-ref to its blocktype summary
// row so where-used lookups ("which networks use conv2d") run off the
// index alone.
func rebuildDocumentsFromProject(ctx context.Context, db *sql.DB, root string, proj domain.Project) error {
	type row struct {
		typeStr   string
		path      string
		network   sql.NullString
		blockType sql.NullString
		text      string
	}
	nullStr := func(s string) sql.NullString {
		if s == "" {
			return sql.NullString{}
		}
		return sql.NullString{String: s, Valid: true}
	}
	rows := make([]row, 0, 64)
	// Project-level metadata
	if s := strings.TrimSpace(proj.Name); s != "" {
		rows = append(rows, row{typeStr: "project", path: "project:name", text: s})
	}
	if s := strings.TrimSpace(proj.Metadata.Author); s != "" {
		rows = append(rows, row{typeStr: "note", path: "project:author", text: s})
	}
	if s := strings.TrimSpace(proj.Metadata.Description); s != "" {
		rows = append(rows, row{typeStr: "note", path: "project:description", text: s})
	}
	if s := strings.TrimSpace(proj.Metadata.Notes); s != "" {
		rows = append(rows, row{typeStr: "note", path: "project:notes", text: s})
	}
	if s := strings.TrimSpace(strings.Join(proj.Metadata.Tags, ", ")); s != "" {
		rows = append(rows, row{typeStr: "tag", path: "project:tags", text: s})
	}
	// Networks and their blocks. Block rows carry the network and block type
	// for filtered search; the text is what FTS matches against.
	type blockRef struct {
		rowIdx    int
		blockType string
	}
	var blockRefs []blockRef
	seenTypes := map[string]struct{}{}
	var typeOrder []string
	for _, n := range proj.Networks {
		name := strings.TrimSpace(n.Name)
		if name == "" {
			continue
		}
		rows = append(rows, row{typeStr: "network", path: "network:" + name, network: nullStr(name), text: name})
		if s := strings.TrimSpace(n.Notes); s != "" {
			rows = append(rows, row{typeStr: "note", path: "network:" + name + ":notes", network: nullStr(name), text: s})
		}
		for _, b := range n.Blocks {
			rows = append(rows, row{
				typeStr:   "block",
				path:      fmt.Sprintf("network:%s/block:%s", name, b.ID),
				network:   nullStr(name),
				blockType: nullStr(b.Type),
				text:      b.DisplayLabel(),
			})
			if b.Type != "" {
				blockRefs = append(blockRefs, blockRef{rowIdx: len(rows) - 1, blockType: b.Type})
				if _, ok := seenTypes[b.Type]; !ok {
					seenTypes[b.Type] = struct{}{}
					typeOrder = append(typeOrder, b.Type)
				}
			}
			if s := strings.TrimSpace(b.Notes); s != "" {
				rows = append(rows, row{
					typeStr:   "note",
					path:      fmt.Sprintf("network:%s/block:%s:notes", name, b.ID),
					network:   nullStr(name),
					blockType: nullStr(b.Type),
					text:      s,
				})
			}
		}
	}
	// Installed block packs (custom block YAML files under blocks/)
	if ents, err := os.ReadDir(filepath.Join(root, "blocks")); err == nil {
		for _, e := range ents {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
				rows = append(rows, row{typeStr: "blockpack", path: "blocks:" + name, text: name})
			}
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "DELETE FROM cross_refs;"); err != nil {
		return fmt.Errorf("clear cross_refs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents;"); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO documents(type, path, network, block_type, text) VALUES(?,?,?,?,?);")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	ids := make([]int64, len(rows))
	for i, r := range rows {
		res, err := ins.ExecContext(ctx, r.typeStr, r.path, r.network, r.blockType, r.text)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("document id: %w", err)
		}
	}
	// One summary row per block type, then the per-block references.
	typeDocID := make(map[string]int64, len(typeOrder))
	for _, t := range typeOrder {
		res, err := ins.ExecContext(ctx, "blocktype", "blocktype:"+t, nil, t, t)
		if err != nil {
			return fmt.Errorf("insert blocktype: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("blocktype id: %w", err)
		}
		typeDocID[t] = id
	}
	for _, ref := range blockRefs {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO cross_refs(from_id, to_id) VALUES(?,?)", ids[ref.rowIdx], typeDocID[ref.blockType]); err != nil {
			return fmt.Errorf("insert cross_ref: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
