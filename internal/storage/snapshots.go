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
	"time"
)

// Snapshot rows hold serialized network states keyed by a free-form
// scope, usually the network name. The crash handler writes under
// "autosave:<name>" so recovery blobs never shadow edit history.

// SnapshotRecord is one stored snapshot row.
type SnapshotRecord struct {
	TS   time.Time
	Blob []byte
}

// SaveSnapshot stores blob under scope at the given timestamp.
func SaveSnapshot(ctx context.Context, ws *WorkspaceHandle, scope string, blob []byte, ts time.Time) error {
	if ws == nil {
		return errors.New("nil WorkspaceHandle")
	}
	if scope == "" {
		return errors.New("scope is required")
	}
	return withIndexDB(ws.Root, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO snapshots(scope, ts, blob) VALUES (?, ?, ?)`,
			scope, ts.UTC().Format(time.RFC3339Nano), blob)
		return err
	})
}

// GetLatestSnapshot returns the newest snapshot for scope, or a nil blob
// when the scope has none.
func GetLatestSnapshot(ctx context.Context, ws *WorkspaceHandle, scope string) ([]byte, time.Time, error) {
	if ws == nil {
		return nil, time.Time{}, errors.New("nil WorkspaceHandle")
	}
	var rec SnapshotRecord
	found := false
	err := withIndexDB(ws.Root, func(db *sql.DB) error {
		var tsStr string
		err := db.QueryRowContext(ctx,
			`SELECT ts, blob FROM snapshots WHERE scope = ? ORDER BY ts DESC, id DESC LIMIT 1`,
			scope).Scan(&tsStr, &rec.Blob)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		rec.TS = parseSnapshotTS(tsStr)
		return nil
	})
	if err != nil || !found {
		return nil, time.Time{}, err
	}
	return rec.Blob, rec.TS, nil
}

// ListSnapshots returns up to limit snapshots for scope, newest first.
// A non-positive limit reads as 50.
func ListSnapshots(ctx context.Context, ws *WorkspaceHandle, scope string, limit int) ([]SnapshotRecord, error) {
	if ws == nil {
		return nil, errors.New("nil WorkspaceHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	var out []SnapshotRecord
	err := withIndexDB(ws.Root, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT ts, blob FROM snapshots WHERE scope = ? ORDER BY ts DESC, id DESC LIMIT ?`,
			scope, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var tsStr string
			var rec SnapshotRecord
			if err := rows.Scan(&tsStr, &rec.Blob); err != nil {
				return err
			}
			rec.TS = parseSnapshotTS(tsStr)
			out = append(out, rec)
		}
		return rows.Err()
	})
	return out, err
}

// PruneOldSnapshots deletes everything but the newest keepLast rows of a
// scope and reports how many rows went. keepLast <= 0 is a no-op rather
// than a wipe.
func PruneOldSnapshots(ctx context.Context, ws *WorkspaceHandle, scope string, keepLast int) (int64, error) {
	if ws == nil {
		return 0, errors.New("nil WorkspaceHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	var pruned int64
	err := withIndexDB(ws.Root, func(db *sql.DB) error {
		// LIMIT -1 OFFSET n selects every row after the newest n.
		res, err := db.ExecContext(ctx,
			`DELETE FROM snapshots WHERE id IN (
				SELECT id FROM snapshots WHERE scope = ? ORDER BY ts DESC, id DESC LIMIT -1 OFFSET ?
			)`, scope, keepLast)
		if err != nil {
			return err
		}
		pruned, err = res.RowsAffected()
		return err
	})
	return pruned, err
}

// parseSnapshotTS maps unparseable timestamp text to the zero time; the
// blob still comes back.
func parseSnapshotTS(s string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
