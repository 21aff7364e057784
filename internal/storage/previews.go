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
	"os"
	"strconv"
	"time"
)

// Preview kinds stored in the previews table.
//
//	thumb: rendered diagram PNG for a network at a pixel size
//	geom:  laid-out geometry as JSON, reusable across output formats
const (
	PreviewKindThumb = "thumb"
	PreviewKindGeom  = "geom"
)

// PreviewKey addresses one cached variant. W and H are the requested
// pixel size for thumbs and zero for geometry blobs.
type PreviewKey struct {
	Network string
	Kind    string
	W, H    int
}

func (k PreviewKey) validate() error {
	if k.Network == "" {
		return errors.New("preview key needs a network")
	}
	if k.Kind != PreviewKindThumb && k.Kind != PreviewKindGeom {
		return fmt.Errorf("unknown preview kind %q", k.Kind)
	}
	return nil
}

func (k PreviewKey) column() string {
	if k.Kind == PreviewKindGeom {
		return "geom_blob"
	}
	return "thumb_blob"
}

// LoadPreview returns the cached blob for key, or nil without error when
// no variant exists. A hit refreshes the access stamp so eviction keeps
// warm entries.
func LoadPreview(ctx context.Context, root string, k PreviewKey) ([]byte, error) {
	if err := k.validate(); err != nil {
		return nil, err
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var (
		id   int64
		blob []byte
	)
	row := db.QueryRowContext(ctx,
		`SELECT id, `+k.column()+` FROM previews WHERE network=? AND kind=? AND w=? AND h=?`,
		k.Network, k.Kind, k.W, k.H)
	if err := row.Scan(&id, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load preview: %w", err)
	}
	if blob == nil {
		return nil, nil
	}
	_, _ = db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE id=?`, previewStamp(), id)
	return blob, nil
}

// StorePreview upserts one variant and then trims the cache back under
// its byte budget, oldest access first.
func StorePreview(ctx context.Context, root string, k PreviewKey, blob []byte) error {
	if err := k.validate(); err != nil {
		return err
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()

	stamp := previewStamp()
	col := k.column()
	_, err = db.ExecContext(ctx,
		`INSERT INTO previews(network,kind,w,h,`+col+`,size,updated_at,last_access)
		 VALUES(?,?,?,?,?,?,?,?)
		 ON CONFLICT(network,kind,w,h) DO UPDATE SET
		   `+col+`=excluded.`+col+`, size=excluded.size,
		   updated_at=excluded.updated_at, last_access=excluded.last_access`,
		k.Network, k.Kind, k.W, k.H, blob, len(blob), stamp, stamp)
	if err != nil {
		return fmt.Errorf("store preview: %w", err)
	}
	if budget := previewBudget(); budget > 0 {
		return trimPreviews(ctx, db, budget)
	}
	return nil
}

// CachedPreview returns the cached blob for key, generating and storing
// it through gen on a miss. A nil gen turns a miss into a nil result.
func CachedPreview(ctx context.Context, root string, k PreviewKey, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := LoadPreview(ctx, root, k); err != nil || b != nil {
		return b, err
	}
	if gen == nil {
		return nil, nil
	}
	b, err := gen(ctx)
	if err != nil || b == nil {
		return nil, err
	}
	if err := StorePreview(ctx, root, k, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DropNetworkPreviews removes every cached variant of one network, used
// when the network is renamed or deleted.
func DropNetworkPreviews(ctx context.Context, root, network string) error {
	if network == "" {
		return errors.New("network is required")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `DELETE FROM previews WHERE network=?`, network); err != nil {
		return fmt.Errorf("drop previews: %w", err)
	}
	return nil
}

// PreviewUsage reports how many variants are cached and how many bytes
// they hold.
func PreviewUsage(ctx context.Context, root string) (count int, bytes int64, err error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()
	err = db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size),0) FROM previews`).Scan(&count, &bytes)
	return count, bytes, err
}

// trimPreviews deletes the least recently used variants until the cache
// fits the budget again. The window sum walks rows oldest first; a row
// is a victim when the bytes freed before it are still short of the
// overshoot.
func trimPreviews(ctx context.Context, db *sql.DB, budget int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("previews total: %w", err)
	}
	if total <= budget {
		return nil
	}
	overshoot := total - budget
	_, err := db.ExecContext(ctx, `
		DELETE FROM previews WHERE id IN (
		  SELECT id FROM (
		    SELECT id, size, SUM(size) OVER (
		      ORDER BY (last_access IS NULL) DESC, last_access ASC, id ASC
		      ROWS UNBOUNDED PRECEDING
		    ) AS freed
		    FROM previews
		  ) WHERE freed - size < ?
		)`, overshoot)
	if err != nil {
		return fmt.Errorf("trim previews: %w", err)
	}
	return nil
}

// previewStamp is fixed width so the TEXT column sorts chronologically.
func previewStamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// previewBudget reads TB_PREVIEWS_MAX_BYTES; unset or invalid values
// fall back to 256 MiB.
func previewBudget() int64 {
	const fallback = 256 << 20
	v := os.Getenv("TB_PREVIEWS_MAX_BYTES")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
