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
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/query"
)

// SearchQuery is one index lookup. Text is matched by FTS5 (bare terms,
// quoted phrases, AND/OR/NOT); the remaining fields narrow the result set
// and compose with each other. Types limits rows to the named document
// kinds (project, network, block, blocktype, note, tag, blockpack).
// Networks keeps rows belonging to the named networks. Blocks keeps rows
// from networks containing at least one block of the given types. A zero
// Limit means 100.
type SearchQuery struct {
	Text     string
	Types    []string
	Networks []string
	Blocks   []string
	Limit    int
	Offset   int
}

// SearchResult is one matched document row. Network is empty for rows
// above network scope, Snippet is set only for FTS matches (with [ ]
// wrapping the matched terms), and DocID feeds WhereUsed.
type SearchResult struct {
	DocID   int64
	Type    string
	Path    string
	Network string
	Snippet string
}

// ParseQuery converts one search box line into a SearchQuery via the
// query mini-language (type:/net:/block: prefixes plus free text). The UI
// search field, the search CLI command and the registry endpoint all
// accept this same line syntax.
func ParseQuery(input string) SearchQuery {
	q := query.Parse(input)
	return SearchQuery{
		Text:     q.FTSText(),
		Types:    q.Types,
		Networks: q.Nets,
		Blocks:   q.Blocks,
	}
}

// Search runs q against the workspace index. With Text set the FTS table
// drives the lookup; without it the documents table is scanned with only
// the filters applied.
func Search(ctx context.Context, root string, q SearchQuery) ([]SearchResult, error) {
	var out []SearchResult
	err := withIndexDB(root, func(db *sql.DB) error {
		var err error
		out, err = searchDB(ctx, db, q)
		return err
	})
	return out, err
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var (
		from  string
		conds []string
		args  []any
	)
	sel := "d.doc_id, d.type, d.path, COALESCE(d.network,''), "
	if strings.TrimSpace(q.Text) != "" {
		sel += "snippet(fts_documents, 0, '[', ']', '...', 10)"
		from = "fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id"
		conds = append(conds, "fts_documents MATCH ?")
		args = append(args, q.Text)
	} else {
		sel += "''"
		from = "documents d"
	}
	if types := lowerNonEmpty(q.Types); len(types) > 0 {
		conds = append(conds, "lower(d.type) IN ("+placeholders(len(types))+")")
		args = appendStrings(args, types)
	}
	if nets := lowerNonEmpty(q.Networks); len(nets) > 0 {
		conds = append(conds, "lower(d.network) IN ("+placeholders(len(nets))+")")
		args = appendStrings(args, nets)
	}
	// The block filter keeps whole networks, not just the matching block
	// rows, so it composes with Types: "type:network block:conv2d" lists
	// the networks that contain a conv2d.
	if blocks := lowerNonEmpty(q.Blocks); len(blocks) > 0 {
		conds = append(conds, "d.network IS NOT NULL AND EXISTS ("+
			"SELECT 1 FROM documents b WHERE b.network = d.network AND lower(b.block_type) IN ("+placeholders(len(blocks))+"))")
		args = appendStrings(args, blocks)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	stmt := "SELECT " + sel + " FROM " + from + where +
		" ORDER BY d.network NULLS LAST, d.doc_id LIMIT ? OFFSET ?"
	args = append(args, pageArgs(q.Limit, q.Offset)...)
	return collectResults(ctx, db, stmt, args...)
}

// WhereUsed lists the documents holding a cross-reference to the target
// document. With a blocktype row as the target this is every block of
// that type.
func WhereUsed(ctx context.Context, root string, targetDocID int64, limit, offset int) ([]SearchResult, error) {
	var out []SearchResult
	err := withIndexDB(root, func(db *sql.DB) error {
		stmt := `SELECT d.doc_id, d.type, d.path, COALESCE(d.network,''), ''
			FROM cross_refs x JOIN documents d ON d.doc_id = x.from_id
			WHERE x.to_id = ?
			ORDER BY d.network NULLS LAST, d.doc_id LIMIT ? OFFSET ?`
		args := append([]any{targetDocID}, pageArgs(limit, offset)...)
		var err error
		out, err = collectResults(ctx, db, stmt, args...)
		return err
	})
	return out, err
}

// WhereUsedByPath looks a document up by its path ("blocktype:<type>" for
// block types) and lists references to it. An unknown path yields an
// empty result, not an error.
func WhereUsedByPath(ctx context.Context, root string, path string, limit, offset int) ([]SearchResult, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}
	var id int64
	err := withIndexDB(root, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, "SELECT doc_id FROM documents WHERE path=?", path).Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return []SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return WhereUsed(ctx, root, id, limit, offset)
}

func collectResults(ctx context.Context, db *sql.DB, stmt string, args ...any) ([]SearchResult, error) {
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &r.Network, &sn); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// pageArgs clamps pagination; a zero limit reads as 100 rows.
func pageArgs(limit, offset int) []any {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return []any{limit, offset}
}

func lowerNonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func appendStrings(args []any, vals []string) []any {
	for _, v := range vals {
		args = append(args, v)
	}
	return args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
