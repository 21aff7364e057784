/*
 * Copyright 2025 Julian_Orteil
 * Licensed under the Apache License, Version 2.0.
 */
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JulianOrteil/TensorBuilder/internal/storage"
)

// SearchPG executes a search over the Postgres documents table using tsvector
// and the same filters as the local index, returning rows mapped to
// storage.SearchResult to ease parity checks.
func SearchPG(ctx context.Context, db *sql.DB, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT d.id AS doc_id, d.doc_type AS type, d.path, COALESCE(d.network,'') AS network, ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(d.raw_text,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=10'), '') AS snippet ")
		b.WriteString("FROM documents d WHERE d.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text)
	} else {
		b.WriteString("SELECT d.id AS doc_id, d.doc_type AS type, d.path, COALESCE(d.network,'') AS network, '' AS snippet ")
		b.WriteString("FROM documents d WHERE TRUE ")
	}

	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if types := lowerNonEmpty(q.Types); len(types) > 0 {
		b.WriteString(" AND lower(d.doc_type) = ANY (" + place(types) + ") ")
	}
	if nets := lowerNonEmpty(q.Networks); len(nets) > 0 {
		b.WriteString(" AND lower(COALESCE(d.network,'')) = ANY (" + place(nets) + ") ")
	}
	// Block-type filter mirrors the local EXISTS probe: keep rows whose
	// network contains one of the given block types.
	if blocks := lowerNonEmpty(q.Blocks); len(blocks) > 0 {
		b.WriteString(" AND d.network IS NOT NULL AND EXISTS (SELECT 1 FROM documents b WHERE b.network = d.network AND lower(COALESCE(b.block_type,'')) = ANY (" + place(blocks) + ")) ")
	}

	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY d.network NULLS LAST, d.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &r.Network, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func lowerNonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
