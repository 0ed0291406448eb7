// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package duckutils builds DuckDB table-function sources for flat files.
package duckutils

import (
	"database/sql"
	"fmt"
	"strings"
)

// Quote returns s as a SQL string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ReadCSV returns a read_csv source that keeps every column as text and
// lower-cases the header names. A zero delim lets DuckDB sniff it.
func ReadCSV(path string, delim rune) string {
	opts := "header = true, all_varchar = true, normalize_names = true"
	if delim != 0 {
		opts += ", delim = " + Quote(string(delim))
	}

	return fmt.Sprintf("read_csv(%s, %s)", Quote(path), opts)
}

// Columns returns the column names of source.
func Columns(db *sql.DB, source string) (map[string]bool, error) {
	rows, err := db.Query("SELECT * FROM " + source + " LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("error reading columns: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}

	return cols, rows.Err()
}

// Require returns an error naming the first column of want missing from cols.
func Require(cols map[string]bool, want ...string) error {
	for _, w := range want {
		if !cols[w] {
			return fmt.Errorf("missing column %q", w)
		}
	}

	return nil
}

// Text returns the trimmed value of a nullable text column.
func Text(s sql.NullString) string {
	if !s.Valid {
		return ""
	}

	return strings.TrimSpace(s.String)
}
