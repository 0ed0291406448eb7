// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/geosan/geosan/spatial"
)

// Repository handles persistence of geocoding results.
type Repository interface {
	// CreateSchema creates the results table
	CreateSchema() error

	// SaveResults inserts records in one transaction
	SaveResults(records []Record) error

	// ListResults returns stored records, optionally filtered by provenance
	ListResults(provenance *string, limit, offset int) ([]*Record, error)

	// CountByProvenance returns the number of records per provenance
	CountByProvenance() (map[string]int, error)
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a results repository on db.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS results_seq START 1;

		CREATE TABLE IF NOT EXISTS results (
			id BIGINT PRIMARY KEY DEFAULT nextval('results_seq'),
			record_id VARCHAR,
			street VARCHAR,
			number VARCHAR,
			postal_code VARCHAR,
			municipality VARCHAR,
			e DOUBLE,
			n DOUBLE,
			lat DOUBLE,
			lng DOUBLE,
			egid BIGINT,
			provenance VARCHAR NOT NULL,
			confidence VARCHAR NOT NULL,
			reli BIGINT,
			error VARCHAR,
			h3_res1 UBIGINT,
			h3_res2 UBIGINT,
			h3_res3 UBIGINT,
			h3_res4 UBIGINT,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func nullable[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}

	return v
}

func (r *sqlRepository) SaveResults(records []Record) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO results(
			record_id, street, number, postal_code, municipality,
			e, n, lat, lng, egid, provenance, confidence, reli, error,
			h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8,
			created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()

		return err
	}
	defer stmt.Close()

	now := time.Now()

	for i := range records {
		rec := &records[i]

		if err = rec.computeCells(); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("computing cells of record %s: %w", rec.RecordID, err)
		}

		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		var e, n, lat, lng any
		if rec.Point != nil {
			ll := rec.Point.ToWGS84()
			e, n, lat, lng = rec.Point.E, rec.Point.N, ll.Lat, ll.Lng
		}

		args := []any{
			rec.RecordID, rec.Street, rec.Number, rec.PostalCode, rec.Municipality,
			e, n, lat, lng, nullable(rec.EGID), rec.Provenance, rec.Confidence,
			nullable(rec.RELI), nullable(rec.Error),
		}
		for _, c := range rec.H3 {
			args = append(args, nullable(c))
		}

		args = append(args, rec.CreatedAt)

		if _, err = stmt.Exec(args...); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("inserting record %s: %w", rec.RecordID, err)
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) ListResults(provenance *string, limit, offset int) ([]*Record, error) {
	query := `
		SELECT record_id, street, number, postal_code, municipality, e, n, egid,
		       provenance, confidence, reli, error,
		       h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8,
		       created_at
		FROM results
	`

	var args []any

	if provenance != nil {
		query += " WHERE provenance = ?"

		args = append(args, *provenance)
	}

	query += " ORDER BY id"

	if limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record

	for rows.Next() {
		var (
			rec                  Record
			recordID, errText    sql.NullString
			e, n                 sql.NullFloat64
			egid, reli           sql.NullInt64
			h3                   [8]sql.NullInt64
			street, number       sql.NullString
			postal, municipality sql.NullString
		)

		dest := []any{&recordID, &street, &number, &postal, &municipality, &e, &n, &egid,
			&rec.Provenance, &rec.Confidence, &reli, &errText}
		for i := range h3 {
			dest = append(dest, &h3[i])
		}

		dest = append(dest, &rec.CreatedAt)

		if err = rows.Scan(dest...); err != nil {
			return nil, err
		}

		rec.RecordID, rec.Error = recordID.String, errText.String
		rec.Street, rec.Number = street.String, number.String
		rec.PostalCode, rec.Municipality = postal.String, municipality.String
		rec.EGID, rec.RELI = egid.Int64, reli.Int64

		if e.Valid && n.Valid {
			rec.Point = &spatial.Point{E: e.Float64, N: n.Float64}
		}

		for i, c := range h3 {
			rec.H3[i] = c.Int64
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

func (r *sqlRepository) CountByProvenance() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT provenance, count(*) FROM results GROUP BY provenance`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			p string
			n int
		)

		if err = rows.Scan(&p, &n); err != nil {
			return nil, err
		}

		counts[p] = n
	}

	return counts, rows.Err()
}
