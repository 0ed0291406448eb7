// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/geosan/geosan/geocode"
	"github.com/geosan/geosan/utils/duckutils"
)

// ReadQueries reads the addresses to geocode from a CSV file. The street
// comes either from an address column holding street and number on one
// line, or from strname and deinr columns. npa and ville give the
// locality; id is optional and defaults to the line number.
func ReadQueries(db *sql.DB, path string) ([]geocode.Query, error) {
	src := duckutils.ReadCSV(path, 0)

	cols, err := duckutils.Columns(db, src)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}

	if err = duckutils.Require(cols, "npa", "ville"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	oneLine := cols["address"]
	if !oneLine {
		if err = duckutils.Require(cols, "strname", "deinr"); err != nil {
			return nil, fmt.Errorf("%s: address or strname and deinr: %w", path, err)
		}
	}

	id := "NULL"
	if cols["id"] {
		id = "id"
	}

	street, number := "strname", "deinr"
	if oneLine {
		street, number = "address", "NULL"
	}

	rows, err := db.Query(fmt.Sprintf(
		"SELECT %s, %s, %s, npa, ville FROM %s", id, street, number, src))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []geocode.Query

	for rows.Next() {
		var recID, s, n, npa, ville sql.NullString
		if err = rows.Scan(&recID, &s, &n, &npa, &ville); err != nil {
			return nil, err
		}

		qid := duckutils.Text(recID)
		if qid == "" {
			qid = strconv.Itoa(len(queries) + 1)
		}

		if oneLine {
			queries = append(queries, geocode.ParseQuery(qid, s.String, duckutils.Text(npa), ville.String))
		} else {
			queries = append(queries, geocode.NewQuery(qid, s.String, n.String, duckutils.Text(npa), ville.String))
		}
	}

	return queries, rows.Err()
}
