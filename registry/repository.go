// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/geosan/geosan/address"
	"github.com/geosan/geosan/spatial"
	"github.com/geosan/geosan/utils/duckutils"
	"github.com/geosan/geosan/utils/fmtutils"
)

// ImportStats summarizes an address import.
type ImportStats struct {
	Read          int
	Imported      int
	MissingStreet int
	Rejected      int
}

// Stats describes the stored reference data.
type Stats struct {
	Addresses      int
	Buildings      int
	PostalCodes    int
	Municipalities int
	Localities     int
}

// Repository persists the reference data in DuckDB.
type Repository interface {
	// CreateSchema creates the addresses and localities tables
	CreateSchema() error

	// ImportAddressesCSV appends a GWR address export
	ImportAddressesCSV(path string) (ImportStats, error)

	// ImportLocalitiesCSV appends a swisstopo locality directory
	ImportLocalitiesCSV(path string) (int, error)

	// SaveLocalities appends locality centroids after the stored ones
	SaveLocalities(localities []Locality) error

	// Load reads both tables into a Registry
	Load() (*Registry, error)

	// Stats counts the stored rows
	Stats() (Stats, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a registry repository on db.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS addresses_seq START 1;

		CREATE TABLE IF NOT EXISTS addresses (
			seq BIGINT PRIMARY KEY DEFAULT nextval('addresses_seq'),
			egid BIGINT NOT NULL,
			strname VARCHAR NOT NULL,
			deinr VARCHAR NOT NULL,
			dplz4 VARCHAR NOT NULL,
			gdename VARCHAR NOT NULL,
			e DOUBLE NOT NULL,
			n DOUBLE NOT NULL
		);

		CREATE SEQUENCE IF NOT EXISTS localities_seq START 1;

		CREATE TABLE IF NOT EXISTS localities (
			seq BIGINT PRIMARY KEY DEFAULT nextval('localities_seq'),
			name VARCHAR NOT NULL,
			postal_code VARCHAR NOT NULL,
			e DOUBLE NOT NULL,
			n DOUBLE NOT NULL
		);
	`)

	return err
}

func (r *sqlRepository) ImportAddressesCSV(path string) (ImportStats, error) {
	var stats ImportStats

	src := duckutils.ReadCSV(path, 0)

	cols, err := duckutils.Columns(r.db, src)
	if err != nil {
		return stats, fmt.Errorf("error opening %s: %w", path, err)
	}

	municipality := "gdename"
	if !cols[municipality] {
		municipality = "ggdename"
	}

	if err = duckutils.Require(cols, "egid", "strname", "deinr", "dplz4", municipality, "gkode", "gkodn"); err != nil {
		return stats, fmt.Errorf("%s: %w", path, err)
	}

	rows, err := r.db.Query(fmt.Sprintf(
		"SELECT egid, strname, deinr, dplz4, %s, gkode, gkodn FROM %s", municipality, src))
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	var batch []Address

	for rows.Next() {
		var egid, street, number, postalCode, name, e, n sql.NullString
		if err = rows.Scan(&egid, &street, &number, &postalCode, &name, &e, &n); err != nil {
			return stats, err
		}

		stats.Read++

		if duckutils.Text(street) == "" {
			stats.MissingStreet++

			continue
		}

		a, ok := parseAddress(egid, street, number, postalCode, name, e, n)
		if !ok {
			stats.Rejected++

			zap.L().Debug("rejected registry row", zap.String("egid", egid.String))

			continue
		}

		batch = append(batch, a)
	}

	if err = rows.Err(); err != nil {
		return stats, err
	}

	zap.L().Info("removed addresses with missing street name",
		zap.Int("count", stats.MissingStreet),
		zap.Float64("percent", fmtutils.Percent(stats.MissingStreet, stats.Read)))

	if err = r.insertAddresses(batch); err != nil {
		return stats, err
	}

	stats.Imported = len(batch)

	return stats, nil
}

func parseAddress(egid, street, number, postalCode, name, e, n sql.NullString) (Address, bool) {
	id, err := strconv.ParseInt(duckutils.Text(egid), 10, 64)
	if err != nil {
		return Address{}, false
	}

	east, errE := strconv.ParseFloat(duckutils.Text(e), 64)
	north, errN := strconv.ParseFloat(duckutils.Text(n), 64)

	if errE != nil || errN != nil {
		return Address{}, false
	}

	return Address{
		EGID:         id,
		Street:       address.Normalize(street.String),
		Number:       strings.ToUpper(duckutils.Text(number)),
		PostalCode:   duckutils.Text(postalCode),
		Municipality: address.Normalize(name.String),
		Point:        spatial.Point{E: east, N: north},
	}, true
}

func (r *sqlRepository) insertAddresses(addresses []Address) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO addresses(egid, strname, deinr, dplz4, gdename, e, n)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()

		return err
	}
	defer stmt.Close()

	for _, a := range addresses {
		_, err = stmt.Exec(a.EGID, a.Street, a.Number, a.PostalCode, a.Municipality, a.Point.E, a.Point.N)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("error inserting egid %d: %w", a.EGID, err)
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) ImportLocalitiesCSV(path string) (int, error) {
	src := duckutils.ReadCSV(path, ';')

	cols, err := duckutils.Columns(r.db, src)
	if err != nil {
		return 0, fmt.Errorf("error opening %s: %w", path, err)
	}

	if err = duckutils.Require(cols, "ortschaftsname", "plz", "e", "n"); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	rows, err := r.db.Query("SELECT ortschaftsname, plz, e, n FROM " + src)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var localities []Locality

	for rows.Next() {
		var name, plz, e, n sql.NullString
		if err = rows.Scan(&name, &plz, &e, &n); err != nil {
			return 0, err
		}

		east, errE := strconv.ParseFloat(duckutils.Text(e), 64)
		north, errN := strconv.ParseFloat(duckutils.Text(n), 64)

		if errE != nil || errN != nil {
			zap.L().Debug("skipping locality without coordinates", zap.String("name", name.String))

			continue
		}

		localities = append(localities, Locality{
			Name:       address.Normalize(name.String),
			PostalCode: duckutils.Text(plz),
			Point:      spatial.Point{E: east, N: north},
		})
	}

	if err = rows.Err(); err != nil {
		return 0, err
	}

	return len(localities), r.SaveLocalities(localities)
}

func (r *sqlRepository) SaveLocalities(localities []Locality) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO localities(name, postal_code, e, n) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()

		return err
	}
	defer stmt.Close()

	for _, l := range localities {
		if _, err = stmt.Exec(l.Name, l.PostalCode, l.Point.E, l.Point.N); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("error inserting locality %s %s: %w", l.PostalCode, l.Name, err)
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) Load() (*Registry, error) {
	rows, err := r.db.Query(`SELECT egid, strname, deinr, dplz4, gdename, e, n FROM addresses ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []Address

	for rows.Next() {
		var a Address
		if err = rows.Scan(&a.EGID, &a.Street, &a.Number, &a.PostalCode, &a.Municipality, &a.Point.E, &a.Point.N); err != nil {
			return nil, err
		}

		addresses = append(addresses, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	lrows, err := r.db.Query(`SELECT name, postal_code, e, n FROM localities ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()

	var localities []Locality

	for lrows.Next() {
		var l Locality
		if err = lrows.Scan(&l.Name, &l.PostalCode, &l.Point.E, &l.Point.N); err != nil {
			return nil, err
		}

		localities = append(localities, l)
	}

	if err = lrows.Err(); err != nil {
		return nil, err
	}

	zap.L().Info("registry loaded",
		zap.Int("addresses", len(addresses)),
		zap.Int("localities", len(localities)))

	return New(addresses, localities), nil
}

func (r *sqlRepository) Stats() (Stats, error) {
	var s Stats

	err := r.db.QueryRow(`
		SELECT count(*), count(DISTINCT egid), count(DISTINCT dplz4), count(DISTINCT gdename)
		FROM addresses
	`).Scan(&s.Addresses, &s.Buildings, &s.PostalCodes, &s.Municipalities)
	if err != nil {
		return s, err
	}

	err = r.db.QueryRow(`SELECT count(*) FROM localities`).Scan(&s.Localities)

	return s, err
}
