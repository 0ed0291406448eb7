// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package institutions recognises medico-social institutions among
// geocoding queries, by name or by address.
package institutions

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/geosan/geosan/address"
	"github.com/geosan/geosan/spatial"
	"github.com/geosan/geosan/utils/duckutils"
)

// ErrNotFound is returned when no institution carries the requested name.
var ErrNotFound = errors.New("institution not found")

// Match notes, from the most to the least reliable. AddressMatch is only
// given by Recognise.
const (
	AddressMatch      = "address match"
	GoodMatch         = "good match"
	FuzzyPostalCode   = "fuzzy match npa"
	FuzzyFullInfo     = "fuzzy match npa bis"
	FuzzyMunicipality = "fuzzy match loc"
	NoMatch           = "no match"
)

const (
	postalCodeCutoff   = 0.5
	municipalityCutoff = 0.6
	streetCutoff       = 0.8
)

// Institution is one row of the directory.
type Institution struct {
	Name         string        `json:"name"`
	Street       string        `json:"street"`
	Number       string        `json:"number"`
	PostalCode   string        `json:"postal_code"`
	Municipality string        `json:"municipality"`
	Note         string        `json:"note"`
	Point        spatial.Point `json:"point"`
}

// Directory is an in-memory institution list, kept in load order.
type Directory struct {
	rows []Institution
}

// NewDirectory normalizes the names and addresses of rows.
func NewDirectory(rows []Institution) *Directory {
	d := &Directory{rows: make([]Institution, len(rows))}

	for i, r := range rows {
		r.Name = address.Normalize(r.Name)
		r.Street = address.Normalize(r.Street)
		r.Number = strings.ToUpper(strings.TrimSpace(r.Number))
		r.Municipality = address.Normalize(r.Municipality)
		r.Note = address.Normalize(r.Note)
		r.PostalCode = strings.TrimSpace(r.PostalCode)
		d.rows[i] = r
	}

	return d
}

// Load reads a directory CSV with columns nom, rue, numero, npa, localite,
// note, e and n.
func Load(db *sql.DB, path string) (*Directory, error) {
	src := duckutils.ReadCSV(path, 0)

	cols, err := duckutils.Columns(db, src)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}

	if err = duckutils.Require(cols, "nom", "rue", "numero", "npa", "localite", "e", "n"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	note := "note"
	if !cols[note] {
		note = "NULL"
	}

	rows, err := db.Query(fmt.Sprintf(
		"SELECT nom, rue, numero, npa, localite, %s, e, n FROM %s", note, src))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Institution

	for rows.Next() {
		var name, street, number, postalCode, municipality, comment, e, n sql.NullString
		if err = rows.Scan(&name, &street, &number, &postalCode, &municipality, &comment, &e, &n); err != nil {
			return nil, err
		}

		east, errE := strconv.ParseFloat(duckutils.Text(e), 64)
		north, errN := strconv.ParseFloat(duckutils.Text(n), 64)

		if errE != nil || errN != nil {
			zap.L().Debug("skipping institution without coordinates", zap.String("name", name.String))

			continue
		}

		list = append(list, Institution{
			Name:         name.String,
			Street:       street.String,
			Number:       number.String,
			PostalCode:   postalCode.String,
			Municipality: municipality.String,
			Note:         comment.String,
			Point:        spatial.Point{E: east, N: north},
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return NewDirectory(list), nil
}

// Len returns the number of institutions.
func (d *Directory) Len() int {
	return len(d.rows)
}

func (d *Directory) filter(keep func(Institution) bool) []Institution {
	var out []Institution

	for _, r := range d.rows {
		if keep(r) {
			out = append(out, r)
		}
	}

	return out
}

func names(rows []Institution, key func(Institution) string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = key(r)
	}

	return out
}

// FindByName returns the name of the institution matching name, with a
// note telling how it was found. The empty name comes with NoMatch.
func (d *Directory) FindByName(name, postalCode, municipality string) (string, string) {
	name = address.Normalize(name)
	municipality = address.Normalize(municipality)

	inPostalCode := d.filter(func(r Institution) bool { return r.PostalCode == postalCode })
	for _, r := range inPostalCode {
		if r.Name == name {
			return r.Name, GoodMatch
		}
	}

	if m, ok := address.ClosestMatch(name, names(inPostalCode, nameOf), postalCodeCutoff); ok {
		return m, FuzzyPostalCode
	}

	inMunicipality := d.filter(func(r Institution) bool { return r.Municipality == municipality })

	full := names(inMunicipality, func(r Institution) string { return r.Name + r.Note })
	if m, ok := address.ClosestMatch(name, full, postalCodeCutoff); ok {
		for i, f := range full {
			if f == m {
				return inMunicipality[i].Name, FuzzyFullInfo
			}
		}
	}

	if m, ok := address.ClosestMatch(name, names(inMunicipality, nameOf), municipalityCutoff); ok {
		return m, FuzzyMunicipality
	}

	return "", NoMatch
}

func nameOf(r Institution) string { return r.Name }

func streetOf(r Institution) string { return r.Street }

// AtAddress returns the institution located at the given address. The
// street is matched exactly, then fuzzily among the institutions of the
// postal code, then among those of the municipality.
func (d *Directory) AtAddress(street, number, postalCode, municipality string) (Institution, bool) {
	street = address.Normalize(street)
	number = strings.ToUpper(strings.TrimSpace(number))
	municipality = address.Normalize(municipality)

	inPostalCode := d.filter(func(r Institution) bool { return r.PostalCode == postalCode })
	for _, r := range inPostalCode {
		if r.Street == street && r.Number == number {
			return r, true
		}
	}

	if s, ok := address.ClosestMatch(street, names(inPostalCode, streetOf), streetCutoff); ok {
		for _, r := range inPostalCode {
			if r.Street == s && r.Number == number {
				return r, true
			}
		}
	}

	inMunicipality := d.filter(func(r Institution) bool { return r.Municipality == municipality })
	if s, ok := address.ClosestMatch(street, names(inMunicipality, streetOf), streetCutoff); ok {
		for _, r := range inMunicipality {
			if r.Street == s && r.Number == number {
				return r, true
			}
		}
	}

	return Institution{}, false
}

// Locate returns the position of the institution called name. Homonyms
// are told apart by postal code, then by municipality.
func (d *Directory) Locate(name, postalCode, municipality string) (spatial.Point, error) {
	name = address.Normalize(name)
	municipality = address.Normalize(municipality)

	same := d.filter(func(r Institution) bool { return r.Name == name })

	switch len(same) {
	case 0:
		return spatial.Point{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	case 1:
		return same[0].Point, nil
	}

	for _, r := range same {
		if r.PostalCode == postalCode {
			return r.Point, nil
		}
	}

	for _, r := range same {
		if r.Municipality == municipality {
			return r.Point, nil
		}
	}

	return spatial.Point{}, fmt.Errorf("%q in %s %s: %w", name, postalCode, municipality, ErrNotFound)
}

// Hit is an institution recognised for an address.
type Hit struct {
	Name  string
	Note  string
	Point spatial.Point
}

// Recognise tells which institution an address belongs to: the one
// located at the address, or else the one whose name best matches street,
// which is then located with Locate.
func (d *Directory) Recognise(street, number, postalCode, municipality string) (Hit, error) {
	if inst, ok := d.AtAddress(street, number, postalCode, municipality); ok {
		return Hit{Name: inst.Name, Note: AddressMatch, Point: inst.Point}, nil
	}

	if strings.TrimSpace(street) == "" {
		return Hit{Note: NoMatch}, ErrNotFound
	}

	name, note := d.FindByName(street, postalCode, municipality)
	if name == "" {
		return Hit{Note: note}, fmt.Errorf("%q: %w", street, ErrNotFound)
	}

	p, err := d.Locate(name, postalCode, municipality)
	if err != nil {
		return Hit{Name: name, Note: note}, err
	}

	return Hit{Name: name, Note: note, Point: p}, nil
}
