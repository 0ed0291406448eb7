// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosan/geosan/spatial"
)

func sampleAddresses() []Address {
	return []Address{
		{EGID: 1, Street: "CHEMIN DE MONTELLY", Number: "1", PostalCode: "1007", Municipality: "LAUSANNE", Point: spatial.Point{E: 2536000, N: 1151000}},
		{EGID: 2, Street: "CHEMIN DE MONTELLY", Number: "3", PostalCode: "1007", Municipality: "LAUSANNE", Point: spatial.Point{E: 2536010, N: 1151010}},
		{EGID: 2, Street: "CHEMIN DE MONTELLY", Number: "3A", PostalCode: "1007", Municipality: "LAUSANNE", Point: spatial.Point{E: 2536012, N: 1151012}},
		{EGID: 3, Street: "RUE CENTRALE", Number: "5", PostalCode: "1003", Municipality: "LAUSANNE", Point: spatial.Point{E: 2538000, N: 1152000}},
	}
}

func TestRegistryIndexes(t *testing.T) {
	r := New(sampleAddresses(), []Locality{{Name: "LAUSANNE", PostalCode: "1003"}})

	assert.Equal(t, 4, r.Len())
	assert.Len(t, r.ByPostalCode("1007"), 3)
	assert.Len(t, r.ByMunicipality("LAUSANNE"), 4)
	assert.Nil(t, r.ByPostalCode("9999"))
	assert.Len(t, r.Localities(), 1)

	got := r.ByPostalCode("1007")
	assert.Equal(t, "1", got[0].Number)
	assert.Equal(t, "3A", got[2].Number)
}

func TestRegistryBuilding(t *testing.T) {
	r := New(sampleAddresses(), nil)

	a, err := r.Building(2)
	require.NoError(t, err)
	assert.Equal(t, "3", a.Number)

	_, err = r.Building(42)
	require.ErrorIs(t, err, ErrBuildingNotFound)
	assert.Contains(t, err.Error(), "egid 42")
}

func setupTestDB(t *testing.T) (*sql.DB, Repository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)

	repo := NewRepository(db)
	require.NoError(t, repo.CreateSchema())

	return db, repo
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const gwrExport = "EGID\tSTRNAME\tDEINR\tDPLZ4\tGDENAME\tGKODE\tGKODN\n" +
	"100\tChemin de Montelly\t1\t1007\tLausanne\t2536000\t1151000\n" +
	"101\t\t2\t1007\tLausanne\t2536100\t1151100\n" +
	"102\tAvenue de Béthusy\t9b\t1005\tLausanne\t2538900\t1152500\n" +
	"xyz\tRue Centrale\t5\t1003\tLausanne\t2538000\t1152000\n" +
	"103\tRue Centrale\t5\t1003\tLausanne\t\t1152000\n"

func TestImportAddressesCSV(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	stats, err := repo.ImportAddressesCSV(writeFile(t, "gwr.tsv", gwrExport))
	require.NoError(t, err)

	want := ImportStats{Read: 5, Imported: 2, MissingStreet: 1, Rejected: 2}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("ImportAddressesCSV() mismatch (-want +got):\n%s", diff)
	}

	reg, err := repo.Load()
	require.NoError(t, err)

	a, err := reg.Building(102)
	require.NoError(t, err)
	assert.Equal(t, Address{
		EGID:         102,
		Street:       "AVENUE DE BETHUSY",
		Number:       "9B",
		PostalCode:   "1005",
		Municipality: "LAUSANNE",
		Point:        spatial.Point{E: 2538900, N: 1152500},
	}, a)
}

func TestImportAddressesCSVAlternateMunicipalityColumn(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	content := "EGID,STRNAME,DEINR,DPLZ4,GGDENAME,GKODE,GKODN\n" +
		"7,Grand-Rue,12,1100,Morges,2527000,1151500\n"

	stats, err := repo.ImportAddressesCSV(writeFile(t, "gwr.csv", content))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)

	reg, err := repo.Load()
	require.NoError(t, err)
	assert.Len(t, reg.ByMunicipality("MORGES"), 1)
}

func TestImportAddressesCSVMissingColumn(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	_, err := repo.ImportAddressesCSV(writeFile(t, "bad.csv", "EGID,STRNAME\n1,Rue\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestImportLocalitiesCSVKeepsOrder(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	content := "Ortschaftsname;PLZ;Zusatzziffer;Gemeindename;E;N\n" +
		"Lausanne;1003;0;Lausanne;2538000;1152300\n" +
		"Genève;1204;0;Genève;2500300;1117800\n" +
		"Lausanne 25;1000;25;Lausanne;2540000;1156000\n" +
		"Nowhere;9999;0;Nowhere;;\n"

	n, err := repo.ImportLocalitiesCSV(writeFile(t, "plz.csv", content))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, repo.SaveLocalities([]Locality{{Name: "MORGES", PostalCode: "1110", Point: spatial.Point{E: 2527500, N: 1151300}}}))

	reg, err := repo.Load()
	require.NoError(t, err)

	names := make([]string, 0, len(reg.Localities()))
	for _, l := range reg.Localities() {
		names = append(names, l.Name)
	}

	assert.Equal(t, []string{"LAUSANNE", "GENEVE", "LAUSANNE 25", "MORGES"}, names)
}

func TestStats(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	_, err := repo.ImportAddressesCSV(writeFile(t, "gwr.tsv", gwrExport))
	require.NoError(t, err)
	require.NoError(t, repo.SaveLocalities([]Locality{{Name: "LAUSANNE", PostalCode: "1007"}}))

	s, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Addresses: 2, Buildings: 2, PostalCodes: 2, Municipalities: 1, Localities: 1}, s)
}

func square(x0, y0, size float64) []shp.Point {
	// clockwise, closed
	return []shp.Point{
		{X: x0, Y: y0},
		{X: x0, Y: y0 + size},
		{X: x0 + size, Y: y0 + size},
		{X: x0 + size, Y: y0},
		{X: x0, Y: y0},
	}
}

func TestReadLocalitiesShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plz.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("NAME", 40),
		shp.StringField("PLZ", 4),
	}))

	single := shp.Polygon(*shp.NewPolyLine([][]shp.Point{square(2500000, 1100000, 100)}))
	w.Write(&single)
	require.NoError(t, w.WriteAttribute(0, 0, "Écublens"))
	require.NoError(t, w.WriteAttribute(0, 1, "1024"))

	double := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		square(2600000, 1200000, 100),
		square(2600200, 1200000, 100),
	}))
	w.Write(&double)
	require.NoError(t, w.WriteAttribute(1, 0, "Bern"))
	require.NoError(t, w.WriteAttribute(1, 1, "3011"))
	w.Close()

	// the writer names its attribute table "plzdbf"
	written := filepath.Join(filepath.Dir(path), "plzdbf")
	if _, err := os.Stat(written); err == nil {
		require.NoError(t, os.Rename(written, filepath.Join(filepath.Dir(path), "plz.dbf")))
	}

	require.FileExists(t, filepath.Join(filepath.Dir(path), "plz.dbf"))

	got, err := ReadLocalitiesShapefile(path, "name", "PLZ")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "ECUBLENS", got[0].Name)
	assert.Equal(t, "1024", got[0].PostalCode)
	assert.InDelta(t, 2500050, got[0].Point.E, 1e-6)
	assert.InDelta(t, 1100050, got[0].Point.N, 1e-6)

	assert.Equal(t, "BERN", got[1].Name)
	assert.InDelta(t, 2600150, got[1].Point.E, 1e-6)
	assert.InDelta(t, 1200050, got[1].Point.N, 1e-6)

	_, err = ReadLocalitiesShapefile(path, "ORTSCHAFT", "PLZ")
	require.Error(t, err)
}

func TestSignedArea(t *testing.T) {
	cw := []float64{0, 0, 0, 10, 10, 10, 10, 0, 0, 0}
	assert.InDelta(t, -100, signedArea(cw), 1e-9)

	ccw := []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}
	assert.InDelta(t, 100, signedArea(ccw), 1e-9)
}
