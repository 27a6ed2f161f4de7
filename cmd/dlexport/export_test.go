// cmd/dlexport/export_test.go
package main

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tamzrod/datalogger/internal/blockdev"
	"github.com/tamzrod/datalogger/internal/database"
	"github.com/tamzrod/datalogger/internal/stream"
)

// writeImage logs a few records for two sensors into a file-backed image.
func writeImage(t *testing.T, path string) {
	t.Helper()
	dev, err := blockdev.OpenFile(path, 64, 32)
	require.NoError(t, err)
	ps, err := stream.NewPaged(dev, stream.Options{})
	require.NoError(t, err)
	dm := database.New(ps, database.Options{})
	require.NoError(t, dm.Init(database.Config{Capacity: 4}))

	for name, values := range map[string][]float32{"TEMP": {20.5, 21, 21.5}, "HUM": {40}} {
		f, err := dm.Create(database.MustID(name), 64)
		require.NoError(t, err)
		for _, v := range values {
			require.NoError(t, f.Add(v))
		}
		require.NoError(t, f.Flush())
	}
	require.NoError(t, dm.Flush())
	require.NoError(t, dev.Close())
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "flash.img")
	writeImage(t, img)

	dev, err := blockdev.OpenFileReadOnly(img, 64)
	require.NoError(t, err)
	defer dev.Close()
	ps, err := stream.NewPaged(dev, stream.Options{})
	require.NoError(t, err)
	dm := database.New(ps, database.Options{})
	require.NoError(t, dm.Load())

	db, err := sql.Open("sqlite", filepath.Join(dir, "samples.db"))
	require.NoError(t, err)
	defer db.Close()

	n, err := export(db, dm)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rows, err := db.Query(`SELECT seq, value FROM samples WHERE sensor = 'TEMP' ORDER BY seq`)
	require.NoError(t, err)
	defer rows.Close()
	var got []float64
	for rows.Next() {
		var seq int
		var v float64
		require.NoError(t, rows.Scan(&seq, &v))
		assert.Equal(t, len(got), seq)
		got = append(got, v)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []float64{20.5, 21, 21.5}, got)

	var records int
	require.NoError(t, db.QueryRow(`SELECT records FROM files WHERE sensor = 'HUM'`).Scan(&records))
	assert.Equal(t, 1, records)

	// a second export replaces rather than duplicates
	n, err = export(db, dm)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	var total int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&total))
	assert.Equal(t, 4, total)
}
