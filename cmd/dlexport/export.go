// cmd/dlexport/export.go
package main

import (
	"database/sql"
	"fmt"

	"github.com/tamzrod/datalogger/internal/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS files(
	sensor TEXT PRIMARY KEY,
	file_offset INTEGER NOT NULL,
	size INTEGER NOT NULL,
	records INTEGER NOT NULL,
	recovered INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS samples(
	sensor TEXT NOT NULL,
	seq INTEGER NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (sensor, seq)
)`,
}

func ensureSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// export copies every in-use file of dm into db inside one transaction.
// Existing rows for the same sensors are replaced.
func export(db *sql.DB, dm *database.Manager) (int, error) {
	if err := ensureSchema(db); err != nil {
		return 0, fmt.Errorf("ensure schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	fileStmt, err := tx.Prepare(`INSERT OR REPLACE INTO files(sensor, file_offset, size, records, recovered) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare files insert: %w", err)
	}
	defer fileStmt.Close()
	sampleStmt, err := tx.Prepare(`INSERT OR REPLACE INTO samples(sensor, seq, value) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare samples insert: %w", err)
	}
	defer sampleStmt.Close()

	var inserted int
	for _, e := range dm.Entries() {
		name := e.ID.String()
		f, err := dm.Open(e.ID)
		if err != nil {
			return inserted, err
		}
		if _, err := tx.Exec(`DELETE FROM samples WHERE sensor = ?`, name); err != nil {
			return inserted, fmt.Errorf("clear %s: %w", name, err)
		}
		if _, err := fileStmt.Exec(name, e.Offset, e.Size, f.NumRecords(), f.Recovered()); err != nil {
			return inserted, fmt.Errorf("insert file %s: %w", name, err)
		}
		for i := 0; i < f.NumRecords(); i++ {
			v, err := f.Record(i)
			if err != nil {
				return inserted, fmt.Errorf("read %s[%d]: %w", name, i, err)
			}
			if _, err := sampleStmt.Exec(name, i, float64(v)); err != nil {
				return inserted, fmt.Errorf("insert %s[%d]: %w", name, i, err)
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}
