// ABOUTME: SQLite store bootstrap for the relationship graph
// ABOUTME: Opens the database file, applies pragmas, and creates the schema
package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase opens (creating if needed) the sqlite file at path and
// initializes the schema. Foreign keys are enforced so deleting a contact
// cascades to its meeting cache.
func OpenDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// A single connection sidesteps sqlite's writer lock; sync passes and
	// request handlers share it.
	db.SetMaxOpenConns(1)

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
