package store

import (
	"database/sql"

	_ "github.com/duckdb/duckdb-go/v2"
)

const memoryDSN = ":memory:"

// NewDB opens the DuckDB database at path. ":memory:" opens a private
// in-memory database.
func NewDB(path string) (*sql.DB, error) {
	if path == memoryDSN {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
