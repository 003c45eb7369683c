// Package sqlite opens the local audit store used by the CLI and by servers
// running without PostgreSQL.
package sqlite

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=10000",
	"PRAGMA synchronous=NORMAL",
}

// Open opens (creating if needed) the SQLite database at path and applies
// the analysis_logs schema.
func Open(path string) (*sqlx.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_time_format=sqlite"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One writer avoids SQLITE_BUSY and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	return db, nil
}
