package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

func isRemote(dsn string) bool {
	return strings.HasPrefix(dsn, "libsql://") ||
		strings.HasPrefix(dsn, "https://") ||
		strings.HasPrefix(dsn, "http://")
}

// Open opens the filing database and applies the schema. Remote libsql
// urls go through the libsql driver, anything else is treated as a local
// sqlite file (or ":memory:").
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn was not specified")
	}

	var (
		sqldb *sql.DB
		err   error
	)
	if isRemote(dsn) {
		sqldb, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
	} else {
		if dsn != ":memory:" {
			err = os.MkdirAll(filepath.Dir(dsn), 0755)
			if err != nil {
				return nil, err
			}
		}
		sqldb, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// sqlite only tolerates a single writer
		sqldb.SetMaxOpenConns(1)
		_, err = sqldb.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			sqldb.Close()
			return nil, err
		}
	}

	_, err = sqldb.Exec(Schema)
	if err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return sqldb, nil
}
