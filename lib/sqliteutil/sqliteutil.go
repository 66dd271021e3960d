package sqliteutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Database locates a database, it is either a local sqlite file or a remote
// libsql server.
type Database struct {
	// File is the path of a local sqlite database, ":memory:" is an in-memory database.
	File string `json:"file"`
	// Url of a libsql server (libsql://, https:// or wss://), it takes priority over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func isRemote(path string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

// Open opens the database and applies schema to it.
func (d Database) Open(ctx context.Context, schema string) (*sql.DB, error) {
	if d.Url != "" {
		dsn := d.Url
		if d.AuthToken != "" {
			u, err := url.Parse(d.Url)
			if err != nil {
				return nil, fmt.Errorf("parse database url: %w", err)
			}
			query := u.Query()
			query.Set("authToken", d.AuthToken)
			u.RawQuery = query.Encode()
			dsn = u.String()
		}
		return OpenDB(ctx, schema, dsn)
	}
	if d.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}
	return OpenDB(ctx, schema, d.File)
}

// OpenDB opens a local sqlite database at path (creating it if needed) or a
// remote libsql database if path is a url, then applies schema.
func OpenDB(ctx context.Context, schema, path string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	if isRemote(path) {
		db, err = sql.Open("libsql", path)
	} else {
		db, err = openLocal(path)
	}
	if err != nil {
		return nil, err
	}

	if schema != "" {
		_, err = db.ExecContext(ctx, schema)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}

func openLocal(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0700)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite only allows a single writer, see
	// https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	// a single connection also keeps :memory: databases alive between queries
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
