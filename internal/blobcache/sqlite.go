package blobcache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps entries in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn, configures WAL mode and creates
// the cache table.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLiteStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS blob_cache (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (namespace, key)
);
`

// Migrate creates the cache table if needed.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM blob_cache WHERE namespace = ? AND key = ?`,
		string(ns), key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s/%s", ns, key)
	}
	return payload, nil
}

func (s *SQLiteStore) Put(ctx context.Context, ns Namespace, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blob_cache (namespace, key, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO NOTHING`,
		string(ns), key, payload, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put %s/%s", ns, key)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
