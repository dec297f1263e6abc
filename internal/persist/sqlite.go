package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteBlobs stores blobs in a local SQLite database so cart state survives
// process restarts. Uses WAL mode for concurrent read access.
type SQLiteBlobs struct {
	db *sql.DB
}

// OpenSQLite creates or opens the blob database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// multiple times.
func OpenSQLite(path string) (*SQLiteBlobs, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening blob database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to blob database: %w", err)
	}

	// SQLite only supports one writer at a time; keep a single connection
	// to avoid SQLITE_BUSY under concurrent store mutations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLiteBlobs{db: db}, nil
}

// Read returns the blob stored under key, or ErrNotFound.
func (s *SQLiteBlobs) Read(key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %q: %w", key, err)
	}
	return data, nil
}

// Write stores the blob under key, replacing any previous value.
func (s *SQLiteBlobs) Write(key string, data []byte) error {
	_, err := s.db.Exec(
		"INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
		key, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing blob %q: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteBlobs) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
