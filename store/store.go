// Package store provides a content-addressed cache for compiled units,
// backed by an embedded sqlite database. A unit's key is the hex sha256
// digest of its serialized form, so identical units share one row.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmot-lang/marmot/bytecode"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS units (
	digest     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at TEXT NOT NULL
)`

// Entry describes one stored unit.
type Entry struct {
	Digest    string
	Name      string
	Size      int
	CreatedAt time.Time
}

// Store caches compiled units keyed by content digest. Safe for
// concurrent use.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens a store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening unit store: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring unit store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating units table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Put serializes the unit, stores it under its content digest, and
// returns the digest. Storing a unit that is already present is a
// no-op.
func (s *Store) Put(unit *bytecode.Unit) (string, error) {
	data, err := bytecode.Marshal(unit)
	if err != nil {
		return "", fmt.Errorf("encoding unit %q: %w", unit.Name(), err)
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT OR IGNORE INTO units (digest, name, data, created_at) VALUES (?, ?, ?, ?)",
		digest, unit.Name(), data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("storing unit %q: %w", unit.Name(), err)
	}
	return digest, nil
}

// Get loads the unit stored under the given digest. The second return
// is false when the digest is not present.
func (s *Store) Get(digest string) (*bytecode.Unit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data []byte
	err := s.db.QueryRow("SELECT data FROM units WHERE digest = ?", digest).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying unit %s: %w", digest, err)
	}
	unit, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding unit %s: %w", digest, err)
	}
	return unit, true, nil
}

// Contains reports whether a unit is stored under the given digest.
func (s *Store) Contains(digest string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var one int
	err := s.db.QueryRow("SELECT 1 FROM units WHERE digest = ?", digest).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying unit %s: %w", digest, err)
	}
	return true, nil
}

// Delete removes the unit stored under the given digest, if present.
func (s *Store) Delete(digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM units WHERE digest = ?", digest); err != nil {
		return fmt.Errorf("deleting unit %s: %w", digest, err)
	}
	return nil
}

// List returns the stored entries, oldest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		"SELECT digest, name, length(data), created_at FROM units ORDER BY created_at, digest")
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var created string
		if err := rows.Scan(&entry.Digest, &entry.Name, &entry.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning unit row: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
