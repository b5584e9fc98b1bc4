/*
Package pepdb implements a small sqlite-backed store of compressed pep
images, keyed by the SHA-1 of the serialized frame. It backs the batch
"pack" mode of the pep tool, deduplicating identical art across a tree of
source images.
*/
package pepdb

import (
	"crypto/sha1"
	"database/sql"
	"fmt"

	"github.com/ENDESGA/pep"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the sqlite database holding the compressed images.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at file.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS image (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, name STRING NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, frame BLOB NOT NULL)"); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func frameKey(frame []byte) string {
	return fmt.Sprintf("%x", sha1.Sum(frame))
}

// Put stores a serialized frame under its content hash and returns the
// hash. Storing the same frame twice is a no-op.
func (s *Store) Put(name string, frame []byte) (string, error) {
	m, err := pep.Deserialize(frame)
	if err != nil {
		return "", err
	}

	key := frameKey(frame)

	var id int
	err = s.db.QueryRow("SELECT id FROM image WHERE sha1 = ?", key).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec("INSERT INTO image (sha1, name, width, height, frame) VALUES (?, ?, ?, ?, ?)", key, name, m.Width, m.Height, frame); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	}

	return key, nil
}

// Get returns the frame stored under the given content hash, or nil if it
// is not present.
func (s *Store) Get(key string) ([]byte, error) {
	var frame []byte
	err := s.db.QueryRow("SELECT frame FROM image WHERE sha1 = ?", key).Scan(&frame)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, err
	}
	return frame, nil
}

// FindByName returns the content hashes stored under a given source name.
func (s *Store) FindByName(name string) ([]string, error) {
	rows, err := s.db.Query("SELECT sha1 FROM image WHERE name = ? ORDER BY id", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
