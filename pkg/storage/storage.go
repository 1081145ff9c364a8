// Package storage persists the credentials of a thing.
package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang/glog"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Keys of the credential entries.
const (
	KeyUUID     = "uuid"
	KeyToken    = "token"
	KeyDeviceID = "devid"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// Credentials identify a registered thing.
type Credentials struct {
	UUID     string
	Token    string
	DeviceID uint64
}

// Valid determines all fields are present.
func (c Credentials) Valid() bool {
	return c.UUID != "" && c.Token != "" && c.DeviceID != 0
}

// Store keeps credentials in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// a single connection also keeps an in-memory database alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	if path != Memory {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// MustOpen opens the database or fails.
func MustOpen(path string) *Store {
	s, err := Open(path)
	if err != nil {
		glog.Fatalf("storage: %v", err)
	}
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads the stored credentials. It reports false when any entry is
// missing.
func (s *Store) Load() (Credentials, bool, error) {
	rows, err := s.db.Query("SELECT key, value FROM credentials")
	if err != nil {
		return Credentials{}, false, err
	}
	defer rows.Close()

	var cred Credentials
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Credentials{}, false, err
		}
		switch key {
		case KeyUUID:
			cred.UUID = value
		case KeyToken:
			cred.Token = value
		case KeyDeviceID:
			if cred.DeviceID, err = strconv.ParseUint(value, 16, 64); err != nil {
				glog.Warningf("storage: corrupted device id %q", value)
				cred.DeviceID = 0
			}
		}
	}
	if err := rows.Err(); err != nil {
		return Credentials{}, false, err
	}
	return cred, cred.Valid(), nil
}

// ErrIncomplete indicates saving credentials with missing fields.
var ErrIncomplete = errors.New("incomplete credentials")

// Save replaces the stored credentials.
func (s *Store) Save(cred Credentials) error {
	if !cred.Valid() {
		return ErrIncomplete
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	entries := [][2]string{
		{KeyUUID, cred.UUID},
		{KeyToken, cred.Token},
		{KeyDeviceID, strconv.FormatUint(cred.DeviceID, 16)},
	}
	for _, e := range entries {
		if _, err := tx.Exec("INSERT OR REPLACE INTO credentials (key, value) VALUES (?, ?)", e[0], e[1]); err != nil {
			tx.Rollback()
			return fmt.Errorf("write %s: %w", e[0], err)
		}
	}
	return tx.Commit()
}

// Clear removes the stored credentials.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM credentials")
	return err
}
