// Package local is the durable client-state store: a single-file SQLite
// database holding the auth token and UI preferences across restarts.
package local

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/darasa-dev/portal/core/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	keyToken       = "token"
	keyPreferences = "preferences"
)

type Store struct {
	db *sqlx.DB
}

var _ session.Persistence = (*Store)(nil)

// Open opens (creating if needed) the client-state DB at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage path is required")
	}

	db, err := sqlx.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, errors.Wrap(err, "opening client-state db")
	}
	// single writer; the session store serializes mutations anyway
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating client_state table")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM client_state WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, errors.Wrapf(err, "reading %q", key)
}

func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO client_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return errors.Wrapf(err, "writing %q", key)
}

func (s *Store) SaveToken(token string) error {
	return s.set(keyToken, token)
}

func (s *Store) DeleteToken() error {
	_, err := s.db.Exec(`DELETE FROM client_state WHERE key = ?`, keyToken)
	return errors.Wrap(err, "deleting token")
}

func (s *Store) LoadToken() (string, error) {
	return s.get(keyToken)
}

func (s *Store) SavePreferences(prefs session.Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return errors.Wrap(err, "encoding preferences")
	}
	return s.set(keyPreferences, string(data))
}

func (s *Store) LoadPreferences() (session.Preferences, error) {
	var prefs session.Preferences
	value, err := s.get(keyPreferences)
	if err != nil || value == "" {
		return prefs, err
	}
	if err = json.Unmarshal([]byte(value), &prefs); err != nil {
		return session.Preferences{}, errors.Wrap(err, "decoding preferences")
	}
	return prefs, nil
}
