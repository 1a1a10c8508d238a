// Package store holds the client's persisted state: a small key/value
// table in sqlite plus the auth cookie file the route guard reads.
package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Keys used by the session and chat controllers.
const (
	KeyAccessToken        = "access_token"
	KeyUser               = "user"
	KeyActiveConversation = "activeConversation"
	KeyChatOpen           = "isChatOpen"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Store is a mutex-guarded key/value store backed by sqlite. The database
// is opened lazily on first use.
type Store struct {
	Dir string

	mu   sync.Mutex
	once sync.Once
	db   *sql.DB
	err  error
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) open() (*sql.DB, error) {
	s.once.Do(func() {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			s.err = err
			return
		}
		db, err := sql.Open("sqlite", filepath.Join(s.Dir, "taskflow.db"))
		if err != nil {
			s.err = err
			return
		}
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			s.err = err
			return
		}
		s.db = db
	})
	return s.db, s.err
}

// Get returns the stored value, or "" when the key is absent.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.open()
	if err != nil {
		return "", err
	}
	var value string
	err = db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.open()
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.open()
	if err != nil {
		return err
	}
	_, err = db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

// Clear wipes every key. Logout and unauthorized responses both end here.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.open()
	if err != nil {
		return err
	}
	_, err = db.Exec("DELETE FROM settings")
	return err
}

func (s *Store) GetJSON(key string, out interface{}) (bool, error) {
	raw, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SetJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(key, string(data))
}

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
