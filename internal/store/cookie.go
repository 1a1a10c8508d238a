package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuthCookieName is read by the route guard on every request.
const AuthCookieName = "auth-token"

// cookieTTL matches the 7-day expiry the session store advertises.
const cookieTTL = 7 * 24 * time.Hour

type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	SameSite string    `json:"same_site"`
}

// CookieFile persists the auth-token cookie to disk so a request-time
// guard can see it without access to the key/value store.
type CookieFile struct {
	Dir string

	mu sync.Mutex
}

func NewCookieFile(dir string) *CookieFile {
	return &CookieFile{Dir: dir}
}

func (c *CookieFile) path() string {
	return filepath.Join(c.Dir, "cookies.json")
}

// Set writes the auth cookie with a fresh 7-day expiry.
func (c *CookieFile) Set(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	cookie := storedCookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cookieTTL),
		SameSite: "Lax",
	}
	data, err := json.Marshal(map[string]storedCookie{AuthCookieName: cookie})
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(), data, 0o600)
}

// Read returns the cookie value, treating an expired cookie as absent.
func (c *CookieFile) Read() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.path())
	if err != nil {
		return "", false
	}
	var cookies map[string]storedCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return "", false
	}
	cookie, ok := cookies[AuthCookieName]
	if !ok || cookie.Value == "" {
		return "", false
	}
	if !cookie.Expires.IsZero() && time.Now().After(cookie.Expires) {
		return "", false
	}
	return cookie.Value, true
}

// Delete removes the cookie file entirely.
func (c *CookieFile) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
