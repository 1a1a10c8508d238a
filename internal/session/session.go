// Package session is the single source of truth for "am I logged in, as
// whom, with what credential". Only its own methods mutate that state.
package session

import (
	"context"
	"errors"
	"sync"

	"taskflow/internal/api"
	"taskflow/internal/app"
	"taskflow/internal/store"
)

type Status int

const (
	// StatusUnknown means persisted credentials exist but could not be
	// verified yet (e.g. the liveness probe hit a network failure).
	StatusUnknown Status = iota
	StatusAnonymous
	StatusAuthenticated
)

// Store holds the authenticated identity and mirrors the credential into
// the key/value store and the auth cookie whenever it changes.
type Store struct {
	kv      *store.Store
	cookies *store.CookieFile
	logger  *app.Logger

	// Redirect is invoked with a route after Set ("/home") and Clear
	// ("/login"). The shell decides what navigation means.
	Redirect func(path string)

	mu      sync.Mutex
	status  Status
	user    *api.User
	token   string
	cleared bool
}

func NewStore(kv *store.Store, cookies *store.CookieFile, logger *app.Logger) *Store {
	return &Store{
		kv:      kv,
		cookies: cookies,
		logger:  logger,
		status:  StatusUnknown,
	}
}

// TokenReader returns a func suitable for api.Client.Token. It reads the
// persisted key directly so every request sees the current credential.
func TokenReader(kv *store.Store) func() string {
	return func() string {
		token, err := kv.Get(store.KeyAccessToken)
		if err != nil {
			return ""
		}
		return token
	}
}

// Hydrate restores the session at process start. With both a token and a
// user persisted it probes a protected endpoint: 200 confirms the session,
// 401 clears it, and a transport failure leaves the status Unknown so a
// network blip does not log the user out.
func (s *Store) Hydrate(ctx context.Context, client *api.Client) error {
	token, err := s.kv.Get(store.KeyAccessToken)
	if err != nil {
		return err
	}
	var user api.User
	haveUser, err := s.kv.GetJSON(store.KeyUser, &user)
	if err != nil {
		// A corrupt user record is dropped, not fatal.
		s.logger.Error("discarding unreadable stored user", map[string]interface{}{"error": err.Error()})
		_ = s.kv.Delete(store.KeyUser)
		haveUser = false
	}

	if token == "" || !haveUser {
		s.mu.Lock()
		s.status = StatusAnonymous
		s.user = nil
		s.token = ""
		s.mu.Unlock()
		return nil
	}

	if _, err := client.Tasks(ctx); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			s.logger.Info("stored token rejected, clearing session", nil)
			s.Clear()
			return nil
		}
		s.logger.Error("session verification failed", map[string]interface{}{"error": err.Error()})
		s.mu.Lock()
		s.status = StatusUnknown
		s.user = &user
		s.token = token
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.status = StatusAuthenticated
	s.user = &user
	s.token = token
	s.cleared = false
	s.mu.Unlock()
	return nil
}

// Set records a fresh credential after login or signup and routes to the
// landing page.
func (s *Store) Set(user api.User, token string) error {
	if err := s.kv.Set(store.KeyAccessToken, token); err != nil {
		return err
	}
	if err := s.kv.SetJSON(store.KeyUser, user); err != nil {
		return err
	}
	if err := s.cookies.Set(token); err != nil {
		return err
	}

	s.mu.Lock()
	s.status = StatusAuthenticated
	s.user = &user
	s.token = token
	s.cleared = false
	redirect := s.Redirect
	s.mu.Unlock()

	if redirect != nil {
		redirect("/home")
	}
	return nil
}

// Clear wipes all persisted session state and routes to the login page.
// Concurrent 401s collapse into a single wipe and a single redirect.
func (s *Store) Clear() {
	s.mu.Lock()
	if s.cleared {
		s.mu.Unlock()
		return
	}
	s.cleared = true
	s.status = StatusAnonymous
	s.user = nil
	s.token = ""
	redirect := s.Redirect
	s.mu.Unlock()

	if err := s.kv.Clear(); err != nil {
		s.logger.Error("failed to clear stored session", map[string]interface{}{"error": err.Error()})
	}
	if err := s.cookies.Delete(); err != nil {
		s.logger.Error("failed to delete auth cookie", map[string]interface{}{"error": err.Error()})
	}
	if redirect != nil {
		redirect("/login")
	}
}

// HandleUnauthorized reports whether err was a 401 and, if so, clears the
// session. Controllers call this from every operation.
func (s *Store) HandleUnauthorized(err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	s.Clear()
	return true
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Store) IsAuthenticated() bool {
	return s.Status() == StatusAuthenticated
}

func (s *Store) User() *api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// HasCookie reports whether a non-expired auth cookie is present; the
// route guard keys off this, never off token validity.
func (s *Store) HasCookie() bool {
	_, ok := s.cookies.Read()
	return ok
}
