package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrIncompleteCredentials = errors.New("both user and token are required")
)

type (
	// User is the authenticated account as reported by the backend.
	User struct {
		ID               string `json:"id"`
		FirstName        string `json:"firstName"`
		LastName         string `json:"lastName"`
		Email            string `json:"email"`
		Phone            string `json:"phone"`
		Role             string `json:"role"`
		TwoFactorEnabled bool   `json:"twoFactorEnabled"`
	}

	// Preferences are UI settings independent of auth state; they survive
	// logout and process restarts.
	Preferences struct {
		DarkMode bool `json:"darkMode"`
	}

	// Persistence is the durable local store behind the session.
	// It is read once at startup (rehydration) and written on every
	// credential or preference change.
	Persistence interface {
		SaveToken(token string) error
		DeleteToken() error
		LoadToken() (string, error)
		SavePreferences(prefs Preferences) error
		LoadPreferences() (Preferences, error)
	}

	// Store owns all mutable session state. All call sites go through its
	// methods; user, token and the authenticated flag always move together.
	Store struct {
		mu     sync.RWMutex
		usr    *User
		token  string
		prefs  Preferences
		persys Persistence
	}
)

func (u User) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
}

func NewStore(p Persistence) *Store {
	return &Store{persys: p}
}

// SetCredentials authenticates the session; user and token are set as one
// unit and the token is persisted for reuse across restarts. A persistence
// failure does not roll back the in-memory state: the session stays
// authenticated for its lifetime and the error is reported to the caller.
func (s *Store) SetCredentials(usr User, token string) error {
	if token == "" || usr.ID == "" {
		return ErrIncompleteCredentials
	}

	s.mu.Lock()
	u := usr
	s.usr = &u
	s.token = token
	s.mu.Unlock()

	return s.persys.SaveToken(token)
}

// restore replays previously persisted credentials without writing them
// back; only the rehydration gate uses it.
func (s *Store) restore(usr User, token string) error {
	if token == "" || usr.ID == "" {
		return ErrIncompleteCredentials
	}
	s.mu.Lock()
	u := usr
	s.usr = &u
	s.token = token
	s.mu.Unlock()
	return nil
}

// Logout clears user, token and the authenticated flag as one unit and
// removes the persisted token. Preferences are left untouched.
// Calling it on an already empty session is a no-op.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.usr = nil
	s.token = ""
	s.mu.Unlock()

	return s.persys.DeleteToken()
}

// SetDarkMode updates the dark-mode preference without touching auth state.
func (s *Store) SetDarkMode(on bool) error {
	s.mu.Lock()
	s.prefs.DarkMode = on
	prefs := s.prefs
	s.mu.Unlock()

	return s.persys.SavePreferences(prefs)
}

func (s *Store) setPreferences(prefs Preferences) {
	s.mu.Lock()
	s.prefs = prefs
	s.mu.Unlock()
}

// IsAuthenticated reports whether a user and token are both set.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usr != nil && s.token != ""
}

// CurrentUser returns the authenticated user, if any.
func (s *Store) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usr == nil {
		return User{}, false
	}
	return *s.usr, true
}

// CurrentRole returns the authenticated user's role, or "" when the
// session is unauthenticated.
func (s *Store) CurrentRole() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usr == nil {
		return ""
	}
	return s.usr.Role
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}
