package session

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
)

// fakePersistence is an in-memory Persistence with optional injected
// failures.
type fakePersistence struct {
	mu       sync.Mutex
	token    string
	hasToken bool
	prefs    Preferences

	saveTokenErr error
	loadTokenErr error
	prefsErr     error
}

func (p *fakePersistence) SaveToken(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveTokenErr != nil {
		return p.saveTokenErr
	}
	p.token = token
	p.hasToken = true
	return nil
}

func (p *fakePersistence) DeleteToken() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.hasToken = false
	return nil
}

func (p *fakePersistence) LoadToken() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token, p.loadTokenErr
}

func (p *fakePersistence) SavePreferences(prefs Preferences) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prefsErr != nil {
		return p.prefsErr
	}
	p.prefs = prefs
	return nil
}

func (p *fakePersistence) LoadPreferences() (Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs, p.prefsErr
}

func (p *fakePersistence) persistedToken() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token, p.hasToken
}

var testUser = User{ID: "u1", FirstName: "Jane", LastName: "Doe", Email: "jane@test.cd", Role: RoleAdmin}

func TestStore_SetCredentials(t *testing.T) {
	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr bool
	}{
		{name: "valid credentials", usr: testUser, token: "tok"},
		{name: "missing token", usr: testUser, wantErr: true},
		{name: "missing user", token: "tok", wantErr: true},
		{name: "missing both", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persys := &fakePersistence{}
			s := NewStore(persys)

			err := s.SetCredentials(tt.usr, tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}

			// user, token and the authenticated flag move together
			if s.IsAuthenticated() == tt.wantErr {
				t.Errorf("IsAuthenticated() = %v after SetCredentials", s.IsAuthenticated())
			}
			if usr, ok := s.CurrentUser(); ok == tt.wantErr {
				t.Errorf("CurrentUser() ok = %v", ok)
			} else if ok && usr != tt.usr {
				t.Errorf("CurrentUser() = %+v, want %+v", usr, tt.usr)
			}
			if tok := s.Token(); (tok != "") == tt.wantErr {
				t.Errorf("Token() = %q", tok)
			}

			if !tt.wantErr {
				if persisted, _ := persys.persistedToken(); persisted != tt.token {
					t.Errorf("persisted token = %q, want %q", persisted, tt.token)
				}
			}
		})
	}
}

// a persistence failure is reported but does not roll back the in-memory
// session: it stays authenticated for its lifetime.
func TestStore_SetCredentials_persistFailure(t *testing.T) {
	persys := &fakePersistence{saveTokenErr: errors.New("disk full")}
	s := NewStore(persys)

	if err := s.SetCredentials(testUser, "tok"); err == nil {
		t.Fatal("SetCredentials() error = nil, want persistence failure")
	}
	if !s.IsAuthenticated() {
		t.Error("IsAuthenticated() = false; persist failure must not clear the session")
	}
}

func TestStore_Logout(t *testing.T) {
	persys := &fakePersistence{}
	s := NewStore(persys)
	if err := s.SetCredentials(testUser, "tok"); err != nil {
		t.Fatalf("SetCredentials(): %v", err)
	}
	if err := s.SetDarkMode(true); err != nil {
		t.Fatalf("SetDarkMode(): %v", err)
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("Logout(): %v", err)
	}

	if s.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after Logout()")
	}
	if _, ok := s.CurrentUser(); ok {
		t.Error("CurrentUser() ok = true after Logout()")
	}
	if s.CurrentRole() != "" {
		t.Errorf("CurrentRole() = %q after Logout()", s.CurrentRole())
	}
	if s.Token() != "" {
		t.Errorf("Token() = %q after Logout()", s.Token())
	}
	if _, has := persys.persistedToken(); has {
		t.Error("persisted token survived Logout()")
	}

	// preferences survive logout
	if !s.Preferences().DarkMode {
		t.Error("Preferences().DarkMode reset by Logout()")
	}

	// logging out an empty session is a no-op
	if err := s.Logout(); err != nil {
		t.Errorf("second Logout(): %v", err)
	}
}

func TestStore_SetDarkMode(t *testing.T) {
	persys := &fakePersistence{}
	s := NewStore(persys)

	// preference changes never touch auth state
	if err := s.SetDarkMode(true); err != nil {
		t.Fatalf("SetDarkMode(): %v", err)
	}
	if s.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after a preference change")
	}
	if !s.Preferences().DarkMode {
		t.Error("Preferences().DarkMode = false, want true")
	}

	if err := s.SetDarkMode(false); err != nil {
		t.Fatalf("SetDarkMode(): %v", err)
	}
	if s.Preferences().DarkMode {
		t.Error("Preferences().DarkMode = true, want false")
	}
}

func TestStore_CurrentRole(t *testing.T) {
	s := NewStore(&fakePersistence{})
	if role := s.CurrentRole(); role != "" {
		t.Errorf("CurrentRole() = %q on empty session", role)
	}
	if err := s.SetCredentials(testUser, "tok"); err != nil {
		t.Fatalf("SetCredentials(): %v", err)
	}
	if role := s.CurrentRole(); role != RoleAdmin {
		t.Errorf("CurrentRole() = %q, want %q", role, RoleAdmin)
	}
}

// CurrentUser hands out a copy; callers cannot mutate session state.
func TestStore_CurrentUser_copies(t *testing.T) {
	s := NewStore(&fakePersistence{})
	if err := s.SetCredentials(testUser, "tok"); err != nil {
		t.Fatalf("SetCredentials(): %v", err)
	}
	usr, _ := s.CurrentUser()
	usr.Role = "hacker"
	if s.CurrentRole() != RoleAdmin {
		t.Errorf("CurrentRole() = %q; CurrentUser leaked a reference", s.CurrentRole())
	}
}

func TestStore_concurrency(t *testing.T) {
	s := NewStore(&fakePersistence{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetCredentials(testUser, "tok")
			_ = s.SetDarkMode(true)
			_ = s.Logout()
		}()
		go func() {
			defer wg.Done()
			_ = s.IsAuthenticated()
			_, _ = s.CurrentUser()
			_ = s.CurrentRole()
			_ = s.Token()
			_ = s.Preferences()
		}()
	}
	wg.Wait()
}

func TestUser_FullName(t *testing.T) {
	tests := []struct {
		name string
		usr  User
		want string
	}{
		{name: "both names", usr: User{FirstName: "Jane", LastName: "Doe"}, want: "Jane Doe"},
		{name: "first only", usr: User{FirstName: "Jane"}, want: "Jane"},
		{name: "last only", usr: User{LastName: "Doe"}, want: "Doe"},
		{name: "empty", usr: User{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usr.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}
