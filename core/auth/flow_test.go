package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core"
	"github.com/darasa-dev/portal/core/session"
)

// deniedErr stands in for a backend refusal (bad password, bad code).
type deniedErr struct{ msg string }

func (e deniedErr) Error() string { return e.msg }
func (e deniedErr) Denied() bool  { return true }

var (
	errBadPassword  = deniedErr{msg: "invalid credentials"}
	errBadCode      = deniedErr{msg: "invalid code"}
	errBackendDown  = errors.New("connection refused")
	testCredentials = Credentials{
		User:  session.User{ID: "u1", FirstName: "Jane", LastName: "Doe", Email: "jane@test.cd", Role: session.RoleAdmin},
		Token: "jwt-token",
	}
)

// fakeBackend scripts the Authenticator's answers; blockLogin lets a test
// hold a call in flight.
type fakeBackend struct {
	mu sync.Mutex

	loginRes  LoginResult
	loginErr  error
	verifyRes Credentials
	verifyErr error

	blockLogin chan struct{} // when set, Login waits on it

	gotEmail     string
	gotTempToken string
	gotCode      string
}

func (b *fakeBackend) Login(ctx context.Context, email, password string) (LoginResult, error) {
	b.mu.Lock()
	b.gotEmail = email
	block := b.blockLogin
	b.mu.Unlock()
	if block != nil {
		<-block
	}
	return b.loginRes, b.loginErr
}

func (b *fakeBackend) VerifyTwoFactor(ctx context.Context, tempToken, code string) (Credentials, error) {
	b.mu.Lock()
	b.gotTempToken = tempToken
	b.gotCode = code
	b.mu.Unlock()
	return b.verifyRes, b.verifyErr
}

type memPersistence struct {
	mu    sync.Mutex
	token string
	prefs session.Preferences
}

func (p *memPersistence) SaveToken(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	return nil
}

func (p *memPersistence) DeleteToken() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	return nil
}

func (p *memPersistence) LoadToken() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token, nil
}

func (p *memPersistence) SavePreferences(prefs session.Preferences) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs = prefs
	return nil
}

func (p *memPersistence) LoadPreferences() (session.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs, nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func newTestFlow(backend Authenticator) (*Flow, *session.Store) {
	store := session.NewStore(&memPersistence{})
	return NewFlow(backend, store, newValidator()), store
}

func TestNewFlow_distinctIDs(t *testing.T) {
	backend := &fakeBackend{}
	a, _ := newTestFlow(backend)
	b, _ := newTestFlow(backend)
	if a.ID() == uuid.Nil || b.ID() == uuid.Nil {
		t.Fatal("NewFlow() issued a nil ID")
	}
	if a.ID() == b.ID() {
		t.Errorf("two flows share ID %v", a.ID())
	}
}

func TestFlow_Submit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		backend    *fakeBackend
		email      string
		password   string
		wantErr    bool
		wantState  State
		wantAuthed bool
	}{
		{
			name:       "direct success",
			backend:    &fakeBackend{loginRes: LoginResult{Credentials: testCredentials}},
			email:      "jane@test.cd",
			password:   "pwd",
			wantState:  StateAuthenticated,
			wantAuthed: true,
		},
		{
			name:      "second factor required",
			backend:   &fakeBackend{loginRes: LoginResult{Requires2FA: true, TempToken: "temp"}},
			email:     "jane@test.cd",
			password:  "pwd",
			wantState: StateTwoFactorPending,
		},
		{
			// a refusal is not a failure; the form stays up for another try
			name:      "denied",
			backend:   &fakeBackend{loginErr: errBadPassword},
			email:     "jane@test.cd",
			password:  "wrong",
			wantErr:   true,
			wantState: StateCredentialsEntry,
		},
		{
			name:      "transport failure",
			backend:   &fakeBackend{loginErr: errBackendDown},
			email:     "jane@test.cd",
			password:  "pwd",
			wantErr:   true,
			wantState: StateFailed,
		},
		{
			name:      "invalid email",
			backend:   &fakeBackend{},
			email:     "not-an-email",
			password:  "pwd",
			wantErr:   true,
			wantState: StateCredentialsEntry,
		},
		{
			name:      "missing password",
			backend:   &fakeBackend{},
			email:     "jane@test.cd",
			wantErr:   true,
			wantState: StateCredentialsEntry,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, store := newTestFlow(tt.backend)

			err := flow.Submit(ctx, tt.email, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Submit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if flow.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", flow.State(), tt.wantState)
			}
			if store.IsAuthenticated() != tt.wantAuthed {
				t.Errorf("IsAuthenticated() = %v, want %v", store.IsAuthenticated(), tt.wantAuthed)
			}
		})
	}
}

// the email is normalized before it reaches the backend
func TestFlow_Submit_cleansEmail(t *testing.T) {
	backend := &fakeBackend{loginRes: LoginResult{Credentials: testCredentials}}
	flow, _ := newTestFlow(backend)

	if err := flow.Submit(context.Background(), "  JANE@Test.CD ", "pwd"); err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if backend.gotEmail != "jane@test.cd" {
		t.Errorf("backend got email %q, want %q", backend.gotEmail, "jane@test.cd")
	}
}

func TestFlow_SubmitCode(t *testing.T) {
	ctx := context.Background()

	newPendingFlow := func(t *testing.T, backend *fakeBackend) (*Flow, *session.Store) {
		backend.loginRes = LoginResult{Requires2FA: true, TempToken: "temp"}
		flow, store := newTestFlow(backend)
		if err := flow.Submit(ctx, "jane@test.cd", "pwd"); err != nil {
			t.Fatalf("Submit(): %v", err)
		}
		return flow, store
	}

	t.Run("success", func(t *testing.T) {
		backend := &fakeBackend{verifyRes: testCredentials}
		flow, store := newPendingFlow(t, backend)

		if err := flow.SubmitCode(ctx, "123456"); err != nil {
			t.Fatalf("SubmitCode(): %v", err)
		}
		if flow.State() != StateAuthenticated {
			t.Errorf("State() = %v, want %v", flow.State(), StateAuthenticated)
		}
		if !store.IsAuthenticated() {
			t.Error("IsAuthenticated() = false after verified code")
		}
		if backend.gotTempToken != "temp" {
			t.Errorf("backend got temp token %q, want %q", backend.gotTempToken, "temp")
		}
	})

	t.Run("rejected code keeps the attempt alive", func(t *testing.T) {
		backend := &fakeBackend{verifyErr: errBadCode}
		flow, store := newPendingFlow(t, backend)

		if err := flow.SubmitCode(ctx, "000000"); err == nil {
			t.Fatal("SubmitCode() = nil, want denial")
		}
		if flow.State() != StateTwoFactorPending {
			t.Errorf("State() = %v, want %v", flow.State(), StateTwoFactorPending)
		}

		// the temp token is retained; a retry still carries it
		backend.verifyErr = nil
		backend.verifyRes = testCredentials
		if err := flow.SubmitCode(ctx, "123456"); err != nil {
			t.Fatalf("retry SubmitCode(): %v", err)
		}
		if backend.gotTempToken != "temp" {
			t.Errorf("retry got temp token %q, want %q", backend.gotTempToken, "temp")
		}
		if !store.IsAuthenticated() {
			t.Error("IsAuthenticated() = false after retry")
		}
	})

	t.Run("transport failure discards the attempt", func(t *testing.T) {
		backend := &fakeBackend{verifyErr: errBackendDown}
		flow, store := newPendingFlow(t, backend)

		if err := flow.SubmitCode(ctx, "123456"); err == nil {
			t.Fatal("SubmitCode() = nil, want transport failure")
		}
		if flow.State() != StateFailed {
			t.Errorf("State() = %v, want %v", flow.State(), StateFailed)
		}
		if store.IsAuthenticated() {
			t.Error("IsAuthenticated() = true after transport failure")
		}
	})

	t.Run("malformed code never reaches the backend", func(t *testing.T) {
		backend := &fakeBackend{}
		flow, _ := newPendingFlow(t, backend)

		for _, code := range []string{"", "12345", "1234567", "abcdef"} {
			if err := flow.SubmitCode(ctx, code); err == nil {
				t.Errorf("SubmitCode(%q) = nil, want validation error", code)
			}
		}
		if backend.gotCode != "" {
			t.Errorf("backend got code %q, want none", backend.gotCode)
		}
	})

	t.Run("without a pending attempt", func(t *testing.T) {
		flow, _ := newTestFlow(&fakeBackend{})
		if err := flow.SubmitCode(ctx, "123456"); errors.Cause(err) != ErrNotPending {
			t.Errorf("SubmitCode() = %v, want %v", err, ErrNotPending)
		}
	})
}

func TestFlow_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending attempt", func(t *testing.T) {
		backend := &fakeBackend{loginRes: LoginResult{Requires2FA: true, TempToken: "temp"}}
		flow, _ := newTestFlow(backend)
		if err := flow.Submit(ctx, "jane@test.cd", "pwd"); err != nil {
			t.Fatalf("Submit(): %v", err)
		}

		flow.Cancel()

		if flow.State() != StateCredentialsEntry {
			t.Errorf("State() = %v, want %v", flow.State(), StateCredentialsEntry)
		}
		// the temp token was discarded; the second factor can no longer be tried
		if err := flow.SubmitCode(ctx, "123456"); errors.Cause(err) != ErrNotPending {
			t.Errorf("SubmitCode() after Cancel = %v, want %v", err, ErrNotPending)
		}
	})

	t.Run("authenticated flow is untouched", func(t *testing.T) {
		backend := &fakeBackend{loginRes: LoginResult{Credentials: testCredentials}}
		flow, store := newTestFlow(backend)
		if err := flow.Submit(ctx, "jane@test.cd", "pwd"); err != nil {
			t.Fatalf("Submit(): %v", err)
		}

		flow.Cancel()

		if flow.State() != StateAuthenticated {
			t.Errorf("State() = %v, want %v", flow.State(), StateAuthenticated)
		}
		if !store.IsAuthenticated() {
			t.Error("IsAuthenticated() = false after cancelling an authenticated flow")
		}
	})
}

// a login response landing after Cancel must not authenticate the session
func TestFlow_Cancel_staleResponse(t *testing.T) {
	backend := &fakeBackend{
		loginRes:   LoginResult{Credentials: testCredentials},
		blockLogin: make(chan struct{}),
	}
	flow, store := newTestFlow(backend)

	errCh := make(chan error, 1)
	go func() {
		errCh <- flow.Submit(context.Background(), "jane@test.cd", "pwd")
	}()

	// wait for the call to be in flight, then abandon the attempt
	for {
		backend.mu.Lock()
		inFlight := backend.gotEmail != ""
		backend.mu.Unlock()
		if inFlight {
			break
		}
		time.Sleep(time.Millisecond)
	}
	flow.Cancel()
	close(backend.blockLogin)

	if err := <-errCh; errors.Cause(err) != ErrFlowAbandoned {
		t.Errorf("Submit() = %v, want %v", err, ErrFlowAbandoned)
	}
	if store.IsAuthenticated() {
		t.Error("IsAuthenticated() = true; stale response touched the session")
	}
	if flow.State() != StateCredentialsEntry {
		t.Errorf("State() = %v, want %v", flow.State(), StateCredentialsEntry)
	}
}

func TestFlow_InputChanged(t *testing.T) {
	ctx := context.Background()

	backend := &fakeBackend{loginErr: errBackendDown}
	flow, _ := newTestFlow(backend)
	if err := flow.Submit(ctx, "jane@test.cd", "pwd"); err == nil {
		t.Fatal("Submit() = nil, want transport failure")
	}
	if flow.State() != StateFailed {
		t.Fatalf("State() = %v, want %v", flow.State(), StateFailed)
	}

	// editing the form clears the failure
	flow.InputChanged()
	if flow.State() != StateCredentialsEntry {
		t.Errorf("State() = %v, want %v", flow.State(), StateCredentialsEntry)
	}

	// in any other state it does nothing
	backend.loginErr = nil
	backend.loginRes = LoginResult{Requires2FA: true, TempToken: "temp"}
	if err := flow.Submit(ctx, "jane@test.cd", "pwd"); err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	flow.InputChanged()
	if flow.State() != StateTwoFactorPending {
		t.Errorf("State() = %v, want %v", flow.State(), StateTwoFactorPending)
	}
}

func TestFlow_Submit_alreadyAuthenticated(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{loginRes: LoginResult{Credentials: testCredentials}}
	flow, _ := newTestFlow(backend)
	if err := flow.Submit(ctx, "jane@test.cd", "pwd"); err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	backend.loginErr = errBackendDown
	if err := flow.Submit(ctx, "jane@test.cd", "pwd"); err != nil {
		t.Errorf("Submit() on authenticated flow = %v, want nil", err)
	}
	if flow.State() != StateAuthenticated {
		t.Errorf("State() = %v, want %v", flow.State(), StateAuthenticated)
	}
}
