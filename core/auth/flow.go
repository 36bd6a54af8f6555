package auth

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core"
	"github.com/darasa-dev/portal/core/session"
)

var (
	ErrFlowAbandoned = errors.New("login flow was abandoned")
	ErrNotPending    = errors.New("no two-factor verification is pending")
)

type (
	// Credentials is a successful authentication result.
	Credentials struct {
		User  session.User
		Token string
	}

	// LoginResult is the backend's answer to a password check: either full
	// credentials, or a short-lived temp token awaiting the second factor.
	LoginResult struct {
		Credentials
		Requires2FA bool
		TempToken   string
	}

	// Authenticator is the slice of the backend API the login flow needs.
	Authenticator interface {
		Login(ctx context.Context, email, password string) (LoginResult, error)
		VerifyTwoFactor(ctx context.Context, tempToken, code string) (Credentials, error)
	}
)

// DeniedError marks a backend refusal of the attempt itself (bad
// credentials, bad code) as opposed to a transport or server failure.
type DeniedError interface {
	error
	Denied() bool
}

func isDenied(err error) bool {
	d, ok := errors.Cause(err).(DeniedError)
	return ok && d.Denied()
}

// State is the login flow's current position.
type State int

const (
	StateCredentialsEntry State = iota
	StateTwoFactorPending
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCredentialsEntry:
		return "CredentialsEntry"
	case StateTwoFactorPending:
		return "TwoFactorPending"
	case StateAuthenticated:
		return "Authenticated"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (li *LoginInput) Validate(validate *validator.Validate) error {
	li.Email = core.CleanString(li.Email, true /* lower */)
	return validate.Struct(li)
}

type CodeInput struct {
	Code string `json:"code" validate:"required,otpcode"`
}

func (ci *CodeInput) Validate(validate *validator.Validate) error {
	ci.Code = core.CleanString(ci.Code)
	return validate.Struct(ci)
}

// Flow drives one login attempt through CredentialsEntry ->
// TwoFactorPending -> Authenticated, holding the transient temp token only
// while the second factor is pending.
//
// Each flow carries a generation counter bumped by Cancel: a backend
// response landing after the user has moved on compares its generation and
// is discarded before it can touch the session store.
type Flow struct {
	id       uuid.UUID
	backend  Authenticator
	store    *session.Store
	validate *validator.Validate

	mu        sync.Mutex
	gen       uint64
	state     State
	tempToken string
}

func NewFlow(backend Authenticator, store *session.Store, validate *validator.Validate) *Flow {
	return &Flow{
		id:       uuid.New(),
		backend:  backend,
		store:    store,
		validate: validate,
		state:    StateCredentialsEntry,
	}
}

// ID identifies this attempt; forms rendered for one flow carry it so a
// submission from a replaced attempt can be told apart from the live one.
func (f *Flow) ID() uuid.UUID { return f.id }

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit checks the email+password pair with the backend. On a denied
// attempt the flow stays in CredentialsEntry and the error is surfaced; on
// a transport failure it moves to Failed. The session store is only
// mutated on full success.
func (f *Flow) Submit(ctx context.Context, email, password string) error {
	in := LoginInput{Email: email, Password: password}
	if err := in.Validate(f.validate); err != nil {
		return err
	}

	f.mu.Lock()
	if f.state == StateAuthenticated {
		f.mu.Unlock()
		return nil
	}
	// a fresh submission is an input change; a previous transport failure
	// no longer applies
	f.state = StateCredentialsEntry
	f.tempToken = ""
	gen := f.gen
	f.mu.Unlock()

	res, err := f.backend.Login(ctx, in.Email, in.Password)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return ErrFlowAbandoned
	}
	if err != nil {
		if isDenied(err) {
			return err // stay in CredentialsEntry for another try
		}
		f.state = StateFailed
		return err
	}

	if res.Requires2FA {
		f.state = StateTwoFactorPending
		f.tempToken = res.TempToken
		return nil
	}

	f.state = StateAuthenticated
	return errors.Wrap(f.store.SetCredentials(res.User, res.Token), "setting credentials")
}

// SubmitCode verifies the second factor. A rejected code keeps the flow in
// TwoFactorPending with the temp token retained for a retry.
func (f *Flow) SubmitCode(ctx context.Context, code string) error {
	in := CodeInput{Code: code}
	if err := in.Validate(f.validate); err != nil {
		return err
	}

	f.mu.Lock()
	if f.state != StateTwoFactorPending {
		f.mu.Unlock()
		return ErrNotPending
	}
	tempToken := f.tempToken
	gen := f.gen
	f.mu.Unlock()

	creds, err := f.backend.VerifyTwoFactor(ctx, tempToken, in.Code)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return ErrFlowAbandoned
	}
	if err != nil {
		if isDenied(err) {
			return err // remain pending; temp token stays valid for a retry
		}
		f.state = StateFailed
		f.tempToken = ""
		return err
	}

	f.state = StateAuthenticated
	f.tempToken = ""
	return errors.Wrap(f.store.SetCredentials(creds.User, creds.Token), "setting credentials")
}

// Cancel abandons a pending attempt: the temp token is discarded and any
// in-flight response for this attempt will be ignored. Cancelling an
// already authenticated flow does nothing.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateAuthenticated {
		return
	}
	f.gen++
	f.state = StateCredentialsEntry
	f.tempToken = ""
}

// InputChanged returns a Failed flow to CredentialsEntry; other states are
// unaffected.
func (f *Flow) InputChanged() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateFailed {
		f.state = StateCredentialsEntry
	}
}
