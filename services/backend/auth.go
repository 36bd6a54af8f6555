package backend

import (
	"context"
	"net/http"

	"github.com/darasa-dev/portal/core/auth"
	"github.com/darasa-dev/portal/core/session"
)

var _ auth.Authenticator = (*Client)(nil)

type loginResponse struct {
	Requires2FA bool         `json:"requires2FA"`
	TempToken   string       `json:"tempToken"`
	User        session.User `json:"user"`
	Token       string       `json:"token"`
}

// Login checks an email+password pair. The backend either answers with
// full credentials, or with a temp token when a second factor is required.
func (c *Client) Login(ctx context.Context, email, password string) (auth.LoginResult, error) {
	in := map[string]string{"email": email, "password": password}
	var res loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &res); err != nil {
		return auth.LoginResult{}, err
	}
	return auth.LoginResult{
		Credentials: auth.Credentials{User: res.User, Token: res.Token},
		Requires2FA: res.Requires2FA,
		TempToken:   res.TempToken,
	}, nil
}

// VerifyTwoFactor exchanges the temp token plus a one-time code for full
// credentials.
func (c *Client) VerifyTwoFactor(ctx context.Context, tempToken, code string) (auth.Credentials, error) {
	in := map[string]string{"tempToken": tempToken, "code": code}
	var res loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login/verify-2fa", in, &res); err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{User: res.User, Token: res.Token}, nil
}

// TwoFactorSetup is the provisioning material for enrolling an
// authenticator app; the portal renders OTPAuthURL as a QR code.
type TwoFactorSetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

func (c *Client) SetupTwoFactor(ctx context.Context) (TwoFactorSetup, error) {
	var res TwoFactorSetup
	err := c.do(ctx, http.MethodPost, "/auth/2fa/setup", nil, &res)
	return res, err
}

// EnableTwoFactor confirms enrollment with a code from the app.
func (c *Client) EnableTwoFactor(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/auth/2fa/verify", map[string]string{"code": code}, nil)
}

func (c *Client) DisableTwoFactor(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/2fa/disable", nil, nil)
}

// StaffRegistration enrolls a new staff account; the backend assigns the
// ID and any defaults.
type StaffRegistration struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required"`
}

func (c *Client) RegisterStaff(ctx context.Context, reg StaffRegistration) error {
	return c.do(ctx, http.MethodPost, "/auth/register", reg, nil)
}

type profileResponse struct {
	User session.User `json:"user"`
}

func (c *Client) Profile(ctx context.Context) (session.User, error) {
	var res profileResponse
	err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &res)
	return res.User, err
}

type ProfileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (session.User, error) {
	var res profileResponse
	err := c.do(ctx, http.MethodPut, "/auth/profile", upd, &res)
	return res.User, err
}

func (c *Client) ChangePassword(ctx context.Context, current, updated string) error {
	in := map[string]string{"currentPassword": current, "newPassword": updated}
	return c.do(ctx, http.MethodPut, "/auth/change-password", in, nil)
}

// DeleteAccount removes the account after re-checking the password.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	return c.do(ctx, http.MethodDelete, "/auth/account", map[string]string{"password": password}, nil)
}
