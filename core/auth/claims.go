package auth

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core/session"
)

// Claims are the portal-relevant claims carried by a backend-issued token.
type Claims struct {
	jwt.StandardClaims
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	Email            string `json:"email,omitempty"`
	Role             string `json:"role,omitempty"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled,omitempty"`
}

// DecodeToken extracts the user from a backend-issued token without
// verifying its signature; the backend owns the signing key and re-checks
// every API call. Expired or malformed tokens are rejected so a stale
// persisted credential never rehydrates into an authenticated session.
func DecodeToken(token string) (session.User, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return session.User{}, errors.Wrap(err, "parsing token")
	}
	if err := claims.Valid(); err != nil {
		return session.User{}, errors.Wrap(err, "validating claims")
	}
	if claims.Subject == "" {
		return session.User{}, errors.New("token has no subject")
	}

	return session.User{
		ID:               claims.Subject,
		FirstName:        claims.FirstName,
		LastName:         claims.LastName,
		Email:            claims.Email,
		Role:             claims.Role,
		TwoFactorEnabled: claims.TwoFactorEnabled,
	}, nil
}
