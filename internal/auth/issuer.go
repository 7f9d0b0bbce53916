// Package auth issues and validates the HS256 access tokens used by the API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenLifetime is how long an issued access token stays valid.
// There is no refresh token; clients re-authenticate after expiry.
const TokenLifetime = 15 * time.Minute

// Settings are the shared token parameters. All three fields are required.
type Settings struct {
	Secret   string
	Issuer   string
	Audience string
}

// Validate reports a missing signing key, issuer or audience.
func (s Settings) Validate() error {
	switch {
	case s.Secret == "":
		return errors.New("jwt signing key is not configured")
	case s.Issuer == "":
		return errors.New("jwt issuer is not configured")
	case s.Audience == "":
		return errors.New("jwt audience is not configured")
	}
	return nil
}

// Claims is the claim set carried by an access token.
type Claims struct {
	Email string           `json:"email,omitempty"`
	Roles jwt.ClaimStrings `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the subject a token is issued for.
type Identity struct {
	ID    string
	Email string
}

// Issuer signs access tokens.
type Issuer struct {
	settings Settings
	now      func() time.Time
	newID    func() string
}

// NewIssuer returns an Issuer, or an error when the settings are incomplete.
func NewIssuer(settings Settings) (*Issuer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{
		settings: settings,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// WithClock overrides the time source. Intended for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a token for identity holding the given roles. The email claim is
// omitted when the identity has no email.
func (i *Issuer) Issue(identity Identity, roles []string) (string, error) {
	issuedAt := i.now().UTC()
	// exp is stored in whole seconds; round up so the token lives the full lifetime.
	expiresAt := issuedAt.Add(TokenLifetime)
	if whole := expiresAt.Truncate(jwt.TimePrecision); !whole.Equal(expiresAt) {
		expiresAt = whole.Add(jwt.TimePrecision)
	}

	claims := Claims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    i.settings.Issuer,
			Audience:  jwt.ClaimStrings{i.settings.Audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        i.newID(),
		},
	}
	if len(roles) > 0 {
		claims.Roles = append(jwt.ClaimStrings(nil), roles...)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.settings.Secret))
}
