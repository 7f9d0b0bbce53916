package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Reason explains why a token was denied.
type Reason string

// Denial reasons. Signature, expiry, issuer, audience and role failures are
// reported in that order; the first failing check wins.
const (
	ReasonMissingToken     Reason = "MissingToken"
	ReasonMalformed        Reason = "Malformed"
	ReasonInvalidSignature Reason = "InvalidSignature"
	ReasonExpired          Reason = "Expired"
	ReasonWrongIssuer      Reason = "WrongIssuer"
	ReasonWrongAudience    Reason = "WrongAudience"
	ReasonInsufficientRole Reason = "InsufficientRole"
	ReasonRevoked          Reason = "Revoked"
)

// Message is a client-facing description of the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonMissingToken:
		return "Authorization required"
	case ReasonMalformed:
		return "Malformed token"
	case ReasonInvalidSignature:
		return "Invalid token signature"
	case ReasonExpired:
		return "Token has expired"
	case ReasonWrongIssuer:
		return "Invalid token issuer"
	case ReasonWrongAudience:
		return "Invalid token audience"
	case ReasonInsufficientRole:
		return "Insufficient role for this operation"
	case ReasonRevoked:
		return "Token has been revoked"
	}
	return "Unauthorized"
}

// Principal is the authenticated caller for a single request.
type Principal struct {
	ID        string
	Email     string
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// Decision is the outcome of Authorize: either Allow with a principal or Deny
// with a reason. Principal is only set on Allow.
type Decision struct {
	allowed   bool
	reason    Reason
	principal *Principal
}

// Allow builds a permitting decision.
func Allow(p *Principal) Decision { return Decision{allowed: true, principal: p} }

// Deny builds a denying decision.
func Deny(r Reason) Decision { return Decision{reason: r} }

func (d Decision) Allowed() bool         { return d.allowed }
func (d Decision) Reason() Reason        { return d.reason }
func (d Decision) Principal() *Principal { return d.principal }

// Guard validates access tokens produced by Issuer.
type Guard struct {
	settings Settings
	parser   *jwt.Parser
	now      func() time.Time
}

// NewGuard returns a Guard, or an error when the settings are incomplete.
func NewGuard(settings Settings) (*Guard, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Guard{
		settings: settings,
		// Claims are checked by hand below so every failure maps to its own reason.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		now: time.Now,
	}, nil
}

// WithClock overrides the time source. Intended for tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Authorize validates tokenString and checks it against requiredRoles. With no
// required roles any authenticated token is allowed; otherwise the token must
// carry at least one of them.
func (g *Guard) Authorize(tokenString string, requiredRoles ...string) Decision {
	if tokenString == "" {
		return Deny(ReasonMissingToken)
	}

	var claims Claims
	_, err := g.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(g.settings.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Deny(ReasonInvalidSignature)
		}
		return Deny(ReasonMalformed)
	}

	if claims.ExpiresAt == nil || !g.now().Before(claims.ExpiresAt.Time) {
		return Deny(ReasonExpired)
	}
	if claims.Issuer != g.settings.Issuer {
		return Deny(ReasonWrongIssuer)
	}
	if !slices.Contains(claims.Audience, g.settings.Audience) {
		return Deny(ReasonWrongAudience)
	}

	roles := []string(claims.Roles)
	if len(requiredRoles) > 0 && !slices.ContainsFunc(requiredRoles, func(r string) bool {
		return slices.Contains(roles, r)
	}) {
		return Deny(ReasonInsufficientRole)
	}

	return Allow(&Principal{
		ID:        claims.Subject,
		Email:     claims.Email,
		Roles:     roles,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}
