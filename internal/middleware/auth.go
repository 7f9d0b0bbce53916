package middleware

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"spaceofthoughts/internal/auth"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the cookie the web client keeps its "Bearer <token>" value in.
const SessionCookie = "Authorization"

const principalLocal = "principal"

type principalCtxKey struct{}

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator turns Access Guard decisions into HTTP responses.
type Authenticator struct {
	guard       *auth.Guard
	revocations RevocationChecker
	secure      bool
}

// NewAuthenticator returns an Authenticator. revocations may be nil.
func NewAuthenticator(guard *auth.Guard, revocations RevocationChecker, secureCookies bool) *Authenticator {
	return &Authenticator{guard: guard, revocations: revocations, secure: secureCookies}
}

// RequireRoles admits callers whose token carries at least one of roles.
// With no roles any authenticated caller is admitted.
func (a *Authenticator) RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, fromCookie := TokenFromRequest(c)

		decision := a.guard.Authorize(token, roles...)
		if decision.Allowed() && a.revoked(c.UserContext(), decision.Principal().TokenID) {
			decision = auth.Deny(auth.ReasonRevoked)
		}

		if !decision.Allowed() {
			reason := decision.Reason()
			observability.AuthDecisions.WithLabelValues(string(reason)).Inc()

			// A dead session must not linger on the client.
			if reason == auth.ReasonExpired || reason == auth.ReasonRevoked ||
				(reason == auth.ReasonMissingToken && fromCookie) {
				a.ClearSession(c)
			}

			Logger.InfoContext(c.UserContext(), "access denied",
				slog.String("reason", string(reason)),
				slog.String("path", c.Path()),
			)

			if reason == auth.ReasonInsufficientRole {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError(reason.Message()))
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(reason.Message()))
		}

		observability.AuthDecisions.WithLabelValues("allow").Inc()
		p := decision.Principal()
		c.Locals(principalLocal, p)
		ctx := context.WithValue(c.UserContext(), principalCtxKey{}, p)
		ctx = context.WithValue(ctx, UserIDKey, p.ID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

func (a *Authenticator) revoked(ctx context.Context, tokenID string) bool {
	if a.revocations == nil || tokenID == "" {
		return false
	}
	revoked, err := a.revocations.IsRevoked(ctx, tokenID)
	if err != nil {
		// Revocation store outage: fail open like the rate limiter.
		Logger.WarnContext(ctx, "revocation check failed", slog.String("error", err.Error()))
		return false
	}
	return revoked
}

// SetSession stores token in the session cookie until expiresAt.
func (a *Authenticator) SetSession(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    url.PathEscape("Bearer " + token),
		Path:     "/",
		Expires:  expiresAt,
		Secure:   a.secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// ClearSession expires the session cookie.
func (a *Authenticator) ClearSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   a.secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// TokenFromRequest returns the bearer token from the Authorization header, or
// from the session cookie when no header is sent. fromCookie reports that a
// session cookie was present.
func TokenFromRequest(c *fiber.Ctx) (token string, fromCookie bool) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		return bearer(header), false
	}
	raw := c.Cookies(SessionCookie)
	if raw == "" {
		return "", false
	}
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	return bearer(raw), true
}

func bearer(value string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// PrincipalFrom returns the caller admitted by RequireRoles, or nil.
func PrincipalFrom(c *fiber.Ctx) *auth.Principal {
	p, _ := c.Locals(principalLocal).(*auth.Principal)
	return p
}

// PrincipalFromContext returns the caller stored in ctx, or nil.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*auth.Principal)
	return p
}
