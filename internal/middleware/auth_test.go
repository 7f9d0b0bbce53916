package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spaceofthoughts/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSettings = auth.Settings{
	Secret:   "test-secret-key-12345678901234567890123456789012",
	Issuer:   "https://localhost:8080",
	Audience: "https://localhost:8080",
}

type revocationStub struct {
	revoked map[string]bool
	err     error
}

func (s *revocationStub) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], s.err
}

func newTestAuth(t *testing.T, rev RevocationChecker) (*Authenticator, *auth.Issuer) {
	t.Helper()
	issuer, err := auth.NewIssuer(testSettings)
	require.NoError(t, err)
	guard, err := auth.NewGuard(testSettings)
	require.NoError(t, err)
	return NewAuthenticator(guard, rev, false), issuer
}

func protectedApp(a *Authenticator, roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/test", a.RequireRoles(roles...), func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		fromCtx := PrincipalFromContext(c.UserContext())
		return c.JSON(fiber.Map{
			"id":      p.ID,
			"email":   p.Email,
			"roles":   p.Roles,
			"sameCtx": fromCtx == p,
		})
	})
	return app
}

func sessionCleared(resp *http.Response) bool {
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie && ck.Value == "" {
			return true
		}
	}
	return false
}

func TestRequireRoles(t *testing.T) {
	a, issuer := newTestAuth(t, nil)

	writer, err := issuer.Issue(auth.Identity{ID: "w-1", Email: "writer@x.com"}, []string{"Reader", "Writer"})
	require.NoError(t, err)
	reader, err := issuer.Issue(auth.Identity{ID: "r-1", Email: "reader@x.com"}, []string{"Reader"})
	require.NoError(t, err)
	expired, err := issuer.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).
		Issue(auth.Identity{ID: "w-1"}, []string{"Writer"})
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		cookie         string
		expectedStatus int
		expectCleared  bool
	}{
		{"writer via header", "Bearer " + writer, "", http.StatusOK, false},
		{"writer via cookie", "", url.PathEscape("Bearer " + writer), http.StatusOK, false},
		{"reader is forbidden", "Bearer " + reader, "", http.StatusForbidden, false},
		{"missing token", "", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", http.StatusUnauthorized, false},
		{"malformed token", "Bearer malformed.token.here", "", http.StatusUnauthorized, false},
		{"expired token clears session", "Bearer " + expired, "", http.StatusUnauthorized, true},
		{"stale cookie without token clears session", "", "garbage", http.StatusUnauthorized, true},
	}

	app := protectedApp(a, "Writer")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, tt.expectCleared, sessionCleared(resp))

			if tt.expectedStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "w-1", body["id"])
				assert.Equal(t, "writer@x.com", body["email"])
				assert.Equal(t, true, body["sameCtx"])
			}
		})
	}
}

func TestRequireRoles_AnyAuthenticated(t *testing.T) {
	a, issuer := newTestAuth(t, nil)
	token, err := issuer.Issue(auth.Identity{ID: "u"}, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := protectedApp(a).Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireRoles_Revoked(t *testing.T) {
	stub := &revocationStub{revoked: map[string]bool{}}
	a, issuer := newTestAuth(t, stub)

	token, err := issuer.Issue(auth.Identity{ID: "u"}, []string{"Writer"})
	require.NoError(t, err)
	guard, err := auth.NewGuard(testSettings)
	require.NoError(t, err)
	stub.revoked[guard.Authorize(token).Principal().TokenID] = true

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := protectedApp(a, "Writer").Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.True(t, sessionCleared(resp))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Token has been revoked", body["error"])
}

func TestRequireRoles_RevocationStoreDownFailsOpen(t *testing.T) {
	a, issuer := newTestAuth(t, &revocationStub{err: errors.New("redis down")})
	token, err := issuer.Issue(auth.Identity{ID: "u"}, []string{"Writer"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := protectedApp(a, "Writer").Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetSession_RoundTripsThroughCookie(t *testing.T) {
	a, issuer := newTestAuth(t, nil)
	token, err := issuer.Issue(auth.Identity{ID: "u"}, []string{"Writer"})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/login", func(c *fiber.Ctx) error {
		a.SetSession(c, token, time.Now().Add(auth.TokenLifetime))
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)

	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, strings.HasPrefix(session.Value, "Bearer%20"))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session.Value})
	resp, err = protectedApp(a, "Writer").Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
