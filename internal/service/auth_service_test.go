package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spaceofthoughts/internal/auth"
	"spaceofthoughts/internal/featureflags"
	"spaceofthoughts/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(users *userRepoStub, revoker TokenRevoker, flags *featureflags.Manager) *AuthService {
	return NewAuthService(users, issuerStub{}, revoker, flags).WithHashCost(bcrypt.MinCost)
}

func storedUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		UserName:     "writer",
		Email:        "writer@example.com",
		PasswordHash: hash,
		Roles:        []models.Role{{ID: models.ReaderRoleID, Name: models.RoleReader}, {ID: models.WriterRoleID, Name: models.RoleWriter}},
	}
}

func TestAuthService_Login(t *testing.T) {
	user := storedUser(t, "s3cret!pw")
	users := &userRepoStub{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, models.NewNotFoundError("User", email)
		},
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		var gotRoles []string
		svc := NewAuthService(users, issuerStub{issueFn: func(identity auth.Identity, roles []string) (string, error) {
			assert.Equal(t, user.ID.String(), identity.ID)
			assert.Equal(t, user.Email, identity.Email)
			gotRoles = roles
			return "tok", nil
		}}, nil, nil)

		resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret!pw"})
		require.NoError(t, err)
		assert.Equal(t, "tok", resp.Token)
		assert.Equal(t, user.ID, resp.ID)
		assert.Equal(t, "writer", resp.UserName)
		assert.ElementsMatch(t, []string{models.RoleReader, models.RoleWriter}, resp.Roles)
		assert.ElementsMatch(t, resp.Roles, gotRoles)
	})

	t.Run("unknown email and wrong password look the same", func(t *testing.T) {
		svc := newTestAuthService(users, nil, nil)

		_, errUnknown := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "s3cret!pw"})
		_, errWrong := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "nope"})

		assertFields(t, errUnknown, map[string]string{"1": MsgInvalidCredentials})
		assertFields(t, errWrong, map[string]string{"1": MsgInvalidCredentials})
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := newTestAuthService(users, nil, nil)
		_, err := svc.Login(context.Background(), models.LoginRequest{})
		appErr := assertAppError(t, err, models.CodeValidation)
		assert.Contains(t, appErr.Fields, "email")
		assert.Contains(t, appErr.Fields, "password")
	})

	t.Run("repository failure is not masked", func(t *testing.T) {
		svc := newTestAuthService(&userRepoStub{
			getByEmailFn: func(context.Context, string) (*models.User, error) {
				return nil, models.NewInternalError(errors.New("db down"))
			},
		}, nil, nil)
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "x"})
		assertAppError(t, err, models.CodeInternal)
	})

	t.Run("issuer failure", func(t *testing.T) {
		svc := NewAuthService(users, issuerStub{issueFn: func(auth.Identity, []string) (string, error) {
			return "", errors.New("no key")
		}}, nil, nil)
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret!pw"})
		assertAppError(t, err, models.CodeInternal)
	})
}

func TestAuthService_Register(t *testing.T) {
	valid := models.RegisterRequest{UserName: "reader", Email: "reader@example.com", Password: "pa$$word"}

	t.Run("creates a reader", func(t *testing.T) {
		var created *models.User
		var roles []string
		svc := newTestAuthService(&userRepoStub{
			createFn: func(_ context.Context, user *models.User, r ...string) error {
				user.ID = uuid.New()
				user.Roles = []models.Role{{ID: models.ReaderRoleID, Name: models.RoleReader}}
				created, roles = user, r
				return nil
			},
		}, nil, nil)

		resp, err := svc.Register(context.Background(), models.RegisterRequest{
			UserName: "  reader ",
			Email:    " reader@example.com",
			Password: valid.Password,
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, []string{models.RoleReader}, roles)
		assert.Equal(t, "reader", created.UserName)
		assert.Equal(t, "reader@example.com", created.Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(valid.Password)))
		assert.Equal(t, []string{models.RoleReader}, resp.Roles)
	})

	tests := []struct {
		name string
		req  models.RegisterRequest
		repo *userRepoStub
		want map[string]string
	}{
		{
			name: "bad email format wins over everything",
			req:  models.RegisterRequest{UserName: "taken", Email: "not-an-email", Password: "a"},
			repo: &userRepoStub{
				existsByUserNameFn: func(context.Context, string) (bool, error) { return true, nil },
			},
			want: map[string]string{"emailFormat": MsgInvalidEmail},
		},
		{
			name: "email taken before user name",
			req:  valid,
			repo: &userRepoStub{
				existsByEmailFn:    func(context.Context, string) (bool, error) { return true, nil },
				existsByUserNameFn: func(context.Context, string) (bool, error) { return true, nil },
			},
			want: map[string]string{"email": MsgEmailTaken},
		},
		{
			name: "user name taken before password policy",
			req:  models.RegisterRequest{UserName: "reader", Email: "reader@example.com", Password: "a"},
			repo: &userRepoStub{
				existsByUserNameFn: func(context.Context, string) (bool, error) { return true, nil },
			},
			want: map[string]string{"userName": MsgUserNameTaken},
		},
		{
			name: "password failures are numbered",
			req:  models.RegisterRequest{UserName: "reader", Email: "reader@example.com", Password: "aaa"},
			repo: &userRepoStub{},
			want: map[string]string{
				"1": "Passwords must be at least 7 characters.",
				"2": "Passwords must have at least one non alphanumeric character.",
				"3": "Passwords must use at least 3 different characters.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.repo.createFn = func(context.Context, *models.User, ...string) error {
				t.Fatal("user must not be created")
				return nil
			}
			svc := newTestAuthService(tt.repo, nil, nil)
			_, err := svc.Register(context.Background(), tt.req)
			assertFields(t, err, tt.want)
		})
	}

	t.Run("required fields", func(t *testing.T) {
		svc := newTestAuthService(&userRepoStub{}, nil, nil)
		_, err := svc.Register(context.Background(), models.RegisterRequest{})
		appErr := assertAppError(t, err, models.CodeValidation)
		assert.Equal(t, "The userName field is required.", appErr.Fields["userName"])
	})

	t.Run("over-long user name", func(t *testing.T) {
		svc := newTestAuthService(&userRepoStub{}, nil, nil)
		req := valid
		req.UserName = strings.Repeat("u", 257)
		_, err := svc.Register(context.Background(), req)
		appErr := assertAppError(t, err, models.CodeValidation)
		assert.Contains(t, appErr.Fields, "userName")
	})

	t.Run("disabled by flag", func(t *testing.T) {
		svc := newTestAuthService(&userRepoStub{}, nil, featureflags.NewManager("registration=off"))
		_, err := svc.Register(context.Background(), valid)
		assertAppError(t, err, models.CodeForbidden)
	})

	t.Run("conflict on insert race", func(t *testing.T) {
		svc := newTestAuthService(&userRepoStub{
			createFn: func(context.Context, *models.User, ...string) error {
				return models.NewConflictError("User already exists", nil)
			},
		}, nil, nil)
		_, err := svc.Register(context.Background(), valid)
		assertAppError(t, err, models.CodeConflict)
	})
}

func TestAuthService_Logout(t *testing.T) {
	expires := time.Now().Add(10 * time.Minute)

	t.Run("revokes the token id", func(t *testing.T) {
		revoker := &revokerStub{}
		svc := newTestAuthService(&userRepoStub{}, revoker, nil)
		err := svc.Logout(context.Background(), &auth.Principal{ID: "u1", TokenID: "jti-1", ExpiresAt: expires})
		require.NoError(t, err)
		assert.True(t, revoker.revoked["jti-1"].Equal(expires))
	})

	t.Run("requires a principal", func(t *testing.T) {
		svc := newTestAuthService(&userRepoStub{}, &revokerStub{}, nil)
		assertAppError(t, svc.Logout(context.Background(), nil), models.CodeUnauthorized)
	})

	t.Run("store failure", func(t *testing.T) {
		svc := newTestAuthService(&userRepoStub{}, &revokerStub{err: errors.New("redis down")}, nil)
		err := svc.Logout(context.Background(), &auth.Principal{TokenID: "jti-2", ExpiresAt: expires})
		assertAppError(t, err, models.CodeInternal)
	})
}
