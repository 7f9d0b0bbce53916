package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"spaceofthoughts/internal/auth"
	"spaceofthoughts/internal/featureflags"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/repository"
	"spaceofthoughts/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// Credential error messages returned to clients.
const (
	MsgInvalidCredentials = "Email or Password is incorrect"
	MsgInvalidEmail       = "Invalid email format"
	MsgEmailTaken         = "Email is already taken"
	MsgUserNameTaken      = "Username is already taken"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(identity auth.Identity, roles []string) (string, error)
}

// TokenRevoker blacklists a token id until it expires.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type AuthService struct {
	users   repository.UserRepository
	issuer  TokenIssuer
	revoker TokenRevoker
	flags   *featureflags.Manager
	cost    int
}

func NewAuthService(
	users repository.UserRepository,
	issuer TokenIssuer,
	revoker TokenRevoker,
	flags *featureflags.Manager,
) *AuthService {
	return &AuthService{
		users:   users,
		issuer:  issuer,
		revoker: revoker,
		flags:   flags,
		cost:    bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func invalidCredentials() error {
	return models.NewFieldValidationError(map[string]string{"1": MsgInvalidCredentials})
}

// Login checks the credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if problems := validation.Struct(&req); len(problems) > 0 {
		return nil, models.NewFieldValidationError(problems)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, invalidCredentials()
		}
		return nil, models.NewInternalError(err)
	}

	roles := user.RoleNames()
	token, err := s.issuer.Issue(auth.Identity{ID: user.ID.String(), Email: user.Email}, roles)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &models.LoginResponse{
		ID:       user.ID,
		UserName: user.UserName,
		Email:    user.Email,
		Roles:    roles,
		Token:    token,
	}, nil
}

// Register creates a Reader account. Checks run in order and the first
// failure is returned: email format, email taken, user name taken, password policy.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserResponse, error) {
	if !s.flags.Enabled(featureflags.Registration, "") {
		return nil, models.NewForbiddenError("Registration is disabled")
	}

	req.UserName = strings.TrimSpace(req.UserName)
	req.Email = strings.TrimSpace(req.Email)
	if problems := validation.Struct(&req); len(problems) > 0 {
		return nil, models.NewFieldValidationError(problems)
	}

	if !validation.Email(req.Email) {
		return nil, models.NewFieldValidationError(map[string]string{"emailFormat": MsgInvalidEmail})
	}

	taken, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewFieldValidationError(map[string]string{"email": MsgEmailTaken})
	}

	taken, err = s.users.ExistsByUserName(ctx, req.UserName)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewFieldValidationError(map[string]string{"userName": MsgUserNameTaken})
	}

	if failures := validation.Password(req.Password); len(failures) > 0 {
		return nil, models.NewFieldValidationError(validation.Numbered(failures))
	}

	hash, err := HashPassword(req.Password, s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		UserName:     req.UserName,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user, models.RoleReader); err != nil {
		return nil, err
	}

	resp := user.ToResponse()
	return &resp, nil
}

// Logout revokes the caller's token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, p *auth.Principal) error {
	if p == nil {
		return models.NewUnauthorizedError("Authorization required")
	}
	if s.revoker == nil || p.TokenID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
