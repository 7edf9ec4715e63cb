package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/chatdesk-admin/internal/auth"
	"github.com/spec-kit/chatdesk-admin/internal/domain"
	"github.com/spec-kit/chatdesk-admin/internal/repository"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

// LoginResult is returned by a successful Authenticate.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// AuthService authenticates operators and authorizes their tokens.
type AuthService struct {
	accounts repository.Collection[domain.Account]
	hasher   *auth.PasswordHasher
	tokenMgr *auth.TokenManager
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Accounts repository.Collection[domain.Account]
	Hasher   *auth.PasswordHasher
	Tokens   *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts: deps.Accounts,
		hasher:   deps.Hasher,
		tokenMgr: deps.Tokens,
	}
}

// Authenticate looks the account up by username or email and issues a token.
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperrors.NewInvalidCredentials()
	}

	filter := repository.Filter{}.Or(
		repository.Eq(repository.FieldUsername, login),
		repository.Eq(repository.FieldEmail, login),
	)
	account, err := s.accounts.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if !s.hasher.ComparePassword(account.PasswordHash, password) {
		return nil, apperrors.NewInvalidCredentials()
	}
	if !account.Active {
		return nil, apperrors.NewAccountDisabled()
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Username, account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Account: account}, nil
}

// Authorize verifies the token and, when roles are given, that the caller
// holds one of them. Claims are trusted until the token expires.
func (s *AuthService) Authorize(_ context.Context, token string, roles ...domain.Role) (*auth.Claims, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}
	if !claims.HasRole(roles...) {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	return claims, nil
}

// Me returns the identity carried by the caller's token.
func (s *AuthService) Me(claims *auth.Claims) (*Identity, error) {
	if claims == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	return &Identity{
		ID:       claims.SubjectID(),
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}, nil
}

// Identity is the caller as seen through their token.
type Identity struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
}
