package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ordermgr/internal/auth"
	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/model"
	"ordermgr/internal/repository"
)

// bcryptCost is a variable so tests can lower it.
var bcryptCost = bcrypt.DefaultCost

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, username, password string) (user *model.User, token string, claims *auth.Claims, err error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	users      UserService
	sessions   *auth.SessionService
	tokenStore auth.TokenStoreInterface
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, users UserService, sessions *auth.SessionService, tokenStore auth.TokenStoreInterface) AuthService {
	return &authService{
		userRepo:   userRepo,
		users:      users,
		sessions:   sessions,
		tokenStore: tokenStore,
	}
}

// Login verifies credentials and issues a session token. Unknown users, wrong passwords
// and inactive accounts all yield ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, username, password string) (*model.User, string, *auth.Claims, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil, apperrors.ErrInvalidCredentials
		}
		return nil, "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", nil, apperrors.ErrInvalidCredentials
	}

	token, claims, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", nil, fmt.Errorf("issue session: %w", err)
	}
	return user, token, claims, nil
}

// Logout revokes the session for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	return s.tokenStore.RevokeSession(ctx, claims.ID, auth.Remaining(claims))
}

// Register creates a regular, active account.
func (s *authService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	return s.users.CreateUser(ctx, NewUserInput{
		Username: username,
		Email:    email,
		Password: password,
	})
}

// Authenticate resolves the user behind a parsed session token.
func (s *authService) Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	revoked, err := s.tokenStore.IsSessionRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if revoked {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
