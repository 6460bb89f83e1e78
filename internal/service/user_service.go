package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"ordermgr/internal/cache"
	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/model"
	"ordermgr/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// NewUserInput describes an account to provision.
type NewUserInput struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

// UserService exposes account management operations.
type UserService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	CreateUser(ctx context.Context, in NewUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, actor *model.User, id uint) error
	AdminDeleteUser(ctx context.Context, actor *model.User, id uint) error
	ToggleAdmin(ctx context.Context, actor *model.User, id uint) (*model.User, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser looks a user up by id, reading through the cache. The returned user never
// carries the password hash.
func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached cachedUser
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached.toModel(), nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	user.PasswordHash = ""
	if payload, err := json.Marshal(newCachedUser(user)); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

// CreateUser hashes the password and stores a new active account, rejecting duplicate
// usernames and emails.
func (s *userService) CreateUser(ctx context.Context, in NewUserInput) (*model.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      in.IsAdmin,
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		if _, err := repo.FindByUsername(ctx, user.Username); err == nil {
			return apperrors.ErrUsernameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check username: %w", err)
		}

		if _, err := repo.FindByEmail(ctx, user.Email); err == nil {
			return apperrors.ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check email: %w", err)
		}

		if err := repo.Create(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrUsernameTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser is the self-service deletion: anyone may delete their own account, only
// admins may delete someone else's.
func (s *userService) DeleteUser(ctx context.Context, actor *model.User, id uint) error {
	if id == 0 {
		return apperrors.ErrMissingUserID
	}
	return s.deleteUser(ctx, id, func(target *model.User) error {
		if actor.ID != target.ID && !actor.IsAdmin {
			return apperrors.ErrForbidden
		}
		return nil
	})
}

// AdminDeleteUser deletes another user's account.
func (s *userService) AdminDeleteUser(ctx context.Context, actor *model.User, id uint) error {
	return s.deleteUser(ctx, id, func(target *model.User) error {
		if actor.ID == target.ID {
			return apperrors.ErrSelfModification
		}
		return nil
	})
}

func (s *userService) deleteUser(ctx context.Context, id uint, allow func(target *model.User) error) error {
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		target, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}
		if err := allow(target); err != nil {
			return err
		}
		if err := repo.Delete(ctx, target.ID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

// ToggleAdmin flips the admin flag of another user.
func (s *userService) ToggleAdmin(ctx context.Context, actor *model.User, id uint) (*model.User, error) {
	if actor.ID == id {
		return nil, apperrors.ErrSelfModification
	}

	var updated *model.User
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		target, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}
		target.IsAdmin = !target.IsAdmin
		if err := repo.Update(ctx, target); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return updated, nil
}

// cachedUser is the cached form of model.User, without credentials.
type cachedUser struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func newCachedUser(u *model.User) cachedUser {
	return cachedUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func (c cachedUser) toModel() *model.User {
	return &model.User{
		ID:        c.ID,
		Username:  c.Username,
		Email:     c.Email,
		IsActive:  c.IsActive,
		IsAdmin:   c.IsAdmin,
		CreatedAt: c.CreatedAt,
	}
}
