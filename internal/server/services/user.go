// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and seeding of the admin
// account.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/cryptox"
	"github.com/dmitrijs2005/catalogkeeper/internal/logging"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/repomanager"
)

// AuthResult is what a successful login hands back to the caller.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Username  string
	Role      models.Role
}

// UserService provides authentication-related operations:
// - Register: create users with the User role
// - Login: verify credentials and mint a token
// - EnsureAdmin: seed the configured admin account
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenManager
	logger      logging.Logger
}

// NewUserService constructs a UserService. The token manager is the
// process-wide issuer shared with the HTTP layer's validator.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenManager, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		logger:      logger.With("service", "users"),
	}
}

// Register stores a new credential record with role User. All fields are
// required; a taken username yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	if isBlank(username) || isBlank(password) || isBlank(email) {
		return nil, fmt.Errorf("%w: username, password, and email are required", common.ErrorValidation)
	}
	return s.create(ctx, username, password, email, models.RoleUser)
}

// Login verifies the password and issues a token. Unknown user and wrong
// password both return common.ErrorUnauthorized and cost the same argon2 work.
func (s *UserService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "user lookup failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	hash := cryptox.DummyHash()
	if user != nil {
		hash = user.PasswordHash
	}

	ok, verr := cryptox.VerifyPassword(password, hash)
	if verr != nil {
		s.logger.Error(ctx, "stored password hash unreadable", "username", username, "error", verr)
		return nil, common.ErrorInternal
	}
	if user == nil || !ok {
		s.logger.Info(ctx, "login rejected", "username", username)
		return nil, common.ErrorUnauthorized
	}

	token, claims, err := s.tokens.Issue(user.ID, user.UserName, user.Role)
	if err != nil {
		s.logger.Error(ctx, "token signing failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "login succeeded", "username", user.UserName, "role", user.Role)
	return &AuthResult{
		Token:     token,
		ExpiresAt: claims.Expiration(),
		Username:  user.UserName,
		Role:      user.Role,
	}, nil
}

// EnsureAdmin creates the admin account unless a user with that name
// already exists. An empty username disables seeding.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password, email string) error {
	if username == "" {
		return nil
	}

	_, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("admin lookup: %w", err)
	}

	if email == "" {
		email = username + "@localhost"
	}
	if _, err := s.create(ctx, username, password, email, models.RoleAdmin); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil
		}
		return fmt.Errorf("admin seed: %w", err)
	}

	s.logger.Info(ctx, "admin account seeded", "username", username)
	return nil
}

func (s *UserService) create(ctx context.Context, username, password, email string, role models.Role) (*models.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:     username,
		PasswordHash: hash,
		Email:        strings.TrimSpace(email),
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "user insert failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}
	return u, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
