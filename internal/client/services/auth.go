// Package services contains application services for the catalogkeeper
// client. This file defines the authentication service: login, register,
// logout and restoring a cached session at startup.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/client"
	"github.com/dmitrijs2005/catalogkeeper/internal/client/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/client/tokencache"
)

var (
	ErrInvalidCredentials = errors.New("Username or password is incorrect")
	ErrFieldsRequired     = errors.New("Username, password, and email are required")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrNotPermitted       = errors.New("not permitted")
)

// SessionStore is the part of tokencache.Cache the services need.
type SessionStore interface {
	Store(ctx context.Context, s tokencache.Session) error
	Load(ctx context.Context) error
	Clear(ctx context.Context) error
	Session() (tokencache.Session, bool)
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and cache the session.
//   - Register: create a new account (role User) on the server.
//   - Logout: forget the cached session.
//   - Verify: ask the server whose token is cached.
//   - Restore: load a still-valid session left by a previous run.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*tokencache.Session, error)
	Register(ctx context.Context, username, password, email string) error
	Logout(ctx context.Context) error
	Verify(ctx context.Context) (*models.Identity, error)
	Restore(ctx context.Context) error
	Current() (tokencache.Session, bool)
}

type authService struct {
	client client.Client
	cache  SessionStore
}

func NewAuthService(c client.Client, cache SessionStore) AuthService {
	return &authService{client: c, cache: cache}
}

// serverMessage returns the text the server attached to a 400, or fallback.
func serverMessage(err error, fallback string) string {
	prefix := client.ErrBadRequest.Error() + ": "
	if msg := err.Error(); strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return fallback
}

func (a *authService) Login(ctx context.Context, username, password string) (*tokencache.Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	res, err := a.client.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrBadRequest) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	s := tokencache.Session{
		Token:      res.Token,
		Expiration: time.Unix(res.Expiration, 0),
		Username:   res.Username,
		Role:       res.Role,
	}
	if err := a.cache.Store(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *authService) Register(ctx context.Context, username, password, email string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" || strings.TrimSpace(email) == "" {
		return ErrFieldsRequired
	}

	err := a.client.Register(ctx, username, password, email)
	if errors.Is(err, client.ErrBadRequest) {
		return errors.New(serverMessage(err, "registration failed"))
	}
	return err
}

func (a *authService) Logout(ctx context.Context) error {
	return a.cache.Clear(ctx)
}

// Verify drops the cached session when the server no longer accepts it.
func (a *authService) Verify(ctx context.Context) (*models.Identity, error) {
	if _, ok := a.cache.Session(); !ok {
		return nil, ErrNotLoggedIn
	}
	id, err := a.client.Verify(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		if cerr := a.cache.Clear(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, ErrNotLoggedIn
	}
	return id, err
}

func (a *authService) Restore(ctx context.Context) error {
	return a.cache.Load(ctx)
}

func (a *authService) Current() (tokencache.Session, bool) {
	return a.cache.Session()
}
