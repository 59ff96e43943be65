// Package users persists credential records.
package users

import (
	"context"

	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
)

// Repository is the credential store. Create returns common.ErrorAlreadyExists
// when the username is taken; GetUserByLogin returns common.ErrorNotFound for
// an unknown username.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
