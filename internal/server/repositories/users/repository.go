// Package users stores registered identities with their salt and verifier.
package users

import (
	"context"

	"github.com/dmitrijs2005/srpauth/internal/server/models"
)

// Repository is implemented by the PostgreSQL and in-memory stores.
// Create returns common.ErrorAlreadyExists for a taken username and
// GetUserByLogin returns common.ErrorNotFound for an unknown one.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
