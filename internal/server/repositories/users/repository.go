// Package users persists user records.
package users

import (
	"context"

	"github.com/dmitrijs2005/liberandum/internal/server/models"
)

// Repository stores users. Lookups return common.ErrorNotFound when no user
// matches; Create returns common.ErrorConflict when the id is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByName(ctx context.Context, name string) (*models.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	// List returns up to limit users (0 means all), optionally of one role.
	List(ctx context.Context, role models.Role, limit int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
}
