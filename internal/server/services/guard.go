package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/auth"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
)

// UserFinder loads users by id.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Guard resolves bearer tokens to users. The user is read from storage on
// every call, so role and activation changes apply to the next request.
type Guard struct {
	issuer *auth.Issuer
	users  UserFinder
}

var errAccountDeactivated = fmt.Errorf("%w: account is deactivated", common.ErrorForbidden)

func NewGuard(issuer *auth.Issuer, users UserFinder) *Guard {
	return &Guard{issuer: issuer, users: users}
}

// Authenticate verifies an access token and loads its user without checking
// the account state. Routes go through RequireUser or RequireRole.
func (g *Guard) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}
	userID, err := g.issuer.Verify(token, auth.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	user, err := g.users.GetByID(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: user not found", common.ErrorUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequireUser is Authenticate plus a Forbidden for deactivated accounts.
func (g *Guard) RequireUser(ctx context.Context, token string) (*models.User, error) {
	user, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errAccountDeactivated
	}
	return user, nil
}

// RequireRole is RequireUser plus a Forbidden when the user's role ranks
// below min.
func (g *Guard) RequireRole(ctx context.Context, token string, min models.Role) (*models.User, error) {
	user, err := g.RequireUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if !user.Role.AtLeast(min) {
		return nil, fmt.Errorf("%w: %s role required", common.ErrorForbidden, min)
	}
	return user, nil
}
