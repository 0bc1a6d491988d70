package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/auth"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/users"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

func newTokens(issuer *auth.Issuer, userID string) (*TokenPair, users.Tokens, error) {
	access, err := issuer.IssueAccess(userID)
	if err != nil {
		return nil, users.Tokens{}, errors.Join(common.ErrorInternal, err)
	}
	refresh, err := issuer.IssueRefresh(userID)
	if err != nil {
		return nil, users.Tokens{}, errors.Join(common.ErrorInternal, err)
	}
	pair := &TokenPair{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "bearer",
		ExpiresIn:    int64(issuer.AccessTTL().Seconds()),
	}
	return pair, users.Tokens{
		Access:           access.Value,
		Refresh:          refresh.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// generateTokenPair issues a pair for user and mirrors it on the record,
// replacing any previous session.
func generateTokenPair(ctx context.Context, issuer *auth.Issuer, store *users.Store, user *models.User) (*TokenPair, error) {
	pair, t, err := newTokens(issuer, user.ID)
	if err != nil {
		return nil, err
	}
	if _, err := store.SetTokens(ctx, user.ID, t); err != nil {
		return nil, err
	}
	return pair, nil
}
