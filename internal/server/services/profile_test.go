package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/auth"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.registered(t, "a@x.com", "alice")
	f.registered(t, "b@x.com", "bob")

	first := "Alice"
	u, err := f.profile.Update(ctx, alice, ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.FirstName)

	same, err := f.profile.Update(ctx, u, ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, u, same)

	_, err = f.profile.Rename(ctx, alice, "bob")
	assert.ErrorIs(t, err, common.ErrorConflict)
	_, err = f.profile.Rename(ctx, alice, "  ")
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)

	u, err = f.profile.Rename(ctx, alice, "alicia")
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Name)
}

func TestProfile_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, alice := f.registered(t, "a@x.com", "alice")

	assert.ErrorIs(t, f.profile.ChangePassword(ctx, alice, "short"), common.ErrorInvalidArgument)
	require.NoError(t, f.profile.ChangePassword(ctx, alice, "new-password-1"))

	stored, err := f.store.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.HashedPassword, "new-password-1"))
	assert.ErrorIs(t, f.auth.Login(ctx, "a@x.com", "pw12345678"), common.ErrorUnauthorized)

	google := &models.User{ID: alice.ID, AuthProvider: models.AuthProviderGoogle}
	assert.ErrorIs(t, f.profile.ChangePassword(ctx, google, "new-password-2"), common.ErrorInvalidArgument)
}

func TestProfile_ActivateDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair, alice := f.registered(t, "a@x.com", "alice")

	u, err := f.profile.SetActive(ctx, alice, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	_, err = f.guard.RequireUser(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = f.profile.SetActive(ctx, alice, true)
	require.NoError(t, err)
	_, err = f.guard.RequireUser(ctx, pair.AccessToken)
	assert.NoError(t, err)
}

func TestProfile_StatsAndSessions(t *testing.T) {
	f := newFixture(t)
	f.profile.now = func() time.Time { return time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC) }
	u := &models.User{
		ID:             "u1",
		Email:          "a@x.com",
		HashedPassword: "hash",
		AuthProvider:   models.AuthProviderLocal,
		Role:           models.RoleProUser,
		IsVerified:     true,
		AccessToken:    "a",
		RefreshToken:   "r",
		CreatedAt:      "2025-01-01T00:00:00.000000",
		UpdatedAt:      "2025-01-10T00:00:00.000000",
	}

	st := f.profile.Stats(u)
	assert.Equal(t, 10, st.AccountStats.AccountAgeDays)
	assert.True(t, st.SecurityInfo.HasPassword)
	assert.False(t, st.SecurityInfo.IsGoogleUser)
	assert.True(t, st.SecurityInfo.HasActiveTokens)
	assert.Equal(t, models.RoleProUser, st.UserInfo.Role)

	s := f.profile.Sessions(u)
	assert.Equal(t, 1, s.Total)
	assert.True(t, s.Current.Active)
	assert.Equal(t, u.UpdatedAt, s.Current.LastLogin)

	u.AccessToken = ""
	assert.Equal(t, 0, f.profile.Sessions(u).Total)
}
