package users

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *MemoryRepository, id, email, name string, role models.Role) {
	t.Helper()
	_, err := r.Create(context.Background(), &models.User{ID: id, Email: email, Name: name, Role: role, CreatedAt: id})
	require.NoError(t, err)
}

func TestMemoryRepository_CreateAndLookups(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	seed(t, r, "1", "a@x.com", "alice", models.RoleUser)

	u, err := r.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)

	u, err = r.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)

	u, err = r.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)

	_, err = r.GetByEmail(ctx, "A@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound, "email lookup is case-sensitive")

	_, err = r.GetByID(ctx, "2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_CreateConflicts(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	seed(t, r, "1", "a@x.com", "alice", models.RoleUser)

	_, err := r.Create(ctx, &models.User{ID: "2", Email: "a@x.com", Name: "other"})
	assert.ErrorIs(t, err, common.ErrorConflict)
	_, err = r.Create(ctx, &models.User{ID: "3", Email: "b@x.com", Name: "alice"})
	assert.ErrorIs(t, err, common.ErrorConflict)
	_, err = r.Create(ctx, &models.User{ID: "1", Email: "c@x.com", Name: "carol"})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestMemoryRepository_UpdateAndRefreshLookup(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	seed(t, r, "1", "a@x.com", "alice", models.RoleUser)

	tok := "refresh-1"
	u, err := r.Update(ctx, "1", models.UserUpdate{RefreshToken: &tok})
	require.NoError(t, err)
	assert.Equal(t, tok, u.RefreshToken)

	u, err = r.GetByRefreshToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)

	_, err = r.GetByRefreshToken(ctx, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.Update(ctx, "missing", models.UserUpdate{RefreshToken: &tok})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	seed(t, r, "1", "a@x.com", "alice", models.RoleUser)

	u, _ := r.GetByID(ctx, "1")
	u.Name = "mallory"

	again, _ := r.GetByID(ctx, "1")
	assert.Equal(t, "alice", again.Name)
}

func TestMemoryRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	seed(t, r, "1", "a@x.com", "alice", models.RoleUser)
	seed(t, r, "2", "b@x.com", "bob", models.RoleAdmin)
	seed(t, r, "3", "c@x.com", "carol", models.RoleUser)

	all, err := r.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "1", all[0].ID)

	admins, err := r.List(ctx, models.RoleAdmin, 0)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "bob", admins[0].Name)

	limited, err := r.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
