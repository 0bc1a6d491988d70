package otp

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	t0 = "2025-01-01T10:00:00.000000"
	t1 = "2025-01-01T10:05:00.000000"
	t2 = "2025-01-01T10:10:00.000000"
	t3 = "2025-01-01T10:15:00.000000"
)

func code(id, email, value string, typ models.OTPType, expires string) *models.OTP {
	return &models.OTP{ID: id, Email: email, Code: value, Type: typ, ExpiresAt: expires, CreatedAt: t0}
}

func TestMemoryRepository_FindAndConsume(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.Create(ctx, code("1", "a@x.com", "123456", models.OTPLogin, t2)))

	_, err := r.FindActive(ctx, "a@x.com", "000000", models.OTPLogin, t1)
	assert.ErrorIs(t, err, common.ErrorNotFound, "wrong code")
	_, err = r.FindActive(ctx, "a@x.com", "123456", models.OTPRegistration, t1)
	assert.ErrorIs(t, err, common.ErrorNotFound, "wrong type")
	_, err = r.FindActive(ctx, "a@x.com", "123456", models.OTPLogin, t3)
	assert.ErrorIs(t, err, common.ErrorNotFound, "expired")

	c, err := r.FindActive(ctx, "a@x.com", "123456", models.OTPLogin, t1)
	require.NoError(t, err)
	require.NoError(t, r.MarkUsed(ctx, c.ID, t1))

	assert.ErrorIs(t, r.MarkUsed(ctx, c.ID, t1), common.ErrorNotFound, "second consume")
	_, err = r.FindActive(ctx, "a@x.com", "123456", models.OTPLogin, t1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_MarkUsedAfterExpiry(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.Create(ctx, code("1", "a@x.com", "123456", models.OTPLogin, t1)))
	assert.ErrorIs(t, r.MarkUsed(ctx, "1", t2), common.ErrorNotFound)
}

func TestMemoryRepository_DeleteByEmailAndType(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.Create(ctx, code("1", "a@x.com", "111111", models.OTPLogin, t2)))
	require.NoError(t, r.Create(ctx, code("2", "a@x.com", "222222", models.OTPRegistration, t2)))
	require.NoError(t, r.Create(ctx, code("3", "b@x.com", "333333", models.OTPLogin, t2)))
	assert.ErrorIs(t, r.Create(ctx, code("3", "c@x.com", "444444", models.OTPLogin, t2)), common.ErrorConflict)

	n, err := r.DeleteByEmailAndType(ctx, "a@x.com", models.OTPLogin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := r.ListByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, models.OTPRegistration, left[0].Type)
}

func TestMemoryRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.Create(ctx, code("1", "a@x.com", "111111", models.OTPLogin, t1)))
	require.NoError(t, r.Create(ctx, code("2", "b@x.com", "222222", models.OTPLogin, t3)))
	used := code("3", "c@x.com", "333333", models.OTPLogin, t1)
	used.Used = true
	require.NoError(t, r.Create(ctx, used))

	n, err := r.DeleteExpired(ctx, t2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, _ := r.ListByEmail(ctx, "b@x.com")
	assert.Len(t, left, 1)
}
