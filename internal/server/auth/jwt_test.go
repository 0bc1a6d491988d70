package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	i := NewIssuer("super-secret", time.Hour)
	tok, err := i.IssueAccess("user-123")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	sub, err := i.Verify(tok.Value, TokenAccess)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if sub != "user-123" {
		t.Fatalf("subject mismatch: got %q want %q", sub, "user-123")
	}
}

func TestVerify_TypeMismatch(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", time.Hour)
	access, err := i.IssueAccess("u1")
	require.NoError(t, err)
	refresh, err := i.IssueRefresh("u1")
	require.NoError(t, err)

	_, err = i.Verify(access.Value, TokenRefresh)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = i.Verify(refresh.Value, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	sub, err := i.Verify(refresh.Value, TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", time.Minute)
	tok, err := i.IssueAccessTTL("u1", -time.Second)
	require.NoError(t, err)

	_, err = i.Verify(tok.Value, TokenAccess)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_ClockControlsExpiry(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	i := NewIssuer("secret", 30*time.Minute)
	i.now = func() time.Time { return start }

	tok, err := i.IssueAccess("u1")
	require.NoError(t, err)
	assert.Equal(t, start.Add(30*time.Minute), tok.ExpiresAt)

	i.now = func() time.Time { return start.Add(29 * time.Minute) }
	_, err = i.Verify(tok.Value, TokenAccess)
	assert.NoError(t, err)

	i.now = func() time.Time { return start.Add(31 * time.Minute) }
	_, err = i.Verify(tok.Value, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssueRefresh_ThirtyDays(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	i := NewIssuer("secret", time.Minute)
	i.now = func() time.Time { return start }

	tok, err := i.IssueRefresh("u1")
	require.NoError(t, err)
	assert.Equal(t, start.Add(30*24*time.Hour), tok.ExpiresAt)
}

func TestIssue_UniqueTokens(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", time.Hour)
	a, err := i.IssueRefresh("u1")
	require.NoError(t, err)
	b, err := i.IssueRefresh("u1")
	require.NoError(t, err)
	assert.NotEqual(t, a.Value, b.Value)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewIssuer("right-secret", time.Hour).IssueAccess("u2")
	require.NoError(t, err)

	_, err = NewIssuer("wrong-secret", time.Hour).Verify(tok.Value, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer("k", time.Hour).Verify("not.a.jwt", TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenAccess,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Hour).Verify(s, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_MissingExpiry(t *testing.T) {
	t.Parallel()

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Type: TokenAccess}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Hour).Verify(s, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
