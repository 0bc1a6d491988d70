// Package users is the user store: creation with defaults, lookups, partial
// updates and the narrow state changes used by authentication and admin
// flows. Email and name uniqueness is enforced here, under per-key locks,
// because the table has no unique secondary indexes.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/keylock"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	usersrepo "github.com/dmitrijs2005/liberandum/internal/server/repositories/users"
	"github.com/google/uuid"
)

// NewUser holds the caller-supplied fields of a user being created.
type NewUser struct {
	Email          string
	Name           string
	FirstName      string
	LastName       string
	HashedPassword string
	IsVerified     bool
	AuthProvider   models.AuthProvider
	Role           models.Role
}

// Tokens is the pair mirrored on the user record.
type Tokens struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type Store struct {
	repo   usersrepo.Repository
	locker keylock.Locker
	logger logging.Logger
	now    func() time.Time
}

func NewStore(repo usersrepo.Repository, locker keylock.Locker, logger logging.Logger) *Store {
	return &Store{repo: repo, locker: locker, logger: logger.With("module", "users"), now: time.Now}
}

func emailKey(email string) string { return "user-email:" + email }
func nameKey(name string) string   { return "user-name:" + name }
func tokenKey(id string) string    { return "user-tokens:" + id }

// Create applies defaults (unverified unless stated, active, local provider,
// role user, no tokens) and stores the user. A taken email or name is
// ErrorConflict.
func (s *Store) Create(ctx context.Context, nu NewUser) (*models.User, error) {
	nu.Email = strings.TrimSpace(nu.Email)
	nu.Name = strings.TrimSpace(nu.Name)
	if nu.Email == "" || nu.Name == "" {
		return nil, fmt.Errorf("%w: email and name are required", common.ErrorInvalidArgument)
	}
	if nu.AuthProvider == "" {
		nu.AuthProvider = models.AuthProviderLocal
	}
	if nu.Role == "" {
		nu.Role = models.RoleUser
	}
	if !nu.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", common.ErrorInvalidArgument, nu.Role)
	}

	unlock, err := keylock.LockAll(ctx, s.locker, emailKey(nu.Email), nameKey(nu.Name))
	if err != nil {
		return nil, errors.Join(common.ErrorServiceUnavailable, err)
	}
	defer unlock()

	if err := s.ensureFree(ctx, "", &nu.Email, &nu.Name); err != nil {
		return nil, err
	}

	ts := common.FormatTime(s.now())
	user := &models.User{
		ID:             uuid.NewString(),
		Email:          nu.Email,
		Name:           nu.Name,
		FirstName:      nu.FirstName,
		LastName:       nu.LastName,
		HashedPassword: nu.HashedPassword,
		IsVerified:     nu.IsVerified,
		IsActive:       true,
		AuthProvider:   nu.AuthProvider,
		Role:           nu.Role,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "User created", "user_id", created.ID, "provider", created.AuthProvider)
	return created, nil
}

// ensureFree fails with ErrorConflict when email or name belongs to a user
// other than selfID.
func (s *Store) ensureFree(ctx context.Context, selfID string, email, name *string) error {
	if email != nil {
		u, err := s.repo.GetByEmail(ctx, *email)
		if err == nil && u.ID != selfID {
			return fmt.Errorf("%w: email already registered", common.ErrorConflict)
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}
	if name != nil {
		u, err := s.repo.GetByName(ctx, *name)
		if err == nil && u.ID != selfID {
			return fmt.Errorf("%w: name already taken", common.ErrorConflict)
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Store) GetByName(ctx context.Context, name string) (*models.User, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *Store) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return s.repo.GetByRefreshToken(ctx, token)
}

func (s *Store) List(ctx context.Context, role models.Role, limit int) ([]*models.User, error) {
	return s.repo.List(ctx, role, limit)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Update merges the set fields and stamps updated_at. Changing email or name
// re-checks uniqueness. A missing id is ErrorNotFound.
func (s *Store) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if upd.Role != nil && !upd.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", common.ErrorInvalidArgument, *upd.Role)
	}

	if upd.Email != nil || upd.Name != nil {
		var keys []string
		if upd.Email != nil {
			keys = append(keys, emailKey(*upd.Email))
		}
		if upd.Name != nil {
			keys = append(keys, nameKey(*upd.Name))
		}
		unlock, err := keylock.LockAll(ctx, s.locker, keys...)
		if err != nil {
			return nil, errors.Join(common.ErrorServiceUnavailable, err)
		}
		defer unlock()

		if err := s.ensureFree(ctx, id, upd.Email, upd.Name); err != nil {
			return nil, err
		}
	}

	ts := common.FormatTime(s.now())
	upd.UpdatedAt = &ts
	return s.repo.Update(ctx, id, upd)
}

func tokenUpdate(t Tokens) models.UserUpdate {
	accessExp, refreshExp := "", ""
	if !t.AccessExpiresAt.IsZero() {
		accessExp = common.FormatTime(t.AccessExpiresAt)
	}
	if !t.RefreshExpiresAt.IsZero() {
		refreshExp = common.FormatTime(t.RefreshExpiresAt)
	}
	return models.UserUpdate{
		AccessToken:           &t.Access,
		RefreshToken:          &t.Refresh,
		AccessTokenExpiresAt:  &accessExp,
		RefreshTokenExpiresAt: &refreshExp,
	}
}

// SetTokens mirrors a freshly issued pair on the user, replacing the
// previous one.
func (s *Store) SetTokens(ctx context.Context, id string, t Tokens) (*models.User, error) {
	unlock, err := s.locker.Lock(ctx, tokenKey(id))
	if err != nil {
		return nil, errors.Join(common.ErrorServiceUnavailable, err)
	}
	defer unlock()
	return s.Update(ctx, id, tokenUpdate(t))
}

// RotateTokens replaces the pair only while the stored refresh token still
// equals presented; otherwise it fails with ErrorUnauthorized. Two
// concurrent refreshes with the same token cannot both succeed.
func (s *Store) RotateTokens(ctx context.Context, id, presented string, t Tokens) (*models.User, error) {
	unlock, err := s.locker.Lock(ctx, tokenKey(id))
	if err != nil {
		return nil, errors.Join(common.ErrorServiceUnavailable, err)
	}
	defer unlock()

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if presented == "" || u.RefreshToken != presented {
		return nil, fmt.Errorf("%w: refresh token revoked", common.ErrorUnauthorized)
	}
	return s.Update(ctx, id, tokenUpdate(t))
}

// ClearTokens empties the four token fields (logout).
func (s *Store) ClearTokens(ctx context.Context, id string) (*models.User, error) {
	return s.SetTokens(ctx, id, Tokens{})
}

// SetRole fails with ErrorInvalidArgument unless role is user, pro_user or
// admin.
func (s *Store) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, models.UserUpdate{Role: &r})
}

func (s *Store) SetVerified(ctx context.Context, id string) (*models.User, error) {
	v := true
	return s.Update(ctx, id, models.UserUpdate{IsVerified: &v})
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	return s.Update(ctx, id, models.UserUpdate{IsActive: &active})
}
