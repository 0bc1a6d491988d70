package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/auth"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/users"
)

// ProfileService backs the self-service account endpoints.
type ProfileService struct {
	users  *users.Store
	logger logging.Logger
	now    func() time.Time
}

func NewProfileService(store *users.Store, logger logging.Logger) *ProfileService {
	return &ProfileService{users: store, logger: logger.With("module", "profile"), now: time.Now}
}

// ProfileUpdate holds the fields a user may change on their own record.
type ProfileUpdate struct {
	Name      *string `json:"name"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (s *ProfileService) Update(ctx context.Context, user *models.User, p ProfileUpdate) (*models.User, error) {
	upd := models.UserUpdate{FirstName: p.FirstName, LastName: p.LastName}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is empty", common.ErrorInvalidArgument)
		}
		upd.Name = &name
	}
	if upd.IsEmpty() {
		return user, nil
	}
	return s.users.Update(ctx, user.ID, upd)
}

func (s *ProfileService) Rename(ctx context.Context, user *models.User, name string) (*models.User, error) {
	return s.Update(ctx, user, ProfileUpdate{Name: &name})
}

func (s *ProfileService) SetActive(ctx context.Context, user *models.User, active bool) (*models.User, error) {
	u, err := s.users.SetActive(ctx, user.ID, active)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Account state changed", "user_id", user.ID, "active", active)
	return u, nil
}

// ChangePassword is only available to local accounts.
func (s *ProfileService) ChangePassword(ctx context.Context, user *models.User, password string) error {
	if user.AuthProvider == models.AuthProviderGoogle {
		return fmt.Errorf("%w: google accounts have no password", common.ErrorInvalidArgument)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.users.Update(ctx, user.ID, models.UserUpdate{HashedPassword: &hash}); err != nil {
		return err
	}
	s.logger.Info(ctx, "Password changed", "user_id", user.ID)
	return nil
}

type UserStats struct {
	UserInfo struct {
		ID           string              `json:"id"`
		Email        string              `json:"email"`
		Name         string              `json:"name"`
		IsVerified   bool                `json:"is_verified"`
		IsActive     bool                `json:"is_active"`
		AuthProvider models.AuthProvider `json:"auth_provider"`
		Role         models.Role         `json:"role"`
	} `json:"user_info"`
	AccountStats struct {
		CreatedAt      string `json:"created_at"`
		AccountAgeDays int    `json:"account_age_days"`
		LastUpdated    string `json:"last_updated"`
	} `json:"account_stats"`
	SecurityInfo struct {
		HasPassword     bool `json:"has_password"`
		IsGoogleUser    bool `json:"is_google_user"`
		EmailVerified   bool `json:"email_verified"`
		HasActiveTokens bool `json:"has_active_tokens"`
	} `json:"security_info"`
}

func (s *ProfileService) Stats(user *models.User) UserStats {
	var st UserStats
	st.UserInfo.ID = user.ID
	st.UserInfo.Email = user.Email
	st.UserInfo.Name = user.Name
	st.UserInfo.IsVerified = user.IsVerified
	st.UserInfo.IsActive = user.IsActive
	st.UserInfo.AuthProvider = user.AuthProvider
	st.UserInfo.Role = user.Role

	st.AccountStats.CreatedAt = user.CreatedAt
	st.AccountStats.LastUpdated = user.UpdatedAt
	if created, err := common.ParseTime(user.CreatedAt); err == nil {
		st.AccountStats.AccountAgeDays = int(s.now().Sub(created).Hours() / 24)
	}

	st.SecurityInfo.HasPassword = user.HashedPassword != ""
	st.SecurityInfo.IsGoogleUser = user.AuthProvider == models.AuthProviderGoogle
	st.SecurityInfo.EmailVerified = user.IsVerified
	st.SecurityInfo.HasActiveTokens = user.AccessToken != "" && user.RefreshToken != ""
	return st
}

type Session struct {
	UserID       string              `json:"user_id"`
	Email        string              `json:"email"`
	AuthProvider models.AuthProvider `json:"auth_provider"`
	LastLogin    string              `json:"last_login"`
	Active       bool                `json:"active"`
	Role         models.Role         `json:"role"`
}

type Sessions struct {
	Current Session `json:"current_session"`
	Total   int     `json:"total_sessions"`
}

// Sessions reports the single session mirrored on the user.
func (s *ProfileService) Sessions(user *models.User) Sessions {
	active := user.AccessToken != "" && user.RefreshToken != ""
	out := Sessions{Current: Session{
		UserID:       user.ID,
		Email:        user.Email,
		AuthProvider: user.AuthProvider,
		LastLogin:    user.UpdatedAt,
		Active:       active,
		Role:         user.Role,
	}}
	if active {
		out.Total = 1
	}
	return out
}
