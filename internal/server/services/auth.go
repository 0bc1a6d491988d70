// Package services contains server-side business logic. This file implements
// AuthService: registration and login confirmed by emailed one-time codes,
// token refresh with rotation and Google federation.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/auth"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/oauth"
	"github.com/dmitrijs2005/liberandum/internal/server/otp"
	"github.com/dmitrijs2005/liberandum/internal/server/users"
)

// OTPEngine is the part of otp.Engine used by the auth flows.
type OTPEngine interface {
	Send(ctx context.Context, email string, typ models.OTPType) error
	Verify(ctx context.Context, email, code string, typ models.OTPType) (bool, error)
	Status(ctx context.Context, email string) ([]otp.CodeStatus, error)
}

// IdentityProvider turns a Google credential into a verified identity.
type IdentityProvider interface {
	Exchange(ctx context.Context, code string) (oauth.Identity, error)
	VerifyIDToken(ctx context.Context, credential string) (oauth.Identity, error)
}

type AuthService struct {
	users  *users.Store
	otp    OTPEngine
	issuer *auth.Issuer
	google IdentityProvider
	logger logging.Logger
}

func NewAuthService(store *users.Store, engine OTPEngine, issuer *auth.Issuer, google IdentityProvider, logger logging.Logger) *AuthService {
	return &AuthService{
		users:  store,
		otp:    engine,
		issuer: issuer,
		google: google,
		logger: logger.With("module", "auth"),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", common.ErrorInvalidArgument)
	}
	return email, nil
}

// Register creates an unverified local user and emails a registration code.
// When delivery fails the user exists and the caller has to resend.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, users.NewUser{
		Email:          email,
		Name:           name,
		HashedPassword: hash,
		AuthProvider:   models.AuthProviderLocal,
	})
	if err != nil {
		return nil, err
	}

	if err := s.otp.Send(ctx, email, models.OTPRegistration); err != nil {
		s.logger.Warn(ctx, "Registration code not delivered", "user_id", user.ID, "error", err)
		return user, errors.Join(common.ErrorServiceUnavailable, err)
	}
	return user, nil
}

// VerifyRegistration consumes the registration code, marks the user verified
// and opens a session.
func (s *AuthService) VerifyRegistration(ctx context.Context, email, code string) (*TokenPair, *models.User, error) {
	email = strings.TrimSpace(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user.IsVerified {
		return nil, nil, fmt.Errorf("%w: email already verified", common.ErrorConflict)
	}
	if err := s.consume(ctx, email, code, models.OTPRegistration); err != nil {
		return nil, nil, err
	}

	user, err = s.users.SetVerified(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	pair, err := generateTokenPair(ctx, s.issuer, s.users, user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info(ctx, "Registration verified", "user_id", user.ID)
	return pair, user, nil
}

// Login checks the password and emails a login code. Unknown emails and
// wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: invalid email or password", common.ErrorUnauthorized)
	}
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.HashedPassword, password) {
		return fmt.Errorf("%w: invalid email or password", common.ErrorUnauthorized)
	}
	if !user.IsVerified {
		return fmt.Errorf("%w: email is not verified", common.ErrorForbidden)
	}
	if !user.IsActive {
		return errAccountDeactivated
	}

	if err := s.otp.Send(ctx, user.Email, models.OTPLogin); err != nil {
		return errors.Join(common.ErrorServiceUnavailable, err)
	}
	return nil
}

// VerifyLogin consumes the login code and issues a fresh pair, replacing the
// previous session.
func (s *AuthService) VerifyLogin(ctx context.Context, email, code string) (*TokenPair, *models.User, error) {
	email = strings.TrimSpace(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsVerified {
		return nil, nil, fmt.Errorf("%w: email is not verified", common.ErrorForbidden)
	}
	if !user.IsActive {
		return nil, nil, errAccountDeactivated
	}
	if err := s.consume(ctx, email, code, models.OTPLogin); err != nil {
		return nil, nil, err
	}

	pair, err := generateTokenPair(ctx, s.issuer, s.users, user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info(ctx, "Login verified", "user_id", user.ID)
	return pair, user, nil
}

func (s *AuthService) consume(ctx context.Context, email, code string, typ models.OTPType) error {
	ok, err := s.otp.Verify(ctx, email, code, typ)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidOTP
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// be the one currently stored on the user, so a rotated or logged-out token
// is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.issuer.Verify(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: unknown user", common.ErrorUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errAccountDeactivated
	}

	pair, t, err := newTokens(s.issuer, user.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.RotateTokens(ctx, user.ID, refreshToken, t); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout clears the stored pair; the refresh token stops working at once.
func (s *AuthService) Logout(ctx context.Context, user *models.User) error {
	_, err := s.users.ClearTokens(ctx, user.ID)
	return err
}

// GoogleCredential carries either an ID token or an authorization code.
type GoogleCredential struct {
	Credential string `json:"credential"`
	Code       string `json:"code"`
}

// FederateGoogle signs in with a Google identity, creating a verified user on
// first use.
func (s *AuthService) FederateGoogle(ctx context.Context, c GoogleCredential) (*TokenPair, *models.User, error) {
	var (
		id  oauth.Identity
		err error
	)
	switch {
	case c.Credential != "":
		id, err = s.google.VerifyIDToken(ctx, c.Credential)
	case c.Code != "":
		id, err = s.google.Exchange(ctx, c.Code)
	default:
		return nil, nil, fmt.Errorf("%w: code or credential is required", common.ErrorInvalidArgument)
	}
	if err != nil {
		return nil, nil, err
	}
	if id.Email == "" {
		return nil, nil, fmt.Errorf("%w: google identity has no email", common.ErrorUnauthorized)
	}

	user, err := s.users.GetByEmail(ctx, id.Email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		user, err = s.createGoogleUser(ctx, id)
	case err == nil:
		user, err = s.refreshGoogleUser(ctx, user, id)
	}
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, errAccountDeactivated
	}

	pair, err := generateTokenPair(ctx, s.issuer, s.users, user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info(ctx, "Google sign-in", "user_id", user.ID)
	return pair, user, nil
}

func (s *AuthService) createGoogleUser(ctx context.Context, id oauth.Identity) (*models.User, error) {
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name, _, _ = strings.Cut(id.Email, "@")
	}
	nu := users.NewUser{
		Email:        id.Email,
		Name:         name,
		FirstName:    id.GivenName,
		LastName:     id.FamilyName,
		IsVerified:   true,
		AuthProvider: models.AuthProviderGoogle,
	}
	user, err := s.users.Create(ctx, nu)
	if !errors.Is(err, common.ErrorConflict) {
		return user, err
	}
	// The display name belongs to someone else; keep it recognisable.
	suffix, herr := common.MakeRandHexString(3)
	if herr != nil {
		return nil, errors.Join(common.ErrorInternal, herr)
	}
	nu.Name = name + "-" + suffix
	return s.users.Create(ctx, nu)
}

func (s *AuthService) refreshGoogleUser(ctx context.Context, user *models.User, id oauth.Identity) (*models.User, error) {
	upd := models.UserUpdate{}
	if id.GivenName != "" && id.GivenName != user.FirstName {
		upd.FirstName = &id.GivenName
	}
	if id.FamilyName != "" && id.FamilyName != user.LastName {
		upd.LastName = &id.FamilyName
	}
	if !user.IsVerified {
		v := true
		upd.IsVerified = &v
	}
	if upd.IsEmpty() {
		return user, nil
	}
	return s.users.Update(ctx, user.ID, upd)
}

// ResendOTP sends a new code of typ. Registration codes are only for
// unverified users, login codes only for verified ones.
func (s *AuthService) ResendOTP(ctx context.Context, email string, typ models.OTPType) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	switch {
	case typ == models.OTPRegistration && user.IsVerified:
		return fmt.Errorf("%w: email already verified", common.ErrorInvalidArgument)
	case typ == models.OTPLogin && !user.IsVerified:
		return fmt.Errorf("%w: email is not verified", common.ErrorInvalidArgument)
	}
	return s.otp.Send(ctx, user.Email, typ)
}

// OTPStatus lists the codes stored for a known email.
func (s *AuthService) OTPStatus(ctx context.Context, email string) ([]otp.CodeStatus, error) {
	email = strings.TrimSpace(email)
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	}
	return s.otp.Status(ctx, email)
}
