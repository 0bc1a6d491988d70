package http

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
	OTPType string `json:"otp_type"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.deps.Auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":               "user registered, check email for the verification code",
		"email":                 user.Email,
		"requires_verification": true,
	})
}

func (s *Server) handleVerifyRegistration(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, _, err := s.deps.Auth.VerifyRegistration(r.Context(), req.Email, req.OTPCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Auth.Login(r.Context(), req.Email, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "verification code sent",
		"email":        req.Email,
		"requires_otp": true,
	})
}

func (s *Server) handleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, _, err := s.deps.Auth.VerifyLogin(r.Context(), req.Email, req.OTPCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.deps.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) resend(w http.ResponseWriter, r *http.Request, email, otpType string) {
	typ, err := models.ParseOTPType(otpType)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: otp_type must be registration or login", common.ErrorInvalidArgument))
		return
	}
	if err := s.deps.Auth.ResendOTP(r.Context(), email, typ); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "verification code sent again",
		"email":    email,
		"otp_type": typ,
	})
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.resend(w, r, req.Email, req.OTPType)
}

func (s *Server) handleResendOTPQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.resend(w, r, q.Get("email"), q.Get("otp_type"))
}

func (s *Server) handleResendTyped(typ models.OTPType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req otpRequest
		if err := readJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.resend(w, r, req.Email, string(typ))
	}
}

func (s *Server) handleOTPStatus(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	codes, err := s.deps.Auth.OTPStatus(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	active := 0
	for _, c := range codes {
		if c.Active {
			active++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email":        email,
		"codes":        codes,
		"active_codes": active,
	})
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Google.LoginURL(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, u, http.StatusTemporaryRedirect)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.writeError(w, r, fmt.Errorf("%w: google oauth error: %s", common.ErrorInvalidArgument, e))
		return
	}
	code := q.Get("code")
	if code == "" {
		s.writeError(w, r, fmt.Errorf("%w: authorization code is missing", common.ErrorInvalidArgument))
		return
	}
	if err := s.deps.Google.ConsumeState(r.Context(), q.Get("state")); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, user, err := s.deps.Auth.FederateGoogle(r.Context(), services.GoogleCredential{Code: code})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "authenticated with google",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
		"user":          user,
	})
}

func (s *Server) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req services.GoogleCredential
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, _, err := s.deps.Auth.FederateGoogle(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleGoogleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Google.Status())
}

func (s *Server) handleGoogleRevoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Google.Revoke(r.Context(), req.Token); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "token revoked"})
}
