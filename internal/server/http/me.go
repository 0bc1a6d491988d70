package http

import (
	"net/http"

	"github.com/dmitrijs2005/liberandum/internal/server/services"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileUpdate
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.deps.Profile.Update(r.Context(), userFrom(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name == "" {
		req.Name = r.URL.Query().Get("name")
	}
	user, err := s.deps.Profile.Rename(r.Context(), userFrom(r), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "name updated", "user": user})
}

func (s *Server) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.deps.Profile.SetActive(r.Context(), userFrom(r), active)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		msg := "account deactivated"
		if active {
			msg = "account activated"
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": msg, "email": user.Email, "is_active": user.IsActive})
	}
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.NewPassword == "" {
		req.NewPassword = r.URL.Query().Get("new_password")
	}
	user := userFrom(r)
	if err := s.deps.Profile.ChangePassword(r.Context(), user, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "password changed", "email": user.Email})
}

func (s *Server) handleMeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Profile.Stats(userFrom(r)))
}

// handleLogout serves both logout endpoints; a user holds a single session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if err := s.deps.Auth.Logout(r.Context(), user); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out", "email": user.Email})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Profile.Sessions(userFrom(r)))
}
