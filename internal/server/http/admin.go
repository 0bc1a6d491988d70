package http

import (
	"net/http"

	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleItemCreate(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec models.Record
		if err := readJSON(w, r, &rec); err != nil {
			s.writeError(w, r, err)
			return
		}
		out, err := s.deps.Admin.CreateItem(r.Context(), userFrom(r), resource, rec)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func (s *Server) handleItemList(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", defaultListLimit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		items, err := s.deps.Admin.ListItems(r.Context(), resource, limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"total": len(items), "items": items})
	}
}

func (s *Server) handleItemGet(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.deps.Admin.GetItem(r.Context(), resource, chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleItemUpdate(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields models.Record
		if err := readJSON(w, r, &fields); err != nil {
			s.writeError(w, r, err)
			return
		}
		rec, err := s.deps.Admin.UpdateItem(r.Context(), userFrom(r), resource, chi.URLParam(r, "id"), fields)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleItemDelete(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.deps.Admin.DeleteItem(r.Context(), userFrom(r), resource, id); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "item deleted", "id": id})
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.deps.Admin.ListUsers(r.Context(), r.URL.Query().Get("role"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(list), "users": list})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Admin.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req services.AdminUserUpdate
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.deps.Admin.UpdateUser(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleSetUserRole takes the role from the body or the role query parameter.
func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = r.URL.Query().Get("role")
	}
	u, err := s.deps.Admin.SetUserRole(r.Context(), userFrom(r), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "role updated", "user_id": u.ID, "new_role": u.Role})
}

func (s *Server) handleSetUserActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.deps.Admin.SetUserActive(r.Context(), userFrom(r), chi.URLParam(r, "id"), active)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "is_active": u.IsActive})
	}
}

func (s *Server) handleOTPCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Admin.CleanupOTP(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "expired codes removed", "deleted": n})
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Admin.System(r.Context()))
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Admin.Backup(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
