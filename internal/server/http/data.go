package http

import (
	"net/http"

	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/go-chi/chi/v5"
)

const defaultListLimit = 50

func (s *Server) handleDataCreate(w http.ResponseWriter, r *http.Request) {
	var rec models.Record
	if err := readJSON(w, r, &rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.deps.Data.Create(r.Context(), userFrom(r), chi.URLParam(r, "table"), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleDataGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Data.Get(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDataUpdate(w http.ResponseWriter, r *http.Request) {
	var fields models.Record
	if err := readJSON(w, r, &fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.deps.Data.Update(r.Context(), userFrom(r), chi.URLParam(r, "table"), chi.URLParam(r, "id"), fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDataDelete(w http.ResponseWriter, r *http.Request) {
	table, id := chi.URLParam(r, "table"), chi.URLParam(r, "id")
	if err := s.deps.Data.Delete(r.Context(), table, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "item deleted", "table_name": table, "item_id": id})
}

func (s *Server) handleDataList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	table := chi.URLParam(r, "table")
	items, err := s.deps.Data.List(r.Context(), table, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table_name":  table,
		"total_items": len(items),
		"limit":       limit,
		"items":       items,
	})
}

func (s *Server) handleDataSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	table := chi.URLParam(r, "table")
	items, err := s.deps.Data.Search(r.Context(), table, q.Get("field"), q.Get("value"), q.Get("search_type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table_name":  table,
		"field":       q.Get("field"),
		"value":       q.Get("value"),
		"total_found": len(items),
		"items":       items,
	})
}
