package http

import (
	"net/http"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", services.DefaultTokensPerPage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.deps.Market.Tokens(r.Context(), page, limit, r.URL.Query().Get("sort"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Market.Token(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := s.deps.Market.Chart(r.Context(), chi.URLParam(r, "id"), q.Get("timeframe"), q.Get("currency"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Market.Exchanges(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarketHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Market.Health(r.Context()))
}

func (s *Server) handleCheckTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":     s.deps.Market.CheckTables(r.Context()),
		"checked_by": userFrom(r).Email,
		"checked_at": common.FormatTime(s.now()),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Market.Statistics(r.Context()))
}
