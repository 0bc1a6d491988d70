package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/dmitrijs2005/liberandum/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var adminResources = []string{
	services.ResourceTokens,
	services.ResourceTokenStats,
	services.ResourceExchanges,
	services.ResourceExchangeStats,
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	if s.deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.deps.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorStatus(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/auth", s.authRoutes)
	r.Route("/market", s.marketRoutes)
	r.Route("/data", s.dataRoutes)
	r.Route("/admin", s.adminRoutes)
	return r
}

func (s *Server) authRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/register", s.handleRegister)
		r.Post("/verify-registration", s.handleVerifyRegistration)
		r.Post("/login", s.handleLogin)
		r.Post("/verify-login", s.handleVerifyLogin)
		r.Post("/otp/resend", s.handleResendOTP)
		r.Get("/otp/resend", s.handleResendOTPQuery)
		r.Post("/otp/resend-registration", s.handleResendTyped(models.OTPRegistration))
		r.Post("/otp/resend-login", s.handleResendTyped(models.OTPLogin))
	})
	r.Post("/refresh", s.handleRefresh)
	r.Get("/otp/status/{email}", s.handleOTPStatus)

	r.Route("/oauth/google", func(r chi.Router) {
		r.Get("/login", s.handleGoogleLogin)
		r.Get("/callback", s.handleGoogleCallback)
		r.Post("/auth", s.handleGoogleAuth)
		r.Get("/status", s.handleGoogleStatus)
		r.Post("/revoke", s.handleGoogleRevoke)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Post("/me/activate", s.handleSetActive(true))
		r.Get("/me", s.handleMe)
		r.Put("/me", s.handleUpdateMe)
		r.Patch("/me/name", s.handleRename)
		r.Post("/me/deactivate", s.handleSetActive(false))
		r.Post("/me/change-password", s.handleChangePassword)
		r.Get("/me/stats", s.handleMeStats)
		r.Post("/logout", s.handleLogout)
		r.Post("/logout-all", s.handleLogout)
		r.Get("/sessions", s.handleSessions)
	})
}

func (s *Server) marketRoutes(r chi.Router) {
	r.Get("/tokens", s.handleTokens)
	r.Get("/tokens/{id}", s.handleToken)
	r.Get("/tokens/{id}/chart", s.handleChart)
	r.Get("/exchanges", s.handleExchanges)
	r.Get("/health", s.handleMarketHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.requireRole(models.RoleAdmin))
		r.Post("/admin/check-tables", s.handleCheckTables)
		r.Get("/admin/statistics", s.handleStatistics)
	})
}

func (s *Server) dataRoutes(r chi.Router) {
	r.Use(s.requireUser)
	r.Route("/tables/{table}", func(r chi.Router) {
		r.Post("/items", s.handleDataCreate)
		r.Get("/items", s.handleDataList)
		r.Get("/items/{id}", s.handleDataGet)
		r.Put("/items/{id}", s.handleDataUpdate)
		r.Delete("/items/{id}", s.handleDataDelete)
		r.Get("/search", s.handleDataSearch)
	})
}

func (s *Server) adminRoutes(r chi.Router) {
	r.Use(s.requireRole(models.RoleAdmin))

	for _, res := range adminResources {
		r.Route("/"+res, func(r chi.Router) {
			r.Post("/", s.handleItemCreate(res))
			r.Get("/", s.handleItemList(res))
			r.Get("/{id}", s.handleItemGet(res))
			r.Put("/{id}", s.handleItemUpdate(res))
			r.Delete("/{id}", s.handleItemDelete(res))
		})
	}

	r.Get("/users", s.handleListUsers)
	r.Get("/users/{id}", s.handleGetUser)
	r.Put("/users/{id}", s.handleUpdateUser)
	r.Put("/users/{id}/role", s.handleSetUserRole)
	r.Put("/users/{id}/activate", s.handleSetUserActive(true))
	r.Put("/users/{id}/deactivate", s.handleSetUserActive(false))

	r.Post("/otp/cleanup", s.handleOTPCleanup)
	r.Get("/system", s.handleSystem)
	r.Post("/tables/{table}/backup", s.handleBackup)
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorInvalidArgument, name)
	}
	return n, nil
}
