package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/metrics"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userKey ctxKey = "user"

func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// userFrom returns the user placed by the auth middlewares. Handlers behind
// them can rely on it being set.
func userFrom(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if len(h) < len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(common.BearerPrefix):])
}

type guardFunc func(ctx context.Context, token string) (*models.User, error)

func (s *Server) guarded(check guardFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := check(r.Context(), bearerToken(r))
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// requireUser admits active users.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return s.guarded(s.deps.Guard.RequireUser)(next)
}

func (s *Server) requireRole(min models.Role) func(http.Handler) http.Handler {
	return s.guarded(func(ctx context.Context, token string) (*models.User, error) {
		return s.deps.Guard.RequireRole(ctx, token, min)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// rateLimit applies the fixed-window limiter per client address and path.
// A limiter outage lets the request through.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.deps.Limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r) + ":" + r.URL.Path
		res, err := s.deps.Limiter.Allow(r.Context(), key)
		if err != nil {
			s.logger.Warn(r.Context(), "Rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			h.Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Round(time.Second).Seconds())))
			if s.deps.Metrics != nil {
				s.deps.Metrics.RateLimited(metrics.RouteOf(r))
			}
			writeErrorStatus(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cors answers preflights and decorates responses for allowed origins.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make([]string, 0, len(s.deps.CORSOrigins))
	for _, o := range s.deps.CORSOrigins {
		allowed = append(allowed, strings.TrimRight(strings.TrimSpace(o), "/"))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimRight(r.Header.Get("Origin"), "/")
		match := false
		for _, a := range allowed {
			if a == "*" || (origin != "" && strings.EqualFold(origin, a)) {
				match = true
				break
			}
		}

		w.Header().Add("Vary", "Origin")
		if match && origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After, WWW-Authenticate, Location")
			h.Set("Access-Control-Max-Age", "600")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests writes one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		kv := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn(r.Context(), "Request completed", kv...)
			return
		}
		s.logger.Debug(r.Context(), "Request completed", kv...)
	})
}
