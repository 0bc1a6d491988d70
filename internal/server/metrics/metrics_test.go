package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/market/tokens/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"bitcoin", "ethereum"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/market/tokens/"+id, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/market/tokens/{id}", "404"))
	assert.Equal(t, 2.0, got)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
}

func TestMiddleware_DefaultsToOK(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hi"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/", "200")))
}

func TestOTPObserver(t *testing.T) {
	m := New()
	m.CodeSent(models.OTPLogin, nil)
	m.CodeSent(models.OTPLogin, errors.New("smtp down"))
	m.CodeVerified(models.OTPRegistration, true)
	m.CodeVerified(models.OTPRegistration, false)
	m.CodeVerified(models.OTPRegistration, false)
	m.CodesSwept(3)
	m.CodesSwept(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.otpSent.WithLabelValues("login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.otpSent.WithLabelValues("login", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.otpVerified.WithLabelValues("registration", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.otpSwept))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.RateLimited("/auth/login")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.Contains(t, string(body), `liberandum_rate_limited_total{route="/auth/login"} 1`)
}
