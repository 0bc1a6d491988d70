package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", fmt.Errorf("%w: email taken", common.ErrorConflict), http.StatusConflict},
		{"not found", common.ErrorNotFound, http.StatusNotFound},
		{"unauthorized", common.ErrorUnauthorized, http.StatusUnauthorized},
		{"bad token", common.ErrInvalidToken, http.StatusUnauthorized},
		{"forbidden", common.ErrorForbidden, http.StatusForbidden},
		{"invalid otp", common.ErrInvalidOTP, http.StatusBadRequest},
		{"invalid argument", common.ErrorInvalidArgument, http.StatusBadRequest},
		{"unavailable", errors.Join(common.ErrorServiceUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := statusOf(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	f := newFixture(t)
	s := NewServer(":0", logging.NewNop(), f.deps)

	rr := httptest.NewRecorder()
	s.writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("secret connection string"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")

	rr = httptest.NewRecorder()
	s.writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.Join(common.ErrorServiceUnavailable, errors.New("dial tcp 10.0.0.1")))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.1")
}

func TestReadJSON_RejectsMalformedBody(t *testing.T) {
	var v struct{ A string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	err := readJSON(httptest.NewRecorder(), req, &v)
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, readJSON(httptest.NewRecorder(), req, &v))
}
