package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/liberandum/internal/common"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusOf maps the error taxonomy onto HTTP statuses.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrInvalidOTP):
		return http.StatusBadRequest, "invalid_otp"
	case errors.Is(err, common.ErrorInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, common.ErrorServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, code, msg string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, APIError{Code: code, Message: msg})
}

// writeError renders err. Internal failures are logged and their detail is
// not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	msg := firstLine(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	} else if status == http.StatusServiceUnavailable {
		s.logger.Warn(r.Context(), "Dependency unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeErrorStatus(w, status, code, msg)
}

// firstLine keeps the head of a joined error, which is the sentinel text.
func firstLine(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}

const maxBodyBytes = 1 << 20

// readJSON decodes the request body into v. Unknown fields are ignored and
// an empty body leaves v untouched.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(common.ErrorInvalidArgument, errors.New("invalid json body"))
	}
	return nil
}
