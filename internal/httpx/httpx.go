// Package httpx holds the JSON response and error helpers shared by the
// middleware and internal/httpapi packages.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/password"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error      ErrorDetail          `json:"error"`
	Remaining  int                  `json:"remaining,omitempty"`
	RetryAfter int                  `json:"retryAfter,omitempty"`
	Violations []password.Violation `json:"violations,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	"invalid_credentials":   http.StatusUnauthorized,
	"account_locked":        http.StatusLocked,
	"weak_password":         http.StatusBadRequest,
	"account_exists":        http.StatusConflict,
	"invalid_token":         http.StatusUnauthorized,
	"invalid_refresh_token": http.StatusUnauthorized,
	"permission_denied":     http.StatusForbidden,
	"rate_limited":          http.StatusTooManyRequests,
	"session_expired":       http.StatusUnauthorized,
	"invalid_request":       http.StatusBadRequest,
	"totp_required":         http.StatusUnauthorized,
	"totp_invalid":          http.StatusUnauthorized,
	"totp_not_configured":   http.StatusBadRequest,
	"totp_already_enabled":  http.StatusConflict,
	"api_key_not_found":     http.StatusNotFound,
	"api_key_limit":         http.StatusConflict,
	"internal_failure":      http.StatusInternalServerError,
}

// Status maps err to its HTTP status.
func Status(err error) int {
	if s, ok := statusByCode[authcore.ErrorCode(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as an ErrorBody. Messages of internal failures are
// replaced by a generic text.
func WriteError(w http.ResponseWriter, err error) {
	code := authcore.ErrorCode(err)
	status := Status(err)
	body := ErrorBody{Error: ErrorDetail{Code: code, Message: "internal failure"}}

	if e, ok := authcore.AsError(err); ok && code != "internal_failure" {
		body.Error.Message = e.Error()
		switch {
		case errors.Is(err, authcore.ErrAccountLocked):
			body.Remaining = e.RetryAfterSeconds()
		case errors.Is(err, authcore.ErrRateLimited):
			body.RetryAfter = e.RetryAfterSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
		case errors.Is(err, authcore.ErrWeakPassword):
			body.Violations = e.Violations
		}
	} else if code != "internal_failure" {
		body.Error.Message = err.Error()
	}
	WriteJSON(w, status, body)
}

// DecodeJSON reads exactly one JSON object from the request body. Unknown
// fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer reader.Close()

	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return errors.New("request body is not valid JSON")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// WriteInvalid answers 400 invalid_request with msg.
func WriteInvalid(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: ErrorDetail{Code: "invalid_request", Message: msg}})
}
