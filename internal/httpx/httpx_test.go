package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Status(authcore.ErrInvalidCredentials))
	assert.Equal(t, http.StatusLocked, Status(authcore.ErrAccountLocked))
	assert.Equal(t, http.StatusForbidden, Status(authcore.ErrPermissionDenied))
	assert.Equal(t, http.StatusTooManyRequests, Status(authcore.ErrRateLimited))
	assert.Equal(t, http.StatusNotFound, Status(authcore.ErrAPIKeyNotFound))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "pq:")

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal_failure", body.Error.Code)
	assert.Equal(t, "internal failure", body.Error.Message)
}

func TestWriteErrorSentinel(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, authcore.ErrInvalidToken)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "invalid_token", body.Error.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	cases := map[string]struct {
		body    string
		wantErr string
	}{
		"ok":       {body: `{"name":"ci"}`},
		"empty":    {body: ``, wantErr: "required"},
		"unknown":  {body: `{"nope":1}`, wantErr: "not valid"},
		"trailing": {body: `{"name":"a"}{"name":"b"}`, wantErr: "unexpected data"},
		"too big":  {body: `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`, wantErr: "too large"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst payload
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "ci", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
