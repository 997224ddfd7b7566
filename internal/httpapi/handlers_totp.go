package httpapi

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authcore/internal/httpx"
	"github.com/MrEthical07/authcore/middleware"
)

type totpCodeRequest struct {
	Code string `json:"code"`
}

func (a *API) totpSetup(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	setup, err := a.engine.SetupTOTP(r.Context(), auth.AccountID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, setup)
}

func (a *API) totpConfirm(w http.ResponseWriter, r *http.Request) {
	a.withTOTPCode(w, r, a.engine.ConfirmTOTP, "enabled")
}

func (a *API) totpDisable(w http.ResponseWriter, r *http.Request) {
	a.withTOTPCode(w, r, a.engine.DisableTOTP, "disabled")
}

func (a *API) withTOTPCode(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, accountID, code string) error,
	status string,
) {
	auth, _ := middleware.AuthResultFromContext(r.Context())

	var req totpCodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteInvalid(w, err.Error())
		return
	}
	if req.Code == "" {
		httpx.WriteInvalid(w, "code is required")
		return
	}
	if err := op(r.Context(), auth.AccountID, req.Code); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"totp": status})
}
