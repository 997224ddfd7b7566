package httpapi

import (
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpx"
	"github.com/MrEthical07/authcore/middleware"
)

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

type listAPIKeysResponse struct {
	APIKeys []authcore.APIKeyInfo `json:"apiKeys"`
}

func (a *API) createAPIKey(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())

	var req createAPIKeyRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteInvalid(w, err.Error())
			return
		}
	}

	key, err := a.engine.GenerateAPIKey(r.Context(), auth.AccountID, req.Name)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, key)
}

func (a *API) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	keys, err := a.engine.ListAPIKeys(r.Context(), auth.AccountID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if keys == nil {
		keys = []authcore.APIKeyInfo{}
	}
	httpx.WriteJSON(w, http.StatusOK, listAPIKeysResponse{APIKeys: keys})
}

func (a *API) revokeAPIKey(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	if err := a.engine.RevokeAPIKey(r.Context(), auth.AccountID, r.PathValue("keyId")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
