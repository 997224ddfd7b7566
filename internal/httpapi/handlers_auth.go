package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpx"
	"github.com/MrEthical07/authcore/middleware"
)

// deviceInfoRequest accepts either a bare label string or an object. Unknown
// keys inside the object are ignored; the client IP always comes from the
// connection.
type deviceInfoRequest struct {
	Label     string
	UserAgent string
}

func (d *deviceInfoRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &d.Label)
	}
	var obj struct {
		Label     string `json:"label"`
		UserAgent string `json:"userAgent"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	d.Label, d.UserAgent = obj.Label, obj.UserAgent
	return nil
}

func (d deviceInfoRequest) device() authcore.DeviceInfo {
	return authcore.DeviceInfo{Label: d.Label, UserAgent: d.UserAgent}
}

type registerRequest struct {
	Email      string            `json:"email"`
	Username   string            `json:"username"`
	Password   string            `json:"password"`
	DeviceInfo deviceInfoRequest `json:"deviceInfo"`
}

type registerResponse struct {
	Account   authcore.AccountView `json:"account"`
	Tokens    authcore.TokenPair   `json:"tokens"`
	SessionID string               `json:"sessionId"`
}

type loginRequest struct {
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	TOTPCode   string            `json:"totpCode"`
	DeviceInfo deviceInfoRequest `json:"deviceInfo"`
}

type loginResponse struct {
	Account   authcore.AccountView `json:"account"`
	Tokens    authcore.TokenPair   `json:"tokens"`
	SessionID string               `json:"sessionId"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokensResponse struct {
	Tokens authcore.TokenPair `json:"tokens"`
}

type logoutRequest struct {
	SessionID string `json:"sessionId"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteInvalid(w, err.Error())
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		httpx.WriteInvalid(w, "email, username and password are required")
		return
	}

	res, err := a.engine.Register(r.Context(), authcore.RegisterRequest{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Device:   req.DeviceInfo.device(),
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		Account:   res.Account,
		Tokens:    res.Tokens,
		SessionID: res.SessionID,
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteInvalid(w, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteInvalid(w, "email and password are required")
		return
	}

	res, err := a.engine.Login(r.Context(), authcore.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		TOTPCode: req.TOTPCode,
		Device:   req.DeviceInfo.device(),
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Account:   res.Account,
		Tokens:    res.Tokens,
		SessionID: res.SessionID,
	})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteInvalid(w, err.Error())
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, authcore.ErrInvalidRefreshToken)
		return
	}

	pair, err := a.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokensResponse{Tokens: *pair})
}

// logout ends the session named in the body, or the caller's own session
// when the body is empty.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())

	var req logoutRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteInvalid(w, err.Error())
			return
		}
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = auth.SessionID
	}

	if err := a.engine.Logout(r.Context(), auth.AccountID, sessionID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) logoutAll(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	n, err := a.engine.LogoutAll(r.Context(), auth.AccountID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

func (a *API) listSessions(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	sessions, err := a.engine.ListSessions(r.Context(), auth.AccountID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if sessions == nil {
		sessions = []authcore.SessionInfo{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type meResponse struct {
	AccountID   string   `json:"accountId"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	SessionID   string   `json:"sessionId,omitempty"`
	APIKeyID    string   `json:"apiKeyId,omitempty"`
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	auth, _ := middleware.AuthResultFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		AccountID:   auth.AccountID,
		Email:       auth.Email,
		Role:        auth.Role,
		Permissions: auth.Permissions,
		SessionID:   auth.SessionID,
		APIKeyID:    auth.APIKeyID,
	})
}
