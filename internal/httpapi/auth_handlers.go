package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"assetdesk.org/internal/audit"
	"assetdesk.org/internal/inventory"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, codeValidation, "username and password are required")
		return
	}

	token, err := a.svc.Login.Login(r.Context(), username, req.Password)
	if err != nil {
		if errors.Is(err, inventory.ErrUnauthorized) {
			_ = audit.LogEvent(r.Context(), "user.login_failed", map[string]any{
				"username":  username,
				"remote_ip": clientIP(r),
			})
			unauthorized(w, r, err.Error())
			return
		}
		handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.login", map[string]any{
		"username":   username,
		"expires_at": token.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, token)
}
