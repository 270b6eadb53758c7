package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"ldtt.org/internal/audit"
	"ldtt.org/internal/auth"
	"ldtt.org/internal/obs"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Valid bool `json:"valid"`
}

type logoutRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	token, err := a.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	obs.TokenIssued()
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"email": strings.ToLower(strings.TrimSpace(req.Email)),
	})

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Authenticated: true})
}

func (a *API) handleAuthIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req introspectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	valid, err := a.auth.Introspect(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "introspection failed")
		return
	}
	if !valid {
		obs.VerifyFailed("introspect")
	}
	writeJSON(w, http.StatusOK, introspectResponse{Valid: valid})
}

func (a *API) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	revoked, err := a.auth.Logout(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}

	if revoked {
		obs.TokenRevoked()
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAuthRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := a.auth.Refresh(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			obs.VerifyFailed("refresh")
		}
		handleAuthError(w, r, err)
		return
	}

	obs.TokenIssued()
	obs.TokenRevoked()
	_ = audit.LogEvent(r.Context(), "auth.refresh", nil)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Authenticated: true})
}

func (a *API) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, r, http.StatusBadRequest, "passwords do not match")
		return
	}

	account, err := a.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"email": account.Email,
	})
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "account already exists")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrSigning):
		writeError(w, r, http.StatusInternalServerError, "token signing unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
