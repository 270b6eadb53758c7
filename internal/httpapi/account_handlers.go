package httpapi

import (
	"errors"
	"net/http"
	"time"

	"ldtt.org/internal/auth"
)

// accountResponse is the outward account shape. The password hash never
// leaves the service.
type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountResponse(account *auth.Account) accountResponse {
	resp := accountResponse{
		ID:        account.ID,
		Email:     account.Email,
		Username:  account.Username,
		CreatedAt: account.CreatedAt,
	}
	for _, role := range account.Roles {
		resp.Roles = append(resp.Roles, role.Name)
	}
	return resp
}

func (a *API) handleAccountMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}

	account, err := a.auth.Account(r.Context(), principal.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}
