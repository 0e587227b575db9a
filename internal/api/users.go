package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// UsersHandler lists borrowers for the issue form. Accounts are
// provisioned with the operator CLI, not over the API.
type UsersHandler struct {
	DB *sql.DB
}

// List handles GET /api/users. Only regular users are returned unless
// ?role=admin is given.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	role := model.RoleUser
	if q := model.Role(r.URL.Query().Get("role")); q != "" {
		if !q.Valid() {
			jsonError(w, http.StatusBadRequest, "invalid role")
			return
		}
		role = q
	}

	users, err := store.ListUsers(r.Context(), h.DB, role)
	if err != nil {
		storeError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}
