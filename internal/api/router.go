package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/knjiznica/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	itemsHandler := &ItemsHandler{DB: db}
	loansHandler := &LoansHandler{DB: db}
	usersHandler := &UsersHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	user := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Session.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("POST /api/auth/logout", user(authHandler.Logout))
	mux.Handle("GET /api/me", user(authHandler.Me))
	mux.Handle("GET /api/me/loans", user(loansHandler.Mine))

	// Catalog: read (all roles), write (admin).
	mux.Handle("GET /api/items", user(itemsHandler.List))
	mux.Handle("GET /api/items/search", user(itemsHandler.Search))
	mux.Handle("GET /api/items/{id}", user(itemsHandler.Get))
	mux.Handle("GET /api/items/{id}/cover", user(itemsHandler.GetCover))
	mux.Handle("POST /api/items", admin(itemsHandler.Create))
	mux.Handle("DELETE /api/items/{id}", admin(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/cover", admin(itemsHandler.UploadCover))
	mux.Handle("GET /api/items/{id}/loans", admin(loansHandler.ItemHistory))

	// Circulation (admin).
	mux.Handle("POST /api/loans", admin(loansHandler.Issue))
	mux.Handle("POST /api/loans/return", admin(loansHandler.Return))
	mux.Handle("GET /api/users", admin(usersHandler.List))

	mux.Handle("POST /api/fines/pay", user(PayFine))

	return mux
}
