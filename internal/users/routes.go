package users

import (
	"github.com/gorilla/mux"

	"github.com/duetapp/duet-backend/internal/auth"
)

// RegisterRoutes wires user endpoints. Registration is public, the rest
// requires a valid token.
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	public := router.PathPrefix("/api/v1/users").Subrouter()
	public.HandleFunc("", handler.CreateUser).Methods("POST")

	api := router.PathPrefix("/api/v1/users").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/me", handler.GetMe).Methods("GET")
	api.HandleFunc("/{id:[0-9]+}", handler.GetUser).Methods("GET")
}
