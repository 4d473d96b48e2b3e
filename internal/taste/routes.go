// internal/taste/routes.go

package taste

import (
	"github.com/gorilla/mux"

	"github.com/duetapp/duet-backend/internal/auth"
)

// RegisterRoutes wires taste profile endpoints. All of them operate on
// the authenticated caller's own profile.
func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/taste").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.UpdateProfile).Methods("PUT")
	api.HandleFunc("", handler.GetProfile).Methods("GET")
	api.HandleFunc("/sync", handler.SyncProfile).Methods("POST")
}
