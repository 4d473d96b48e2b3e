// internal/matching/routes.go
package matching

import (
	"github.com/gorilla/mux"

	"github.com/duetapp/duet-backend/internal/auth"
)

// RegisterRoutes wires the matching endpoints. Everything requires a
// valid token. hub may be nil when WebSocket notifications are
// disabled.
func RegisterRoutes(router *mux.Router, handler *Handler, hub *Hub, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/matching").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/suggestions", handler.GetSuggestions).Methods("GET")
	api.HandleFunc("/swipes", handler.Swipe).Methods("POST")
	api.HandleFunc("/matches", handler.GetMatches).Methods("GET")
	api.HandleFunc("/stats", handler.GetStats).Methods("GET")

	if hub != nil {
		api.HandleFunc("/ws", hub.ServeWS).Methods("GET")
	}
}
