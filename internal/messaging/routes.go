package messaging

import (
	"github.com/gorilla/mux"

	"github.com/collegecrush/crush-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Messages
	api.HandleFunc("/messages", handler.SendMessage).Methods("POST")
	api.HandleFunc("/messages/pending", handler.GetPendingCount).Methods("GET")
	api.HandleFunc("/conversations/{id}/messages", handler.GetConversationMessages).Methods("GET")
}
