package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all routes for the API.
func RegisterRoutes(router *mux.Router, s *Server) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/chat", s.proxyChat).Methods(http.MethodPost)
	api.HandleFunc("/session/messages", s.sessionMessage).Methods(http.MethodPost)

	api.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.updateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id:[0-9]+}/toggle", s.toggleTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id:[0-9]+}/subtasks", s.addSubtask).Methods(http.MethodPost)

	api.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	api.HandleFunc("/calendar", s.calendar).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
