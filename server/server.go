// Package server wires handlers and middlewares into the HTTP router.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"task-tracker/auth"
	"task-tracker/db"
	_ "task-tracker/docs"
	"task-tracker/handlers"
	"task-tracker/middlewares"
)

type Deps struct {
	Tasks       db.TaskStore
	Health      db.Pinger
	Auth        *auth.Service
	Log         *zap.Logger
	Registry    *prometheus.Registry
	CORSOrigins []string
}

// NewRouter returns the complete API handler.
func NewRouter(d Deps) http.Handler {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	metrics := middlewares.NewMetrics(d.Registry)
	requireAuth := middlewares.RequireAuth(d.Auth.Tokens())

	taskHandler := handlers.NewTaskHandler(d.Tasks, d.Log)
	authHandler := handlers.NewAuthHandler(d.Auth, d.Log)

	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.HandleFunc("/", handlers.Home).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handlers.Health(d.Health, d.Log)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	r.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.Handle("/auth/refresh", requireAuth(http.HandlerFunc(authHandler.RefreshToken))).Methods(http.MethodPost)

	tasks := r.PathPrefix("/tasks").Subrouter()
	tasks.Use(requireAuth)
	tasks.HandleFunc("", taskHandler.ListTasks).Methods(http.MethodGet)
	tasks.HandleFunc("", taskHandler.CreateTask).Methods(http.MethodPost)
	tasks.HandleFunc("/{id}", taskHandler.GetTask).Methods(http.MethodGet)
	tasks.HandleFunc("/{id}", taskHandler.UpdateTask).Methods(http.MethodPatch)
	tasks.HandleFunc("/{id}", taskHandler.DeleteTask).Methods(http.MethodDelete)

	var h http.Handler = r
	h = middlewares.Recover(d.Log)(h)
	h = middlewares.AccessLog(d.Log)(h)
	if len(d.CORSOrigins) > 0 {
		h = middlewares.CORS(d.CORSOrigins)(h)
	}
	return h
}
