package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apimiddleware "github.com/taskboard/taskboard-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public, tightly rate limited)
		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.RateLimit(app.authRateLimiter))

			r.Post("/auth/register", app.authHandler.Register)
			r.Post("/auth/login", app.authHandler.Login)
			r.Post("/auth/refresh", app.authHandler.Refresh)
			r.Post("/auth/logout", app.authHandler.Logout)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.RateLimit(app.apiRateLimiter))
			r.Use(app.authMiddleware.Authenticate)

			r.Post("/tasks", app.taskHandler.CreateTask)
			r.Get("/tasks", app.taskHandler.ListTasks)
			r.Get("/tasks/status-counts", app.taskHandler.GetStatusCounts)
			r.Get("/tasks/{id}", app.taskHandler.GetTask)
			r.Patch("/tasks/{id}", app.taskHandler.UpdateTask)
			r.Delete("/tasks/{id}", app.taskHandler.DeleteTask)

			r.Post("/tasks/{id}/assignees/{userId}", app.taskHandler.AssignUser)
			r.Delete("/tasks/{id}/assignees/{userId}", app.taskHandler.UnassignUser)

			r.Post("/tasks/{id}/comments", app.taskHandler.AddComment)
			r.Get("/tasks/{id}/comments", app.taskHandler.ListComments)
			r.Get("/tasks/{id}/history", app.taskHandler.GetHistory)

			r.Get("/notifications", app.notificationHandler.ListNotifications)
			r.Patch("/notifications/{id}/read", app.notificationHandler.MarkAsRead)
			r.Patch("/notifications/read-all", app.notificationHandler.MarkAllAsRead)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
