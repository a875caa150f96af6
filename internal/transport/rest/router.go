package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/leave-management/internal/auth"
	"github.com/frahmantamala/leave-management/internal/leave"
	"github.com/frahmantamala/leave-management/internal/transport/middleware"
	"github.com/frahmantamala/leave-management/internal/transport/swagger"
	"github.com/frahmantamala/leave-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
)

// Routes groups everything the router mounts. Nil handlers leave their routes
// unregistered.
type Routes struct {
	Health         *HealthHandler
	OpenAPI        http.Handler
	Auth           *auth.Handler
	RBAC           *auth.RBACAuthorization
	User           *user.Handler
	Leave          *leave.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, routes Routes) {
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   routes.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TraceIDHeader},
		ExposedHeaders:   []string{middleware.TraceIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(routes.Logger))
	router.Use(middleware.RecoveryMiddleware(routes.Logger))

	// Docs are served outside the /api prefix
	if routes.OpenAPI != nil {
		router.Handle("/openapi.yml", routes.OpenAPI)
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		if routes.Health != nil {
			r.Get("/health", routes.Health.healthCheckHandler)
			r.Get("/ping", routes.Health.pingHandler)
		}

		if routes.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", routes.Auth.Register)
			sr.Post("/login", routes.Auth.Login)
			sr.Post("/logout", routes.Auth.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(routes.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			if routes.User != nil {
				pr.Get("/users/me", routes.User.GetCurrentUser)
			}

			if routes.Leave == nil || routes.RBAC == nil {
				return
			}
			rbac := routes.RBAC

			pr.Route("/leaves", func(lr chi.Router) {
				lr.With(rbac.Require(auth.OpListOwnLeaves)).Get("/", routes.Leave.GetMyLeaves)
				lr.With(rbac.Require(auth.OpApplyLeave)).Post("/", routes.Leave.ApplyLeave)
				lr.With(rbac.Require(auth.OpCancelLeave)).Delete("/{id}", routes.Leave.CancelLeave)
			})

			pr.Route("/admin/leaves", func(ar chi.Router) {
				ar.With(rbac.Require(auth.OpListAllLeaves)).Get("/", routes.Leave.ListAllLeaves)
				ar.With(rbac.Require(auth.OpUpdateLeaveStatus)).Put("/{id}/status", routes.Leave.UpdateLeaveStatus)
			})
		})
	})
}
