package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/category"
	"github.com/frahmantamala/expense-tickets/internal/expense"
	"github.com/frahmantamala/expense-tickets/internal/role"
	"github.com/frahmantamala/expense-tickets/internal/siteconfig"
	"github.com/frahmantamala/expense-tickets/internal/transport"
	"github.com/frahmantamala/expense-tickets/internal/transport/middleware"
	"github.com/frahmantamala/expense-tickets/internal/transport/swagger"
	"github.com/frahmantamala/expense-tickets/internal/user"
)

// Handlers groups the module handlers mounted under /api/v1. A nil handler
// leaves its routes unregistered.
type Handlers struct {
	Auth       *auth.Handler
	Users      *user.Handler
	Roles      *role.Handler
	Categories *category.Handler
	Config     *siteconfig.Handler
	Tickets    *expense.Handler
}

type Options struct {
	Authenticator middleware.Authenticator
	Authorizer    auth.Authorizer
	CookieName    string
	HealthChecks  map[string]Check
	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string
	OpenAPI     []byte
	BaseURL     string
	Logger      *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options) {
	base := transport.NewBaseHandler(opts.Logger)
	healthHandler := NewHealthHandler(base, opts.HealthChecks)

	authenticate := middleware.Authenticate(opts.Authenticator, opts.CookieName, base)
	require := func(perms ...string) func(next http.Handler) http.Handler {
		return middleware.RequirePermissions(opts.Authorizer, base, perms...)
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.LoggingMiddleware(opts.MetricsPath, "/api/v1/ping", "/api/v1/health"))

	if opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, promhttp.Handler())
	}
	if len(opts.OpenAPI) > 0 {
		router.Get(swagger.SpecPath, swagger.SpecHandler(opts.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler(opts.BaseURL))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth != nil {
			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/logout", h.Auth.Logout)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(authenticate)

			if h.Auth != nil {
				pr.Get("/auth/me", h.Auth.Me)
			}

			if h.Categories != nil {
				pr.Get("/categories", h.Categories.GetCategories)
			}

			if h.Config != nil {
				pr.Get("/config", h.Config.GetConfig)
				pr.With(require(role.ConfigManage)).Put("/config", h.Config.UpdateConfig)
			}

			// Ticket permissions are checked by the expense service, which
			// also needs the ticket for ownership and state rules.
			if h.Tickets != nil {
				pr.Route("/tickets", func(tr chi.Router) {
					tr.Get("/", h.Tickets.ListTickets)
					tr.Post("/", h.Tickets.CreateTicket)
					tr.Get("/mine", h.Tickets.MyTickets)
					tr.Get("/pending-amount", h.Tickets.PendingAmount)
					tr.Get("/stats", h.Tickets.Stats)
					tr.Get("/{id}", h.Tickets.GetTicket)
					tr.Patch("/{id}", h.Tickets.UpdateTicket)
					tr.Delete("/{id}", h.Tickets.DeleteTicket)
					tr.Put("/{id}/action", h.Tickets.ApplyAction)
				})
			}

			if h.Roles != nil {
				pr.Route("/roles", func(rr chi.Router) {
					rr.Use(require(role.RolesManage))
					rr.Get("/", h.Roles.ListRoles)
					rr.Get("/{name}", h.Roles.GetRole)
					rr.Put("/{name}", h.Roles.UpsertRole)
					rr.Delete("/{name}", h.Roles.DeleteRole)
				})
			}

			if h.Users != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/me", h.Users.GetCurrentUser)
					ur.Group(func(mr chi.Router) {
						mr.Use(require(role.UsersManage))
						mr.Get("/", h.Users.ListUsers)
						mr.Post("/", h.Users.CreateUser)
						mr.Get("/{email}", h.Users.GetUser)
						mr.Put("/{email}", h.Users.UpdateUser)
						mr.Delete("/{email}", h.Users.DeleteUser)
					})
				})
			}
		})
	})
}
