package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	"github.com/lulius2021/alarmbriefing-server-go/internal/metrics"
	"github.com/lulius2021/alarmbriefing-server-go/internal/middleware"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

type Middleware = func(http.Handler) http.Handler

// RouterDeps is everything the HTTP surface needs. Handlers are mounted
// as-is; the middleware decides who the caller is.
type RouterDeps struct {
	Auth      *AuthHandler
	Pairing   *PairingHandler
	Audit     *AuditHandler
	Alarms    *AlarmHandler
	Briefings *BriefingHandler
	Settings  *SettingsHandler
	Health    http.Handler

	UserAuth   Middleware
	BotGateway Middleware
	ClaimLimit Middleware
	Authorizer middleware.Authorizer
	Metrics    *metrics.Metrics

	CORSOrigins         []string
	AuthRateLimitPerMin int
	IsProduction        bool
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(d.Metrics.Middleware)
	r.Use(middleware.NewSecurityHeadersMiddleware(d.IsProduction).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.BotTokenHeader},
		ExposedHeaders: []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	if d.Health != nil {
		r.Method(http.MethodGet, "/health", d.Health)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// The event stream outlives any request timeout.
		r.With(d.UserAuth).Get("/audit/stream", d.Audit.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			r.Use(middleware.NewBodyLimitMiddleware(0).Handler)

			r.Route("/auth", func(r chi.Router) {
				r.Use(httprate.LimitByIP(d.AuthRateLimitPerMin, time.Minute))
				r.Post("/register", d.Auth.Register)
				r.Post("/login", d.Auth.Login)
				r.With(d.UserAuth).Get("/me", d.Auth.Me)
				r.With(d.UserAuth).Delete("/account", d.Auth.DeleteAccount)
			})

			r.With(d.ClaimLimit).Post("/pairing/claim", d.Pairing.Claim)

			r.Group(func(r chi.Router) {
				r.Use(d.UserAuth)

				r.Post("/pairing/code", d.Pairing.RequestCode)
				r.Get("/pairing", d.Pairing.List)
				r.Delete("/pairing/{id}", d.Pairing.Revoke)

				r.Get("/audit", d.Audit.List)

				mountResources(r, d)
			})

			r.Route("/bot", func(r chi.Router) {
				r.Use(d.BotGateway)

				r.Get("/ping", BotPing)
				mountResources(r, d)
			})
		})
	})

	return r
}

// mountResources registers the routes shared by the app and paired bots.
// Users pass every guard; bots need the named scope.
func mountResources(r chi.Router, d RouterDeps) {
	scope := func(s string) Middleware {
		return middleware.RequireScope(d.Authorizer, s)
	}

	r.Route("/alarms", func(r chi.Router) {
		r.With(scope(model.ScopeAlarmsRead)).Get("/", d.Alarms.List)
		r.With(scope(model.ScopeAlarmsWrite)).Post("/", d.Alarms.Create)
		r.With(scope(model.ScopeAlarmsRead)).Get("/{id}", d.Alarms.Get)
		r.With(scope(model.ScopeAlarmsWrite)).Patch("/{id}", d.Alarms.Update)
		r.With(scope(model.ScopeAlarmsWrite)).Delete("/{id}", d.Alarms.Delete)
	})

	r.Route("/briefings", func(r chi.Router) {
		r.With(scope(model.ScopeBriefingsRead)).Get("/", d.Briefings.List)
		r.With(scope(model.ScopeBriefingsWrite)).Post("/", d.Briefings.Create)
		r.With(scope(model.ScopeBriefingsRead)).Get("/{alarmId}/latest", d.Briefings.Latest)
	})

	r.Route("/settings", func(r chi.Router) {
		r.With(scope(model.ScopeSettingsRead)).Get("/", d.Settings.Get)
		r.With(scope(model.ScopeSettingsWrite)).Patch("/", d.Settings.Update)
	})
}
