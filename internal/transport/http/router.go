package http

import (
	"net/http"

	"github.com/go-account-api/internal/application/auth"
	"github.com/go-account-api/internal/application/user"
	"github.com/go-account-api/internal/application/verification"
	"github.com/go-account-api/internal/config"
	"github.com/go-account-api/internal/transport/http/handler"
	appmiddleware "github.com/go-account-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Every request passes the gate; public routes and anonymous requests go
	// through without a principal, protected groups enforce one below.
	r.Use(appmiddleware.AuthorizationGate(deps.JWTProvider))

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	verificationSvc := verification.NewService(
		deps.VerificationRepo, deps.Notifier,
		cfg.VerificationBaseURL, cfg.MfaCodeTTL, cfg.ResetTokenTTL,
	)
	authSvc := auth.NewService(deps.UserRepo, deps.RoleRepo, deps.JWTProvider, verificationSvc)
	userSvc := user.NewService(deps.UserRepo, deps.RoleRepo, verificationSvc, deps.Notifier)

	healthH := handler.NewHealthHandler()
	userH := handler.NewUserHandler(userSvc, authSvc)

	r.Get("/health", healthH.Ping)

	r.Route("/users", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.With(sensitiveRL.Limit).Post("/", userH.Register)
		r.With(sensitiveRL.Limit).Post("/login", userH.Login)
		r.With(sensitiveRL.Limit).Post("/verify/code", userH.VerifyMfaCode)
		r.Get("/refresh/token", userH.Refresh)
		r.Get("/verify/account/{key}", userH.VerifyAccount)
		r.Get("/verify/password/{key}", userH.VerifyResetKey)
		r.With(sensitiveRL.Limit).Post("/password-resets/{target}", userH.PasswordResets)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.RequirePrincipal)

			r.Get("/profile", userH.GetProfile)
			r.Put("/profile", userH.UpdateProfile)
			r.Get("/roles", userH.ListRoles)
		})
	})

	return r
}
