package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Account        *handlers.AccountHandler
	Offers         *handlers.OffersHandler
	Messages       *handlers.MessagesHandler
	Moderation     *handlers.ModerationHandler
	AuthMiddleware *auth.AuthMiddleware
	WriteGate      auth.WriteChecker
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authenticated := cfg.AuthMiddleware.Handle
	writable := auth.RequireWriteAllowed(cfg.WriteGate)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Auth.RegisterUser)
	authGroup.Post("/users/login", cfg.Auth.LoginUser)
	authGroup.Post("/companies/register", cfg.Auth.RegisterCompany)
	authGroup.Post("/companies/login", cfg.Auth.LoginCompany)
	authGroup.Post("/users/password/reset", cfg.Auth.RequestUserPasswordReset)
	authGroup.Post("/companies/password/reset", cfg.Auth.RequestCompanyPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", authenticated, cfg.Auth.Me)

	account := app.Group("/account", authenticated, writable)
	account.Post("/password", cfg.Account.ChangePassword)
	account.Patch("/profile", cfg.Account.UpdateProfile)

	app.Get("/offers", cfg.Offers.List)
	app.Post("/offers", authenticated, writable, cfg.Offers.Create)
	app.Patch("/offers/:id", authenticated, writable, cfg.Offers.Update)
	app.Delete("/offers/:id", authenticated, writable, cfg.Offers.Delete)

	app.Post("/messages", authenticated, writable, cfg.Messages.Send)

	moderation := app.Group("/moderation", authenticated, auth.RequireRole(domain.RoleModerator))
	moderation.Post("/bans", writable, cfg.Moderation.Ban)
	moderation.Delete("/bans/:kind/:id", writable, cfg.Moderation.Lift)
	moderation.Get("/principals/:kind/:id", cfg.Moderation.Inspect)
}
