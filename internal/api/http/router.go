package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Technicians    *handlers.TechniciansHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimit      fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	if cfg.RateLimit != nil {
		tickets.Post("/", cfg.RateLimit, cfg.Tickets.CreateTicket)
	} else {
		tickets.Post("/", cfg.Tickets.CreateTicket)
	}
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/candidates", cfg.Tickets.ListCandidates)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", cfg.Tickets.ReopenTicket)
	tickets.Post("/:id/cancel", cfg.Tickets.CancelTicket)
	tickets.Post("/:id/assign", cfg.Tickets.AssignTechnician)
	tickets.Delete("/:id/assign", cfg.Tickets.RemoveTechnician)
	tickets.Get("/:id/audit", cfg.Tickets.ListAudit)
	tickets.Post("/:id/tasks", cfg.Tickets.AddTask)
	tickets.Post("/:id/worklogs", cfg.Tickets.AddWorkLog)

	technicians := api.Group("/technicians")
	technicians.Post("/", cfg.Technicians.CreateTechnician)
	technicians.Get("/", cfg.Technicians.ListTechnicians)
	technicians.Get("/:id", cfg.Technicians.GetTechnician)
	technicians.Get("/:id/workload", cfg.Technicians.GetWorkload)
	technicians.Put("/:id/skills", cfg.Technicians.ReplaceSkills)
	technicians.Put("/:id/availability", cfg.Technicians.SetAvailability)

	skills := api.Group("/skills")
	skills.Post("/", cfg.Technicians.CreateSkill)
	skills.Get("/", cfg.Technicians.ListSkills)
}
