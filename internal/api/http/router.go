package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/api/http/handlers"
	"github.com/spec-kit/support-platform/internal/api/ws"
	"github.com/spec-kit/support-platform/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Chats          *handlers.ChatsHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Socket         *ws.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP and websocket routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	// websocket upgrade authenticates via ?token=, not the bearer middleware
	app.Use("/ws", cfg.Socket.UpgradeGuard)
	app.Get("/ws", cfg.Socket.Serve())

	chats := app.Group("/chats", cfg.AuthMiddleware.Handle)
	chats.Get("/", cfg.Chats.ListChats)
	chats.Post("/", cfg.Chats.CreateChat)
	chats.Get("/:id", cfg.Chats.GetChat)
	chats.Get("/:id/history", cfg.Chats.GetHistory)
	chats.Post("/:id/messages", cfg.Chats.AddMessage)
	chats.Post("/:id/escalate", cfg.Chats.Escalate)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:ticketId", cfg.Tickets.GetTicket)
	tickets.Put("/:ticketId", cfg.Tickets.UpdateTicket)
	tickets.Post("/:ticketId/messages", cfg.Tickets.AddMessage)
	tickets.Put("/:ticketId/close", cfg.Tickets.CloseTicket)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/tickets", cfg.AdminTickets.ListTickets)
	admin.Put("/tickets/:ticketId/assign", cfg.AdminTickets.AssignTicket)
	admin.Put("/tickets/:ticketId/status", cfg.AdminTickets.SetStatus)
}
