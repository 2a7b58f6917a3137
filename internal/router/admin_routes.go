package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/policy"
	"github.com/iliyamo/hotel-reservation/internal/ticket"
)

// RegisterAdmin registers the back-office console under /v1/admin: the
// ticket workflow and the notifications feed.
func RegisterAdmin(e *echo.Echo, t *handler.TicketHandler, n *handler.NotificationHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret))

	// ---- Tickets ----
	read := middleware.Authorize(policy.Tickets, policy.Read)
	write := middleware.Authorize(policy.Tickets, policy.Update)
	g.POST("/tickets", t.Create, middleware.Authorize(policy.Tickets, policy.Create))
	g.GET("/tickets", t.List, read)          // ?view=active|completed|archived
	g.GET("/tickets/search", t.Search, read) // ?q=&category=&priority=&status=
	g.GET("/tickets/stream", t.Stream, read)
	g.POST("/tickets/:id/start", t.Transition(ticket.ActionStart), write)
	g.POST("/tickets/:id/complete", t.Transition(ticket.ActionComplete), write)
	g.POST("/tickets/:id/archive", t.Transition(ticket.ActionArchive), write)
	g.POST("/tickets/:id/report", t.Report, write)

	// ---- Notifications ----
	g.GET("/notifications", n.List, middleware.Authorize(policy.Notifications, policy.Read))
	g.GET("/notifications/stream", n.Stream, middleware.Authorize(policy.Notifications, policy.Read))
	g.POST("/notifications/:id/read", n.MarkRead, middleware.Authorize(policy.Notifications, policy.Update))
	g.POST("/notifications/clear", n.Clear, middleware.Authorize(policy.Notifications, policy.Update))
}
