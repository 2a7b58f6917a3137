package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/policy"
)

// RegisterGuest registers the booking flow under /v1.  Every route needs a
// valid JWT; what the caller may do is decided by policy.Allow.  Quote and
// pay go through the rate limiter.
func RegisterGuest(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.POST("/bookings/quote", h.Quote, middleware.Authorize(policy.Drafts, policy.Create), limiter)

	g.POST("/bookings/drafts", h.CreateDraft, middleware.Authorize(policy.Drafts, policy.Create))
	g.GET("/bookings/drafts/:id", h.GetDraft, middleware.Authorize(policy.Drafts, policy.Read))
	g.DELETE("/bookings/drafts/:id", h.DiscardDraft, middleware.Authorize(policy.Drafts, policy.Update))
	g.POST("/bookings/drafts/:id/pay", h.Pay, middleware.Authorize(policy.Drafts, policy.Pay), limiter)

	// history is always scoped to the caller's user id
	g.GET("/my-bookings", h.MyBookings, middleware.Authorize(policy.Bookings, policy.Read))
	g.GET("/bookings/:id", h.Get, middleware.Authorize(policy.Bookings, policy.Read))
}
