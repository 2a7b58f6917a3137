package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/policy"
)

// RegisterRoutes registers routes that do not require authentication.
// /healthz is used by load balancers to check the database connection.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the session endpoints under /v1/auth, the
// protected profile endpoint and admin user provisioning.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// takes the refresh token in the body, no access token required
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.Authorize(policy.Profile, policy.Read),
	)
	// staff and admin accounts are provisioned, never self-registered
	e.POST("/v1/admin/users", a.CreateUser,
		middleware.JWTAuth(jwtSecret),
		middleware.Authorize(policy.Users, policy.Create),
	)
}

// RegisterPublic registers the browse endpoints.  The room catalog is
// served through the response cache and the rate limiter.
func RegisterPublic(e *echo.Echo, rooms *handler.RoomsHandler, cache, limiter echo.MiddlewareFunc) {
	e.GET("/v1/rooms", rooms.List, limiter, cache)
}
