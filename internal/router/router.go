package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/ticketloop/event-ticketing/internal/handler"
	"github.com/ticketloop/event-ticketing/internal/middleware"
	"github.com/ticketloop/event-ticketing/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check, which
// load balancers and monitoring systems use to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  Unauthenticated
// operations live under /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: a valid refresh token in
	// the body is enough to terminate that session.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints.  The cache
// middleware is applied here rather than globally so that only the read-heavy
// public listing benefits from it.
func RegisterPublic(e *echo.Echo, p *handler.PublicEventHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", p.List, cache)
	e.GET("/v1/events/:id", p.Get, cache)
}

// RegisterOrganizer registers event management endpoints.  Every route
// requires a valid token with the ORGANIZER role; statistics included,
// since only the owning organizer may read them.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerEventHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleOrganizer))

	g.POST("/events", o.Create)
	g.PUT("/events/:id", o.Update)
	g.DELETE("/events/:id", o.Delete)
	g.GET("/organizer/events", o.List)
	g.GET("/events/:id/stats", o.Stats)
}

// RegisterTickets registers the purchase and ticket management endpoints.
// Any authenticated role may buy tickets.
func RegisterTickets(e *echo.Echo, t *handler.TicketHandler, jwtSecret string) {
	g := e.Group("/v1/tickets")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAttendee, model.RoleOrganizer, model.RoleAdmin))

	g.POST("/payment-intent", t.PaymentIntent)
	g.POST("", t.Purchase)
	g.GET("", t.List)
	g.GET("/:id", t.Get)
	g.POST("/:id/cancel", t.Cancel)
}
