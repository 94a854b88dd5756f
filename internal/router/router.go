package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-booking/internal/handler"
	"github.com/iliyamo/bus-seat-booking/internal/middleware"
	"github.com/iliyamo/bus-seat-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance.  Currently it exposes only a health
// check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and
// applies the necessary middleware.  Unauthenticated operations live
// under /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// refresh rotates the refresh token; refresh-access only issues a
	// new access token
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// logout takes a refresh_token body or a bearer token; no JWT
	// middleware so an expired session can still log out
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated catalog endpoints:
// trip search, trip detail and the live seat map.  The optional
// cache middleware (Redis response cache) is applied when non-nil so
// hot seat-map reads do not hit MySQL on every poll.
func RegisterPublic(e *echo.Echo, t *handler.TripHandler, cache echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cache != nil {
		mws = append(mws, cache)
	}
	e.GET("/v1/trips", t.Search, mws...)
	e.GET("/v1/trips/:id", t.Get, mws...)
	e.GET("/v1/trips/:id/seats", t.TripSeats, mws...)
}

// RegisterBooking registers the passenger reservation, payment,
// cancellation and ticket routes.  Everything requires a valid
// access token; operator-only validation additionally requires the
// OPERATOR or ADMIN role.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, tk *handler.TicketHandler, jwtSecret string) {
	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	auth.POST("/trips/:id/reserve", b.Reserve)
	auth.GET("/bookings", b.List)
	auth.GET("/bookings/:id", b.Get)
	auth.POST("/bookings/:id/pay", b.Pay)
	auth.POST("/bookings/:id/confirm", b.ConfirmPayment)
	auth.POST("/bookings/:id/cancel", b.Cancel)
	auth.GET("/bookings/:id/ticket", tk.Get)

	auth.POST("/validate-ticket", tk.Validate,
		middleware.RequireRole(model.RoleOperator, model.RoleAdmin))
}

// RegisterOperator registers the trip management surface for
// operators.  All routes require the OPERATOR or ADMIN role.
func RegisterOperator(e *echo.Echo, t *handler.TripHandler, jwtSecret string) {
	g := e.Group("/v1/operator",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOperator, model.RoleAdmin))

	g.POST("/trips", t.Create)
	g.GET("/trips", t.List)
	g.PUT("/trips/:id", t.Update)
	g.POST("/trips/:id/deactivate", t.Deactivate)
	g.DELETE("/trips/:id", t.Delete)
	g.GET("/trips/:id/bookings", t.TripBookings)
}
