package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/handler"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/middleware"
)

// RegisterReservations registers the hold, finalize and booking routes.
// They require a CUSTOMER or PAYMENT token; limiter guards the mutating
// routes.
func RegisterReservations(e *echo.Echo, res *handler.ReservationHandler, bk *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleCustomer, middleware.RolePayment),
	)

	g.POST("/schedules/:id/holds", res.Hold, limiter)
	g.GET("/schedules/:id/holds", res.ListMyHolds)
	g.GET("/holds/:id", res.GetHold)
	g.POST("/holds/:id/release", res.Release, limiter)
	g.DELETE("/holds/:id", res.Release, limiter)
	g.POST("/schedules/:id/finalize", res.Finalize, limiter)

	g.GET("/my-bookings", bk.ListMine)
	g.GET("/bookings/:id", bk.Get)
	g.DELETE("/bookings/:id", bk.Cancel, limiter)
}
