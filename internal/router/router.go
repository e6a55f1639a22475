// Package router registers the HTTP routes of the reservation API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/handler"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/monitoring"
)

// RegisterRoutes registers the operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(monitoring.Handler()))
}

// RegisterPublic registers the unauthenticated catalog and availability
// routes.  cache fronts the catalog only; availability is always read
// live.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, res *handler.ReservationHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/schedules", cat.Search, cache)
	e.GET("/v1/schedules/:id", cat.Detail, cache)
	e.GET("/v1/schedules/:id/seats", cat.Seats, cache)
	e.GET("/v1/schedules/:id/availability", res.Availability)
}
