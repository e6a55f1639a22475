package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/repository"
)

// CatalogHandler serves the read-only schedule catalog.
type CatalogHandler struct {
	Schedules *repository.ScheduleRepo
	Now       func() time.Time
}

func NewCatalogHandler(schedules *repository.ScheduleRepo) *CatalogHandler {
	return &CatalogHandler{Schedules: schedules, Now: time.Now}
}

// Search handles GET /v1/schedules.
//
// Query: origin, destination, date (YYYY-MM-DD, UTC), time ("upcoming"
// default or "any"), page, pageSize.
func (h *CatalogHandler) Search(c echo.Context) error {
	q := repository.ScheduleSearchQuery{
		Origin:      strings.TrimSpace(c.QueryParam("origin")),
		Destination: strings.TrimSpace(c.QueryParam("destination")),
		TimeFilter:  strings.ToLower(strings.TrimSpace(c.QueryParam("time"))),
	}
	if d := strings.TrimSpace(c.QueryParam("date")); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			return writeError(c, &requestError{msg: "date must be YYYY-MM-DD"})
		}
		q.From, q.To = day, day.Add(24*time.Hour)
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	if q.Page < 1 {
		q.Page = 1
	}
	q.PageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}

	items, total, err := h.Schedules.Search(c.Request().Context(), q, h.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":     items,
		"total":    total,
		"page":     q.Page,
		"pageSize": q.PageSize,
	})
}

type scheduleView struct {
	ScheduleID  uint64    `json:"scheduleId"`
	RouteID     uint64    `json:"routeId"`
	BusID       uint64    `json:"busId"`
	DepartureAt time.Time `json:"departureAt"`
	ArrivalAt   time.Time `json:"arrivalAt"`
	TotalSeats  int       `json:"totalSeats"`
	Status      string    `json:"status"`
}

// Detail handles GET /v1/schedules/:id.
func (h *CatalogHandler) Detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	s, err := h.Schedules.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, scheduleView{
		ScheduleID:  s.ID,
		RouteID:     s.RouteID,
		BusID:       s.BusID,
		DepartureAt: s.DepartureAt,
		ArrivalAt:   s.ArrivalAt,
		TotalSeats:  s.TotalSeats,
		Status:      s.Status,
	})
}

// Seats handles GET /v1/schedules/:id/seats, the static seat map of the
// schedule's bus.  Live state comes from the availability endpoint.
func (h *CatalogHandler) Seats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	s, err := h.Schedules.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	bus, err := h.Schedules.GetBus(ctx, s.BusID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"scheduleId": s.ID,
		"totalSeats": s.TotalSeats,
		"columns":    bus.SeatCols,
		"seats":      model.SeatLayout(s.TotalSeats, int(bus.SeatCols)),
	})
}
