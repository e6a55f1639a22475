package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/service"
)

// BookingHandler serves a holder's bookings.
type BookingHandler struct {
	Bookings *service.Bookings
}

func NewBookingHandler(b *service.Bookings) *BookingHandler {
	if b == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: b}
}

type bookingView struct {
	BookingID   string    `json:"bookingId"`
	ScheduleID  uint64    `json:"scheduleId"`
	SeatNumbers []int     `json:"seatNumbers"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toBookingView(b *model.Booking) bookingView {
	return bookingView{
		BookingID:   b.ID,
		ScheduleID:  b.ScheduleID,
		SeatNumbers: b.Seats,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	holder, err := actingHolder(c, c.QueryParam("holderId"))
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.Bookings.ListByHolder(c.Request().Context(), holder)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingView, 0, len(list))
	for i := range list {
		out = append(out, toBookingView(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	holder, err := actingHolder(c, c.QueryParam("holderId"))
	if err != nil {
		return writeError(c, err)
	}
	b, err := h.Bookings.Get(c.Request().Context(), c.Param("id"), holder)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingView(b))
}

// Cancel handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	holder, err := actingHolder(c, c.QueryParam("holderId"))
	if err != nil {
		return writeError(c, err)
	}
	b, err := h.Bookings.Cancel(c.Request().Context(), c.Param("id"), holder)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingView(b))
}
