package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/service"
)

// ReservationHandler serves availability, holds and finalization.  Every
// method except Availability assumes JWTAuth has run.
type ReservationHandler struct {
	Ledger    *service.Ledger
	Finalizer *service.Finalizer
	Projector *service.Projector
}

// NewReservationHandler panics on nil dependencies.
func NewReservationHandler(ledger *service.Ledger, finalizer *service.Finalizer, projector *service.Projector) *ReservationHandler {
	if ledger == nil || finalizer == nil || projector == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Ledger: ledger, Finalizer: finalizer, Projector: projector}
}

type seatLockView struct {
	SeatNumber int       `json:"seatNumber"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type availabilityView struct {
	ScheduleID          uint64         `json:"scheduleId"`
	TotalSeats          int            `json:"totalSeats"`
	BookedSeats         []int          `json:"bookedSeats"`
	LockedSeats         []seatLockView `json:"lockedSeats"`
	AvailableSeatsCount int            `json:"availableSeatsCount"`
	TakenAt             time.Time      `json:"takenAt"`
}

type holdView struct {
	HoldID      string    `json:"holdId"`
	ScheduleID  uint64    `json:"scheduleId"`
	SeatNumbers []int     `json:"seatNumbers"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func toHoldView(h *model.SeatHold) holdView {
	return holdView{
		HoldID:      h.ID,
		ScheduleID:  h.ScheduleID,
		SeatNumbers: h.Seats,
		State:       string(h.State),
		CreatedAt:   h.CreatedAt,
		ExpiresAt:   h.ExpiresAt,
	}
}

// Availability handles GET /v1/schedules/:id/availability.
func (h *ReservationHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	a, err := h.Projector.Snapshot(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	locks := make([]seatLockView, 0, len(a.ActiveLocks))
	for _, l := range a.ActiveLocks {
		locks = append(locks, seatLockView{SeatNumber: l.SeatNumber, ExpiresAt: l.ExpiresAt})
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, availabilityView{
		ScheduleID:          a.ScheduleID,
		TotalSeats:          a.TotalSeats,
		BookedSeats:         a.BookedSeats,
		LockedSeats:         locks,
		AvailableSeatsCount: a.AvailableCount,
		TakenAt:             a.TakenAt,
	})
}

// Hold handles POST /v1/schedules/:id/holds.  It returns 201 with the hold
// or 409 naming the seats that are already taken.
func (h *ReservationHandler) Hold(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body holdRequest
	if err := bindStrict(c, &body); err != nil {
		return writeError(c, err)
	}
	holder, err := actingHolder(c, body.HolderID)
	if err != nil {
		return writeError(c, err)
	}
	ttl, err := h.requestedTTL(body.TTLSeconds)
	if err != nil {
		return writeError(c, err)
	}
	hold, err := h.Ledger.Acquire(c.Request().Context(), service.AcquireRequest{
		ScheduleID: id,
		Seats:      body.SeatNumbers,
		HolderID:   holder,
		TTL:        ttl,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toHoldView(hold))
}

// maxTTLSeconds caps ttlSeconds when the ledger sets no maximum.
const maxTTLSeconds = 24 * 60 * 60

// requestedTTL converts ttlSeconds to a Duration.  Values above the
// ledger maximum are refused here, before the multiplication can wrap.
func (h *ReservationHandler) requestedTTL(secs *int) (time.Duration, error) {
	if secs == nil {
		return 0, nil
	}
	limit := int64(maxTTLSeconds)
	if m := h.Ledger.MaxTTL; m > 0 {
		limit = min(limit, int64(m/time.Second))
	}
	if int64(*secs) > limit {
		return 0, fmt.Errorf("%w: %ds is above %ds", service.ErrInvalidTTL, *secs, limit)
	}
	return time.Duration(*secs) * time.Second, nil
}

// GetHold handles GET /v1/holds/:id.
func (h *ReservationHandler) GetHold(c echo.Context) error {
	holder, err := actingHolder(c, c.QueryParam("holderId"))
	if err != nil {
		return writeError(c, err)
	}
	hold, err := h.Ledger.Get(c.Request().Context(), c.Param("id"), holder)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toHoldView(hold))
}

// ListMyHolds handles GET /v1/schedules/:id/holds.
func (h *ReservationHandler) ListMyHolds(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	holder, err := actingHolder(c, c.QueryParam("holderId"))
	if err != nil {
		return writeError(c, err)
	}
	holds, err := h.Ledger.ListMine(c.Request().Context(), id, holder)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]holdView, 0, len(holds))
	for i := range holds {
		out = append(out, toHoldView(&holds[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// Release handles POST /v1/holds/:id/release and DELETE /v1/holds/:id.
func (h *ReservationHandler) Release(c echo.Context) error {
	holder, err := actingHolder(c, c.QueryParam("holderId"))
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Ledger.Release(c.Request().Context(), c.Param("id"), holder); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Finalize handles POST /v1/schedules/:id/finalize.  Payment tokens name
// the customer in holderId; customer tokens finalize their own holds.
func (h *ReservationHandler) Finalize(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body finalizeRequest
	if err := bindStrict(c, &body); err != nil {
		return writeError(c, err)
	}
	holder, err := actingHolder(c, body.HolderID)
	if err != nil {
		return writeError(c, err)
	}
	b, err := h.Finalizer.Finalize(c.Request().Context(), service.FinalizeRequest{
		ScheduleID: id,
		HoldIDs:    body.HoldIDs,
		HolderID:   holder,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingView(b))
}
