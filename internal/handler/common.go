// Package handler contains the echo handlers of the reservation API.
// Handlers decode and validate requests, call the service layer and map
// its domain errors onto HTTP statuses.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/middleware"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/service"
)

const maxBodyBytes = 64 << 10

var (
	errForbiddenHolder = errors.New("token may not act for another holder")
	errHolderRequired  = errors.New("holderId is required for payment tokens")
)

// requestError is a malformed or invalid request body.
type requestError struct {
	msg    string
	fields validation.Errors
}

func (e *requestError) Error() string { return e.msg }

// bindStrict decodes the JSON body into v, rejecting unknown fields and
// trailing data, then runs v's validation rules.
func bindStrict(c echo.Context, v validation.Validatable) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return &requestError{msg: "unreadable body"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &requestError{msg: fmt.Sprintf("malformed body: %v", err)}
	}
	if dec.More() {
		return &requestError{msg: "malformed body: trailing data"}
	}
	if err := v.Validate(); err != nil {
		var fields validation.Errors
		if errors.As(err, &fields) {
			return &requestError{msg: "validation failed", fields: fields}
		}
		return &requestError{msg: err.Error()}
	}
	return nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &requestError{msg: "invalid " + name}
	}
	return id, nil
}

// actingHolder resolves the holder a request acts for.  Customer tokens
// act as their own subject; payment tokens must name the holder.
func actingHolder(c echo.Context, requested string) (string, error) {
	sub := middleware.HolderID(c)
	if middleware.Role(c) == middleware.RolePayment {
		if requested == "" {
			return "", errHolderRequired
		}
		return requested, nil
	}
	if requested != "" && requested != sub {
		return "", errForbiddenHolder
	}
	return sub, nil
}

// writeError maps err onto a JSON error response.  Anything that is not a
// known domain error is logged and reported as a generic service error.
func writeError(c echo.Context, err error) error {
	var (
		reqErr      *requestError
		unavailable *service.SeatUnavailableError
	)
	switch {
	case errors.As(err, &reqErr):
		body := echo.Map{"error": "invalid_request", "message": reqErr.msg}
		if len(reqErr.fields) > 0 {
			body["details"] = reqErr.fields
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":            "seat_unavailable",
			"conflictingSeats": unavailable.Seats,
		})
	case errors.Is(err, errHolderRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, errForbiddenHolder):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not_owner", "message": err.Error()})
	}

	for _, m := range errorMap {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, echo.Map{"error": m.code, "message": err.Error()})
		}
	}
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "service_error"})
}

var errorMap = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrInvalidSeat, http.StatusBadRequest, "invalid_seat"},
	{service.ErrInvalidTTL, http.StatusBadRequest, "invalid_ttl"},
	{service.ErrInvalidHolder, http.StatusBadRequest, "invalid_request"},
	{service.ErrEmptyHoldSet, http.StatusBadRequest, "invalid_request"},
	{service.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{service.ErrHoldNotFound, http.StatusNotFound, "hold_not_found"},
	{service.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{service.ErrScheduleNotFound, http.StatusNotFound, "schedule_not_found"},
	{service.ErrPartialHoldSet, http.StatusConflict, "partial_hold_set"},
	{service.ErrScheduleClosed, http.StatusConflict, "schedule_closed"},
	{service.ErrScheduleDeparted, http.StatusConflict, "schedule_departed"},
	{service.ErrAlreadyConsumed, http.StatusGone, "already_consumed"},
	{service.ErrHoldExpired, http.StatusGone, "hold_expired"},
	{service.ErrHoldReleased, http.StatusGone, "hold_released"},
}
