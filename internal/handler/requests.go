package handler

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const maxSeatsPerHold = 50

// holdRequest is the body of POST /v1/schedules/:id/holds.
type holdRequest struct {
	SeatNumbers []int  `json:"seatNumbers"`
	TTLSeconds  *int   `json:"ttlSeconds"`
	HolderID    string `json:"holderId"`
}

func (r holdRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SeatNumbers,
			validation.Required,
			validation.Length(1, maxSeatsPerHold),
			validation.Each(validation.Required, validation.Min(1)),
		),
		validation.Field(&r.TTLSeconds, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.HolderID, validation.Length(0, 128)),
	)
}

// finalizeRequest is the body of POST /v1/schedules/:id/finalize.
type finalizeRequest struct {
	HoldIDs  []string `json:"holdIds"`
	HolderID string   `json:"holderId"`
}

func (r finalizeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.HoldIDs,
			validation.Required,
			validation.Length(1, maxSeatsPerHold),
			validation.Each(validation.Required, validation.By(isUUID)),
		),
		validation.Field(&r.HolderID, validation.Length(0, 128)),
	)
}

func isUUID(v interface{}) error {
	s, _ := v.(string)
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid hold id")
	}
	return nil
}
