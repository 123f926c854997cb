package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a stock hold.
// ACTIVE is the single open state; COMPLETED and EXPIRED are terminal and
// mutually exclusive. Every transition check in confirm, release, and the
// cleanup sweep tests against the same ACTIVE constant.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCompleted ReservationStatus = "COMPLETED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// Reservation is a time-limited hold on a quantity of campaign stock for one
// buyer. Once terminal it is an immutable audit record.
type Reservation struct {
	ReservationID uuid.UUID
	CampaignID    uuid.UUID
	ProductID     uuid.UUID
	BuyerID       string
	Quantity      int
	Status        ReservationStatus
	CreatedAt     time.Time
	ExpiresAt     time.Time
	CompletedAt   *time.Time
	ExpiredAt     *time.Time
}

// Terminal reports whether the reservation has reached a final state.
func (r Reservation) Terminal() bool {
	return r.Status == ReservationCompleted || r.Status == ReservationExpired
}
