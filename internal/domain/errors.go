package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrProductNotInCampaign = errors.New("product not in campaign")
	ErrCampaignNotStarted   = errors.New("campaign has not started")
	ErrCampaignEnded        = errors.New("campaign has ended")
	// ErrEarlyAccessRestricted is the sentinel behind EarlyAccessError so
	// callers can match with errors.Is without caring about the payload.
	ErrEarlyAccessRestricted = errors.New("early access restricted")
	ErrUserLimitExceeded     = errors.New("per-buyer purchase limit exceeded")
	ErrSoldOut               = errors.New("sold out")
	ErrReservationNotFound   = errors.New("reservation not found")
	// ErrReservationAlreadyProcessed guards terminal states: the loser of a
	// confirm/release race observes it and must treat it as harmless.
	ErrReservationAlreadyProcessed = errors.New("reservation already processed")
	// ErrLedgerUnavailable means the counter store could not be reached.
	// Reserve fails fast on it; correctness is never traded for availability
	// by falling back to in-process counting.
	ErrLedgerUnavailable = errors.New("stock ledger unavailable")
	ErrInvalidInput      = errors.New("invalid input")
)

// EarlyAccessError rejects a reserve attempt made inside the early-access
// window by a buyer whose tier is not eligible. MinutesUntilOpen tells the
// caller how long until the public start.
type EarlyAccessError struct {
	MinutesUntilOpen int
}

func (e *EarlyAccessError) Error() string {
	return fmt.Sprintf("early access restricted: public sale opens in %d minutes", e.MinutesUntilOpen)
}

func (e *EarlyAccessError) Unwrap() error {
	return ErrEarlyAccessRestricted
}
