package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BuyerCounts is the buyer's live position for one campaign product, read in
// a single round trip so the per-buyer limit check sees a consistent pair.
type BuyerCounts struct {
	Reserved  int64
	Confirmed int64
}

// CounterStore is the atomic counter ledger backing stock accounting. Every
// mutation is a single atomic primitive (or one pipelined batch); the store's
// atomicity is the sole serialization point for the oversell invariant, so
// implementations must not emulate these operations with read-modify-write.
//
// Counter state is ephemeral and re-derivable from the reservation log; keys
// expire at campaign end.
type CounterStore interface {
	// InitializeStock sets the available-stock counter to the stock limit
	// and aligns its expiry with the campaign end.
	InitializeStock(ctx context.Context, campaignID, productID uuid.UUID, limit int64, expiresAt time.Time) error
	// SetStock overwrites the available-stock counter, used when rebuilding
	// from the reservation log.
	SetStock(ctx context.Context, campaignID, productID uuid.UUID, value int64, expiresAt time.Time) error
	// DecrementStock atomically subtracts qty and returns the new value,
	// which may be negative; the caller compensates and rejects in that case.
	DecrementStock(ctx context.Context, campaignID, productID uuid.UUID, qty int64) (int64, error)
	// IncrementStock atomically returns qty units to availability.
	IncrementStock(ctx context.Context, campaignID, productID uuid.UUID, qty int64) (int64, error)
	// AvailableStock reads the counter. ok is false when the key is absent.
	AvailableStock(ctx context.Context, campaignID, productID uuid.UUID) (value int64, ok bool, err error)

	// BuyerCounts reads the buyer's reserved and confirmed counters in one
	// multi-read.
	BuyerCounts(ctx context.Context, campaignID, productID uuid.UUID, buyerID string) (BuyerCounts, error)
	// AddReserved increments the buyer's reserved counter and (re)sets its
	// expiry to the campaign end.
	AddReserved(ctx context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64, expiresAt time.Time) error
	// SubtractReserved backs out a reserved increment during compensation.
	SubtractReserved(ctx context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64) error
	// ConfirmReserved moves qty from reserved to confirmed in one atomic
	// batch so no intermediate state is externally observable. A non-zero
	// expiresAt aligns the confirmed counter with the campaign end; a zero
	// expiresAt leaves the key's current expiry untouched.
	ConfirmReserved(ctx context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64, expiresAt time.Time) error
	// ReleaseReserved returns qty to available stock and decrements the
	// buyer's reserved counter in one atomic batch.
	ReleaseReserved(ctx context.Context, campaignID, productID uuid.UUID, buyerID string, qty int64) error
}
