package capacity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cargo-engine/catalog"
)

// Store persists capacity slots.
//
// CONCURRENCY CONTRACT:
//   ReserveCapacity and ReleaseCapacity are atomic per slot. The
//   check-then-increment inside ReserveCapacity must be a single unit:
//   implementations use a conditional update (or an equivalent
//   mutual-exclusion scope), never a read followed by an unguarded write.
type Store interface {
	// InsertSlot persists a new slot.
	InsertSlot(ctx context.Context, s Slot) error

	// GetSlot returns a slot by ID, or ErrSlotNotFound.
	GetSlot(ctx context.Context, id SlotID) (Slot, error)

	// FindSlots returns all slots for the route and commodity with a date
	// on or after onOrAfter, ordered by date ascending then ID ascending.
	FindSlots(ctx context.Context, from, to catalog.StationID, category catalog.CategoryID, onOrAfter time.Time) ([]Slot, error)

	// ReserveCapacity atomically increments the slot's booked weight iff
	// booked + weight <= total. Returns ErrInsufficientCapacity when the
	// condition fails, ErrSlotNotFound when the slot is unknown.
	ReserveCapacity(ctx context.Context, id SlotID, weightKg decimal.Decimal) error

	// ReleaseCapacity atomically decrements the slot's booked weight,
	// floored at zero.
	ReleaseCapacity(ctx context.Context, id SlotID, weightKg decimal.Decimal) error

	// UpdateSlotCapacity changes a slot's total capacity and price.
	// Fails with ErrCapacityBelowBooked if totalKg < booked weight.
	UpdateSlotCapacity(ctx context.Context, id SlotID, totalKg, pricePerKg decimal.Decimal) error
}
