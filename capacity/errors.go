package capacity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoMatchingSlot is returned when no slot exists at all for the
	// requested route and commodity on or after the requested date.
	ErrNoMatchingSlot = errors.New("no matching capacity slot")

	// ErrInsufficientCapacity is returned when matching slots exist but
	// none has enough headroom for the requested weight.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrSlotNotFound is returned when a slot ID is unknown.
	ErrSlotNotFound = errors.New("capacity slot not found")

	// ErrCapacityBelowBooked is returned when an administrator tries to
	// shrink a slot's total capacity below its currently booked weight.
	ErrCapacityBelowBooked = errors.New("total capacity below booked weight")

	// ErrInvalidSlot is returned when a slot is provisioned with
	// non-positive capacity or price.
	ErrInvalidSlot = errors.New("invalid slot definition")
)

// InsufficientCapacityError reports how far short the best candidate fell.
type InsufficientCapacityError struct {
	Requested     decimal.Decimal
	BestAvailable decimal.Decimal
	Candidates    int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: requested %s kg, best available %s kg across %d slot(s)",
		e.Requested, e.BestAvailable, e.Candidates)
}

func (e *InsufficientCapacityError) Unwrap() error {
	return ErrInsufficientCapacity
}
