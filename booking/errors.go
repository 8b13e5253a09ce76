/*
errors.go - Centralized error types for the booking engine

ERROR CATEGORIES:
  1. Validation errors - rejected before any side effect
  2. Transition errors - state-machine violations, no mutation applied
  3. Policy errors - cancellation window expired, no mutation applied
  4. Not-found errors - unknown booking IDs or numbers

Capacity failures (no matching slot, insufficient capacity) are defined in
the capacity package and propagate through Create unchanged.
*/
package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/cargo-engine/capacity"
	"github.com/warp/cargo-engine/catalog"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for missing or invalid input fields.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when a status change would violate
	// the state machine. The booking is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrCancellationWindowExpired is returned when the refund policy
	// rejects a cancellation. The booking is left unchanged.
	ErrCancellationWindowExpired = errors.New("cancellation window expired")

	// ErrNotFound is returned for unknown booking IDs or numbers.
	ErrNotFound = errors.New("booking not found")

	// ErrDuplicateNumber is returned by stores when a booking number
	// collides. The generator makes this unreachable in practice; the
	// store enforces it anyway.
	ErrDuplicateNumber = errors.New("duplicate booking number")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidTransitionError reports the attempted status move.
type InvalidTransitionError struct {
	BookingID BookingID
	From      Status
	To        Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %s: invalid transition %s -> %s", e.BookingID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// WindowExpiredError reports when the booking was created and how large
// the cancellation window is.
type WindowExpiredError struct {
	BookingID BookingID
	CreatedAt time.Time
	Window    time.Duration
}

func (e *WindowExpiredError) Error() string {
	return fmt.Sprintf("booking %s: cancellation window of %s expired (created %s)",
		e.BookingID, e.Window, e.CreatedAt.Format(time.RFC3339))
}

func (e *WindowExpiredError) Unwrap() error { return ErrCancellationWindowExpired }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input
// or a rejected-but-well-formed request, as opposed to an engine fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrCancellationWindowExpired) ||
		errors.Is(err, capacity.ErrInsufficientCapacity) ||
		errors.Is(err, capacity.ErrNoMatchingSlot) ||
		errors.Is(err, catalog.ErrInactive)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, capacity.ErrSlotNotFound) ||
		errors.Is(err, catalog.ErrStationNotFound) ||
		errors.Is(err, catalog.ErrCategoryNotFound)
}
