package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Cancellation groups the fields written when a booking is cancelled.
type Cancellation struct {
	At           time.Time
	Reason       string
	RefundAmount decimal.Decimal
	RefundStatus RefundStatus
}

// Store persists booking records.
//
// ATOMICITY CONTRACT:
//   Operations that write both the booking row and a tracking event do so
//   atomically: either both land or neither does. SQLite wraps them in a
//   transaction; the memory store holds a single lock across both writes.
//
// CONCURRENCY CONTRACT:
//   UpdateStatus and MarkCancelled are compare-and-set on the current
//   status: they mutate only if the booking is still in the expected
//   state, and return ErrInvalidTransition otherwise. This closes the
//   race between two state-mutating operations on the same booking even
//   if a caller bypasses the ledger's per-booking serialization.
type Store interface {
	// InsertBooking persists a new booking together with its initial
	// tracking event. Fails with ErrDuplicateNumber on a booking-number
	// collision.
	InsertBooking(ctx context.Context, b Booking, initial TrackingEvent) error

	// GetBooking returns a booking by ID, or ErrNotFound.
	GetBooking(ctx context.Context, id BookingID) (Booking, error)

	// GetBookingByNumber returns a booking by its number, or ErrNotFound.
	GetBookingByNumber(ctx context.Context, n Number) (Booking, error)

	// LatestNumberForDay returns the highest booking number issued on the
	// given day (YYYYMMDD), compared by numeric suffix, or "" if none.
	// Seeds the number generator after a restart.
	LatestNumberForDay(ctx context.Context, day string) (Number, error)

	// ListBookingsByUser returns a user's bookings, newest first.
	// Cancelled bookings are excluded unless includeCancelled is set.
	ListBookingsByUser(ctx context.Context, userID string, includeCancelled bool) ([]Booking, error)

	// UpdateStatus atomically moves a booking from expected status `from`
	// to `to`, stamping UpdatedAt and appending ev.
	UpdateStatus(ctx context.Context, id BookingID, from, to Status, at time.Time, ev TrackingEvent) error

	// MarkCancelled atomically moves a booking from `from` to cancelled,
	// writes the cancellation fields, and appends ev.
	MarkCancelled(ctx context.Context, id BookingID, from Status, c Cancellation, ev TrackingEvent) error

	// SavePayment records the external payment confirmation for a booking.
	SavePayment(ctx context.Context, id BookingID, p PaymentRef) error
}
