package booking_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/cargo-engine/booking"
)

func refundBooking(status booking.Status, createdAt time.Time) *booking.Booking {
	return &booking.Booking{
		ID:          "bk-1",
		Status:      status,
		TotalAmount: decimal.NewFromInt(2360),
		CreatedAt:   createdAt,
	}
}

func TestRefundPolicy_FullRefundInsideWindow(t *testing.T) {
	// GIVEN: A confirmed booking created 23h59m ago
	// WHEN: Evaluating cancellation
	// THEN: Eligible for the full total amount

	policy := booking.NewRefundPolicy()
	created := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	now := created.Add(23*time.Hour + 59*time.Minute)

	d := policy.Evaluate(refundBooking(booking.StatusConfirmed, created), now)
	assert.True(t, d.Eligible)
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(2360)), "refund is always the full amount")
}

func TestRefundPolicy_RejectedOutsideWindow(t *testing.T) {
	// GIVEN: A booking created 24h1m ago
	// WHEN: Evaluating cancellation
	// THEN: Not eligible, zero refund

	policy := booking.NewRefundPolicy()
	created := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	now := created.Add(24*time.Hour + time.Minute)

	d := policy.Evaluate(refundBooking(booking.StatusPending, created), now)
	assert.False(t, d.Eligible)
	assert.True(t, d.Amount.IsZero())
}

func TestRefundPolicy_ExactWindowBoundaryIsEligible(t *testing.T) {
	// Exactly 24h after creation is still inside the window.
	policy := booking.NewRefundPolicy()
	created := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)

	d := policy.Evaluate(refundBooking(booking.StatusPending, created), created.Add(24*time.Hour))
	assert.True(t, d.Eligible)
}

func TestRefundPolicy_OnlyPendingAndConfirmedEligible(t *testing.T) {
	policy := booking.NewRefundPolicy()
	created := time.Now()

	for _, status := range []booking.Status{booking.StatusInTransit, booking.StatusDelivered, booking.StatusCancelled} {
		d := policy.Evaluate(refundBooking(status, created), created.Add(time.Hour))
		assert.False(t, d.Eligible, "status %s must not be refundable", status)
	}
}

func TestRefundPolicy_CustomWindow(t *testing.T) {
	policy := booking.RefundPolicy{Window: time.Hour}
	created := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)

	assert.True(t, policy.Evaluate(refundBooking(booking.StatusPending, created), created.Add(30*time.Minute)).Eligible)
	assert.False(t, policy.Evaluate(refundBooking(booking.StatusPending, created), created.Add(2*time.Hour)).Eligible)
}
