/*
refund.go - Cancellation eligibility and refund computation

PURPOSE:
  A pure policy consulted by Cancel. Cancellation is permitted only within
  a fixed window (24 hours by default) of the booking's creation time, and
  only while the booking is pending or confirmed. When eligible, the
  refund is always the full total amount; partial or prorated refunds are
  intentionally not modeled.

  Evaluate is deterministic given the booking and the supplied time, and
  performs no side effects. It is the single source of truth for refund
  decisions; the ledger never re-derives eligibility elsewhere.
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCancellationWindow is the period after creation during which a
// booking may be cancelled.
const DefaultCancellationWindow = 24 * time.Hour

// RefundDecision is the outcome of a policy evaluation.
type RefundDecision struct {
	Eligible bool
	Amount   decimal.Decimal
}

// RefundPolicy computes cancellation eligibility and refund amounts.
type RefundPolicy struct {
	Window time.Duration
}

// NewRefundPolicy returns the standard 24-hour full-refund policy.
func NewRefundPolicy() RefundPolicy {
	return RefundPolicy{Window: DefaultCancellationWindow}
}

// Evaluate decides whether b may be cancelled at now, and for how much.
// A pending or confirmed booking inside the window is always eligible for
// a full refund; anything else is not eligible.
func (p RefundPolicy) Evaluate(b *Booking, now time.Time) RefundDecision {
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return RefundDecision{Eligible: false, Amount: decimal.Zero}
	}
	if now.Sub(b.CreatedAt) > p.Window {
		return RefundDecision{Eligible: false, Amount: decimal.Zero}
	}
	return RefundDecision{Eligible: true, Amount: b.TotalAmount}
}
