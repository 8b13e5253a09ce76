/*
Package booking implements the booking lifecycle engine.

PURPOSE:
  A booking reserves a weight allotment against a capacity slot, is paid
  for, and is tracked through delivery or cancellation. This package owns
  the booking record, its status state machine, the booking-number
  generator, the refund policy, and the append-only tracking log. It
  orchestrates the capacity ledger but never mutates slots directly.

STATE MACHINE:
  pending -> confirmed -> in_transit -> delivered   (terminal)
  pending | confirmed -> cancelled                  (terminal)

  No transition skips backward or revisits a terminal state. All
  state-mutating operations on one booking are serialized; operations on
  different bookings proceed fully in parallel.

CHARGES:
  base_charge = weight_kg * slot price_per_kg
  tax_amount  = base_charge * 0.18
  total       = base_charge + tax_amount
  All arithmetic uses decimals; the price comes from the slot snapshot,
  never the commodity category's live rate.

SEE ALSO:
  - ledger.go: Create/Confirm/AdvanceStatus/Cancel orchestration
  - refund.go: Cancellation window policy
  - tracking.go: Append-only event history
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cargo-engine/capacity"
	"github.com/warp/cargo-engine/catalog"
)

// TaxRate is the fixed GST rate applied to the base charge.
var TaxRate = decimal.NewFromFloat(0.18)

// BookingID identifies a booking record.
type BookingID string

// Number is the human-readable booking identifier, e.g. RPB-20250127-0001.
type Number string

// Status is the booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// transitions is the complete set of legal status moves.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Party is one side of the shipment (sender or receiver).
type Party struct {
	Name    string
	Phone   string
	Address string
}

// RefundStatus tracks the refund side of a cancellation.
type RefundStatus string

const (
	RefundProcessed RefundStatus = "processed"
)

// Booking is the reservation record. Route, commodity, weight, and charges
// are immutable once created; only status and cancellation fields mutate.
type Booking struct {
	ID     BookingID
	Number Number
	UserID string

	Sender   Party
	Receiver Party

	FromStation catalog.StationID
	ToStation   catalog.StationID
	Category    catalog.CategoryID

	// SlotID records which slot holds this booking's capacity commitment,
	// so cancellation can return the weight to the right pool.
	SlotID capacity.SlotID

	WeightKg      decimal.Decimal
	DeclaredValue decimal.Decimal
	Description   string

	BaseCharge  decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time

	CancelledAt        *time.Time
	CancellationReason string
	RefundAmount       *decimal.Decimal
	RefundStatus       RefundStatus
}

// Charges holds the computed price breakdown for a booking.
type Charges struct {
	Base  decimal.Decimal
	Tax   decimal.Decimal
	Total decimal.Decimal
}

// ComputeCharges prices a weight at a per-kg rate with the fixed tax rate.
func ComputeCharges(weightKg, pricePerKg decimal.Decimal) Charges {
	base := weightKg.Mul(pricePerKg)
	tax := base.Mul(TaxRate)
	return Charges{Base: base, Tax: tax, Total: base.Add(tax)}
}

// PaymentRef is the opaque confirmation of the external payment step.
// The engine records it; it never talks to a gateway.
type PaymentRef struct {
	Method        string
	TransactionID string
	Amount        decimal.Decimal
	PaidAt        time.Time
}

// CreateRequest carries everything needed to create a booking.
type CreateRequest struct {
	UserID   string
	Sender   Party
	Receiver Party

	FromStation catalog.StationID
	ToStation   catalog.StationID
	Category    catalog.CategoryID

	// Date is the earliest acceptable slot date. Zero means today.
	Date time.Time

	WeightKg      decimal.Decimal
	DeclaredValue decimal.Decimal
	Description   string
}

// Validate checks required fields before any side effect.
func (r CreateRequest) Validate() error {
	switch {
	case r.UserID == "":
		return &ValidationError{Field: "user_id", Message: "required"}
	case r.Sender.Name == "":
		return &ValidationError{Field: "sender_name", Message: "required"}
	case r.Sender.Phone == "":
		return &ValidationError{Field: "sender_phone", Message: "required"}
	case r.Sender.Address == "":
		return &ValidationError{Field: "sender_address", Message: "required"}
	case r.Receiver.Name == "":
		return &ValidationError{Field: "receiver_name", Message: "required"}
	case r.Receiver.Phone == "":
		return &ValidationError{Field: "receiver_phone", Message: "required"}
	case r.Receiver.Address == "":
		return &ValidationError{Field: "receiver_address", Message: "required"}
	case r.FromStation == "":
		return &ValidationError{Field: "from_station_id", Message: "required"}
	case r.ToStation == "":
		return &ValidationError{Field: "to_station_id", Message: "required"}
	case r.FromStation == r.ToStation:
		return &ValidationError{Field: "to_station_id", Message: "must differ from origin"}
	case r.Category == "":
		return &ValidationError{Field: "commodity_category_id", Message: "required"}
	case !r.WeightKg.IsPositive():
		return &ValidationError{Field: "weight_kg", Message: "must be greater than zero"}
	case r.DeclaredValue.IsNegative():
		return &ValidationError{Field: "declared_value", Message: "must not be negative"}
	}
	return nil
}
