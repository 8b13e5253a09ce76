/*
ledger.go - Booking lifecycle orchestration

PURPOSE:
  The Ledger drives every booking through its state machine and
  coordinates the surrounding components: a Create reserves capacity,
  prices the shipment, persists the record with its initial tracking
  event, and emits a notification request; a Cancel consults the refund
  policy, commits the terminal state, and returns the weight to the
  capacity pool.

FAILURE SEMANTICS:
  Multi-step operations leave no partial externally-observable state.
  Create compensates a successful capacity reservation if the record
  cannot be persisted. Cancel applies no mutation until eligibility is
  confirmed; the compare-and-set cancellation write is the commit point.
  Notification emission is always non-fatal: the primary operation is
  already committed, so an Emit failure is logged and swallowed.

SERIALIZATION:
  State-mutating operations on one booking are serialized through a
  striped lock keyed by booking ID. Operations on different bookings run
  fully in parallel. The store's conditional status updates back this up
  at the persistence layer.

SEE ALSO:
  - refund.go: Cancellation policy consulted by Cancel
  - store.go: Atomicity and compare-and-set contracts
  - capacity/ledger.go: Reserve/Release invariants
*/
package booking

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/cargo-engine/capacity"
	"github.com/warp/cargo-engine/catalog"
)

// lockStripes is the size of the per-booking lock table. Collisions only
// serialize unrelated bookings occasionally; correctness never depends on
// stripe uniqueness.
const lockStripes = 64

// Ledger owns booking records and the status state machine.
type Ledger struct {
	store    Store
	tracking TrackingStore
	capacity *capacity.Ledger
	catalog  *catalog.Catalog
	numbers  *NumberGenerator
	refunds  RefundPolicy
	notify   Dispatcher
	log      *zap.Logger
	now      func() time.Time

	locks       [lockStripes]sync.Mutex
	seedNumbers sync.Once
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock injects a time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithRefundPolicy overrides the default 24-hour policy.
func WithRefundPolicy(p RefundPolicy) Option {
	return func(l *Ledger) { l.refunds = p }
}

// NewLedger wires a booking ledger. The dispatcher may be nil, in which
// case notifications go to the structured log.
func NewLedger(store Store, tracking TrackingStore, cap *capacity.Ledger, cat *catalog.Catalog, notify Dispatcher, log *zap.Logger, opts ...Option) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{
		store:    store,
		tracking: tracking,
		capacity: cap,
		catalog:  cat,
		refunds:  NewRefundPolicy(),
		notify:   notify,
		log:      log,
		now:      time.Now,
	}
	if l.notify == nil {
		l.notify = &LogDispatcher{Log: log}
	}
	for _, opt := range opts {
		opt(l)
	}
	// Built after the options so the generator shares the ledger's clock.
	l.numbers = NewNumberGeneratorAt(l.now)
	return l
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates the request, reserves capacity, prices the shipment,
// and persists the booking in status pending with its initial tracking
// event. Capacity failures propagate unchanged and no booking is created.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (Booking, error) {
	if err := req.Validate(); err != nil {
		return Booking{}, err
	}

	origin, err := l.catalog.ActiveStation(req.FromStation)
	if err != nil {
		return Booking{}, fmt.Errorf("origin station: %w", err)
	}
	if _, err := l.catalog.ActiveStation(req.ToStation); err != nil {
		return Booking{}, fmt.Errorf("destination station: %w", err)
	}
	if _, err := l.catalog.ActiveCategory(req.Category); err != nil {
		return Booking{}, fmt.Errorf("commodity category: %w", err)
	}

	date := req.Date
	if date.IsZero() {
		date = l.now()
	}

	ref, err := l.capacity.Reserve(ctx, req.FromStation, req.ToStation, req.Category, date, req.WeightKg)
	if err != nil {
		return Booking{}, err
	}

	// The generator's day sequence lives in memory; resume it from the
	// store on the first Create so a restart never reissues a persisted
	// number.
	l.seedNumbers.Do(func() {
		day := l.now().UTC().Format("20060102")
		last, err := l.store.LatestNumberForDay(ctx, day)
		if err != nil {
			l.log.Warn("failed to seed booking numbers from store", zap.Error(err))
			return
		}
		if last != "" {
			l.numbers.Seed(last)
		}
	})

	charges := ComputeCharges(req.WeightKg, ref.PricePerKg)
	now := l.now()
	b := Booking{
		ID:            BookingID(uuid.NewString()),
		Number:        l.numbers.Next(),
		UserID:        req.UserID,
		Sender:        req.Sender,
		Receiver:      req.Receiver,
		FromStation:   req.FromStation,
		ToStation:     req.ToStation,
		Category:      req.Category,
		SlotID:        ref.SlotID,
		WeightKg:      req.WeightKg,
		DeclaredValue: req.DeclaredValue,
		Description:   req.Description,
		BaseCharge:    charges.Base,
		TaxAmount:     charges.Tax,
		TotalAmount:   charges.Total,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	initial := newEvent(b.ID, StatusPending, origin.Code, "Booking created and awaiting confirmation", req.UserID, now)
	if err := l.store.InsertBooking(ctx, b, initial); err != nil {
		// The reservation is committed but the record is not: put the
		// weight back so the failure leaves no observable state.
		if relErr := l.capacity.Release(ctx, ref, req.WeightKg); relErr != nil {
			l.log.Error("failed to release capacity after insert failure",
				zap.String("slot_id", string(ref.SlotID)),
				zap.Error(relErr),
			)
		}
		return Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	l.log.Info("booking created",
		zap.String("booking_id", string(b.ID)),
		zap.String("booking_number", string(b.Number)),
		zap.String("weight_kg", b.WeightKg.String()),
		zap.String("total_amount", b.TotalAmount.String()),
	)

	l.emit(ctx, NotificationRequest{
		UserID:    b.UserID,
		Title:     "Booking Created",
		Message:   fmt.Sprintf("Your booking %s has been created successfully.", b.Number),
		Type:      NotifyBooking,
		BookingID: b.ID,
	})
	return b, nil
}

// =============================================================================
// CONFIRM
// =============================================================================

// Confirm moves a pending booking to confirmed after the external payment
// step reports success. The payment reference is recorded if present.
func (l *Ledger) Confirm(ctx context.Context, id BookingID, payment *PaymentRef) (Booking, error) {
	unlock := l.lockBooking(id)
	defer unlock()

	b, err := l.store.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.Status != StatusPending {
		return Booking{}, &InvalidTransitionError{BookingID: id, From: b.Status, To: StatusConfirmed}
	}

	now := l.now()
	ev := newEvent(id, StatusConfirmed, "", "Payment received, booking confirmed", "", now)
	if err := l.store.UpdateStatus(ctx, id, StatusPending, StatusConfirmed, now, ev); err != nil {
		return Booking{}, err
	}
	if payment != nil {
		p := *payment
		if p.PaidAt.IsZero() {
			p.PaidAt = now
		}
		if p.Amount.IsZero() {
			p.Amount = b.TotalAmount
		}
		if err := l.store.SavePayment(ctx, id, p); err != nil {
			// The confirmation is committed; a lost payment row is an
			// audit gap, not a state-machine violation.
			l.log.Error("failed to record payment reference",
				zap.String("booking_id", string(id)), zap.Error(err))
		}
	}

	b.Status = StatusConfirmed
	b.UpdatedAt = now

	l.log.Info("booking confirmed", zap.String("booking_id", string(id)))
	l.emit(ctx, NotificationRequest{
		UserID:    b.UserID,
		Title:     "Payment Successful",
		Message:   fmt.Sprintf("Payment of %s received for booking %s", b.TotalAmount.StringFixed(2), b.Number),
		Type:      NotifyPayment,
		BookingID: b.ID,
	})
	return b, nil
}

// =============================================================================
// ADVANCE STATUS
// =============================================================================

// AdvanceStatus moves a booking along the shipment path. Only
// confirmed -> in_transit and in_transit -> delivered are permitted; this
// operation belongs to the operations collaborator, not the shipper.
func (l *Ledger) AdvanceStatus(ctx context.Context, id BookingID, to Status, location, description, actor string) (TrackingEvent, error) {
	if to != StatusInTransit && to != StatusDelivered {
		return TrackingEvent{}, &InvalidTransitionError{BookingID: id, To: to}
	}
	if description == "" {
		return TrackingEvent{}, &ValidationError{Field: "description", Message: "required"}
	}

	unlock := l.lockBooking(id)
	defer unlock()

	b, err := l.store.GetBooking(ctx, id)
	if err != nil {
		return TrackingEvent{}, err
	}
	if !CanTransition(b.Status, to) {
		return TrackingEvent{}, &InvalidTransitionError{BookingID: id, From: b.Status, To: to}
	}

	now := l.now()
	ev := newEvent(id, to, location, description, actor, now)
	if err := l.store.UpdateStatus(ctx, id, b.Status, to, now, ev); err != nil {
		return TrackingEvent{}, err
	}

	l.log.Info("booking status advanced",
		zap.String("booking_id", string(id)),
		zap.String("from", string(b.Status)),
		zap.String("to", string(to)),
	)
	l.emit(ctx, NotificationRequest{
		UserID:    b.UserID,
		Title:     "Shipment Update",
		Message:   fmt.Sprintf("Booking %s is now %s.", b.Number, to),
		Type:      NotifyStatus,
		BookingID: b.ID,
	})
	return ev, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// CancelResult reports the refund granted by a successful cancellation.
type CancelResult struct {
	RefundAmount decimal.Decimal
}

// Cancel cancels a pending or confirmed booking if the refund policy
// allows it, releases the reserved capacity, and records the refund. On
// policy rejection nothing mutates.
func (l *Ledger) Cancel(ctx context.Context, id BookingID, reason, requestingUser string) (CancelResult, error) {
	if reason == "" {
		return CancelResult{}, &ValidationError{Field: "reason", Message: "required"}
	}

	unlock := l.lockBooking(id)
	defer unlock()

	b, err := l.store.GetBooking(ctx, id)
	if err != nil {
		return CancelResult{}, err
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return CancelResult{}, &InvalidTransitionError{BookingID: id, From: b.Status, To: StatusCancelled}
	}

	now := l.now()
	decision := l.refunds.Evaluate(&b, now)
	if !decision.Eligible {
		return CancelResult{}, &WindowExpiredError{BookingID: id, CreatedAt: b.CreatedAt, Window: l.refunds.Window}
	}

	cancellation := Cancellation{
		At:           now,
		Reason:       reason,
		RefundAmount: decision.Amount,
		RefundStatus: RefundProcessed,
	}
	ev := newEvent(id, StatusCancelled, "", "Booking cancelled: "+reason, requestingUser, now)
	if err := l.store.MarkCancelled(ctx, id, b.Status, cancellation, ev); err != nil {
		return CancelResult{}, err
	}

	// The cancellation is committed; return the weight to the pool. A
	// release failure leaks headroom rather than overselling, so it is
	// logged and surfaced but cannot un-cancel the booking.
	ref := capacity.SlotRef{SlotID: b.SlotID}
	if err := l.capacity.Release(ctx, ref, b.WeightKg); err != nil {
		l.log.Error("failed to release capacity for cancelled booking",
			zap.String("booking_id", string(id)),
			zap.String("slot_id", string(b.SlotID)),
			zap.Error(err),
		)
	}

	l.log.Info("booking cancelled",
		zap.String("booking_id", string(id)),
		zap.String("refund_amount", decision.Amount.String()),
	)
	l.emit(ctx, NotificationRequest{
		UserID:    b.UserID,
		Title:     "Booking Cancelled",
		Message:   fmt.Sprintf("Your booking %s has been cancelled. A refund of %s will be processed.", b.Number, decision.Amount.StringFixed(2)),
		Type:      NotifyCancellation,
		BookingID: b.ID,
	})
	return CancelResult{RefundAmount: decision.Amount}, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a booking by ID.
func (l *Ledger) Get(ctx context.Context, id BookingID) (Booking, error) {
	return l.store.GetBooking(ctx, id)
}

// GetByNumber returns a booking by its human-readable number.
func (l *Ledger) GetByNumber(ctx context.Context, n Number) (Booking, error) {
	return l.store.GetBookingByNumber(ctx, n)
}

// ListByUser returns a user's bookings, newest first, excluding cancelled
// ones unless includeCancelled is set.
func (l *Ledger) ListByUser(ctx context.Context, userID string, includeCancelled bool) ([]Booking, error) {
	return l.store.ListBookingsByUser(ctx, userID, includeCancelled)
}

// TrackingEvents returns a booking's event history. The booking must
// exist; a freshly created booking always has at least its initial event.
func (l *Ledger) TrackingEvents(ctx context.Context, id BookingID, order EventOrder) ([]TrackingEvent, error) {
	if _, err := l.store.GetBooking(ctx, id); err != nil {
		return nil, err
	}
	return l.tracking.ListEvents(ctx, id, order)
}

// =============================================================================
// INTERNAL
// =============================================================================

// emit hands a notification request to the dispatcher. Never fatal.
func (l *Ledger) emit(ctx context.Context, n NotificationRequest) {
	if err := l.notify.Emit(ctx, n); err != nil {
		l.log.Warn("notification emit failed",
			zap.String("booking_id", string(n.BookingID)),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
}

// lockBooking serializes state-mutating operations per booking ID.
func (l *Ledger) lockBooking(id BookingID) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	m := &l.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
