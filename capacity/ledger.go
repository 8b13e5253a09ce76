package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/cargo-engine/catalog"
)

// =============================================================================
// LEDGER - Atomic reserve/release of weight against slots
// =============================================================================

// Ledger coordinates slot selection and atomic capacity accounting.
// The hard invariant (booked never exceeds total) lives in the Store's
// conditional updates; the ledger adds deterministic slot selection and
// retry across candidates when a claim loses a race.
type Ledger struct {
	store Store
	log   *zap.Logger
}

// NewLedger creates a capacity ledger over store.
func NewLedger(store Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, log: log}
}

// Reserve claims weightKg against the earliest matching slot with enough
// headroom. Candidates are ordered by date ascending, then slot ID
// ascending. Returns ErrNoMatchingSlot when no slot exists for the route
// and commodity at all, and ErrInsufficientCapacity when slots exist but
// none can satisfy the weight. Slots dated before onOrAfter are treated as
// nonexistent: a route whose only slots are in the past reports
// ErrNoMatchingSlot, not ErrInsufficientCapacity.
func (l *Ledger) Reserve(ctx context.Context, from, to catalog.StationID, category catalog.CategoryID, onOrAfter time.Time, weightKg decimal.Decimal) (SlotRef, error) {
	if !weightKg.IsPositive() {
		return SlotRef{}, fmt.Errorf("reserve: weight must be positive, got %s", weightKg)
	}

	candidates, err := l.store.FindSlots(ctx, from, to, category, day(onOrAfter))
	if err != nil {
		return SlotRef{}, fmt.Errorf("find slots: %w", err)
	}
	if len(candidates) == 0 {
		return SlotRef{}, ErrNoMatchingSlot
	}

	best := decimal.Zero
	for _, slot := range candidates {
		if avail := slot.AvailableKg(); avail.GreaterThan(best) {
			best = avail
		}
		if slot.AvailableKg().LessThan(weightKg) {
			continue
		}

		// The snapshot said there is room; the store re-checks under the
		// slot's atomicity scope. A race loss surfaces as insufficient
		// capacity and we move on to the next candidate.
		err := l.store.ReserveCapacity(ctx, slot.ID, weightKg)
		if errors.Is(err, ErrInsufficientCapacity) {
			continue
		}
		if err != nil {
			return SlotRef{}, fmt.Errorf("reserve slot %s: %w", slot.ID, err)
		}

		l.log.Debug("capacity reserved",
			zap.String("slot_id", string(slot.ID)),
			zap.String("weight_kg", weightKg.String()),
		)
		return SlotRef{SlotID: slot.ID, Date: slot.Date, PricePerKg: slot.PricePerKg}, nil
	}

	return SlotRef{}, &InsufficientCapacityError{
		Requested:     weightKg,
		BestAvailable: best,
		Candidates:    len(candidates),
	}
}

// Release returns weightKg to the slot's pool, floored at zero. The
// booking ledger guarantees at most one Release per successful Reserve
// through its state machine.
func (l *Ledger) Release(ctx context.Context, ref SlotRef, weightKg decimal.Decimal) error {
	if err := l.store.ReleaseCapacity(ctx, ref.SlotID, weightKg); err != nil {
		return fmt.Errorf("release slot %s: %w", ref.SlotID, err)
	}
	l.log.Debug("capacity released",
		zap.String("slot_id", string(ref.SlotID)),
		zap.String("weight_kg", weightKg.String()),
	)
	return nil
}

// Availability returns matching slots on or after date that still have
// headroom, in the same deterministic order Reserve uses.
func (l *Ledger) Availability(ctx context.Context, from, to catalog.StationID, category catalog.CategoryID, onOrAfter time.Time) ([]Slot, error) {
	slots, err := l.store.FindSlots(ctx, from, to, category, day(onOrAfter))
	if err != nil {
		return nil, fmt.Errorf("find slots: %w", err)
	}
	open := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.AvailableKg().IsPositive() {
			open = append(open, s)
		}
	}
	return open, nil
}

// GetSlot returns a single slot by ID.
func (l *Ledger) GetSlot(ctx context.Context, id SlotID) (Slot, error) {
	return l.store.GetSlot(ctx, id)
}

// =============================================================================
// ADMINISTRATIVE PROVISIONING
// =============================================================================

// ProvisionSlot creates a new capacity slot. The price snapshot is taken
// now; later category rate changes do not touch it.
func (l *Ledger) ProvisionSlot(ctx context.Context, from, to catalog.StationID, category catalog.CategoryID, date time.Time, totalKg, pricePerKg decimal.Decimal) (Slot, error) {
	if !totalKg.IsPositive() || !pricePerKg.IsPositive() {
		return Slot{}, ErrInvalidSlot
	}

	now := time.Now().UTC()
	slot := Slot{
		ID:          SlotID(uuid.NewString()),
		FromStation: from,
		ToStation:   to,
		Category:    category,
		Date:        day(date),
		TotalKg:     totalKg,
		BookedKg:    decimal.Zero,
		PricePerKg:  pricePerKg,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.InsertSlot(ctx, slot); err != nil {
		return Slot{}, fmt.Errorf("insert slot: %w", err)
	}

	l.log.Info("slot provisioned",
		zap.String("slot_id", string(slot.ID)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("total_kg", totalKg.String()),
	)
	return slot, nil
}

// UpdateSlotCapacity resizes and reprices a slot. Capacity can never be
// reduced below the weight already booked against it.
func (l *Ledger) UpdateSlotCapacity(ctx context.Context, id SlotID, totalKg, pricePerKg decimal.Decimal) error {
	if !totalKg.IsPositive() || !pricePerKg.IsPositive() {
		return ErrInvalidSlot
	}
	return l.store.UpdateSlotCapacity(ctx, id, totalKg, pricePerKg)
}

// day truncates to UTC midnight; slots are day-granular.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
