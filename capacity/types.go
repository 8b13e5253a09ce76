/*
Package capacity owns cargo capacity slots and the reservation invariant.

PURPOSE:
  A slot offers a finite weight allotment for one (from, to, commodity,
  date) tuple. The ledger reserves and releases weight against slots and
  guarantees that committed weight never exceeds total capacity, even
  under concurrent reservation attempts against the same slot.

THE INVARIANT:
  0 <= booked_capacity_kg <= total_capacity_kg, always.

  The check-then-increment is a single atomic unit per slot. When two
  requests race for the same remaining headroom and only one can be
  satisfied, exactly one wins; the other fails with insufficient capacity.
  This is enforced by the Store's conditional ReserveCapacity operation,
  never by a read followed by an unguarded write.

SLOT SELECTION:
  Reserve considers slots on or after the requested date and picks the
  earliest by date, tie-broken by slot ID ascending. If that slot loses a
  race while being claimed, the next candidate is tried.

SEE ALSO:
  - ledger.go: Reserve/Release and slot provisioning
  - store.go: Persistence interface with atomic conditional updates
*/
package capacity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cargo-engine/catalog"
)

// SlotID identifies a capacity slot.
type SlotID string

// Slot is offered capacity for one route+commodity+date.
// BookedKg is mutated exclusively through Store.ReserveCapacity and
// Store.ReleaseCapacity.
type Slot struct {
	ID          SlotID
	FromStation catalog.StationID
	ToStation   catalog.StationID
	Category    catalog.CategoryID
	Date        time.Time       // day granularity, UTC midnight
	TotalKg     decimal.Decimal // > 0
	BookedKg    decimal.Decimal // 0 <= BookedKg <= TotalKg
	PricePerKg  decimal.Decimal // snapshot at provisioning time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailableKg is the derived headroom. Never persisted.
func (s Slot) AvailableKg() decimal.Decimal {
	return s.TotalKg.Sub(s.BookedKg)
}

// SlotRef is the handle returned by Reserve, usable for a later Release.
// It carries the pricing snapshot the booking engine needs to compute
// charges without re-reading the slot.
type SlotRef struct {
	SlotID     SlotID
	Date       time.Time
	PricePerKg decimal.Decimal
}
