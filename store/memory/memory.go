// Package memory provides in-memory store implementations for testing
// and development. One Store satisfies every persistence interface the
// engine defines: catalog.Store, capacity.Store, booking.Store, and
// booking.TrackingStore.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cargo-engine/booking"
	"github.com/warp/cargo-engine/capacity"
	"github.com/warp/cargo-engine/catalog"
)

// Store holds everything behind a single mutex. Conditional updates
// (capacity reservation, status compare-and-set) are atomic because they
// run entirely inside the lock.
type Store struct {
	mu         sync.RWMutex
	stations   map[catalog.StationID]catalog.Station
	categories map[catalog.CategoryID]catalog.CommodityCategory
	slots      map[capacity.SlotID]capacity.Slot
	bookings   map[booking.BookingID]booking.Booking
	byNumber   map[booking.Number]booking.BookingID
	events     map[booking.BookingID][]booking.TrackingEvent
	payments   map[booking.BookingID][]booking.PaymentRef
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		stations:   make(map[catalog.StationID]catalog.Station),
		categories: make(map[catalog.CategoryID]catalog.CommodityCategory),
		slots:      make(map[capacity.SlotID]capacity.Slot),
		bookings:   make(map[booking.BookingID]booking.Booking),
		byNumber:   make(map[booking.Number]booking.BookingID),
		events:     make(map[booking.BookingID][]booking.TrackingEvent),
		payments:   make(map[booking.BookingID][]booking.PaymentRef),
	}
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (s *Store) ListStations(_ context.Context) ([]catalog.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Station, 0, len(s.stations))
	for _, st := range s.stations {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]catalog.CommodityCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.CommodityCategory, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SaveStation(_ context.Context, st catalog.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations[st.ID] = st
	return nil
}

func (s *Store) SaveCategory(_ context.Context, c catalog.CommodityCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

// =============================================================================
// CAPACITY STORE
// =============================================================================

func (s *Store) InsertSlot(_ context.Context, slot capacity.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.ID] = slot
	return nil
}

func (s *Store) GetSlot(_ context.Context, id capacity.SlotID) (capacity.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	if !ok {
		return capacity.Slot{}, capacity.ErrSlotNotFound
	}
	return slot, nil
}

func (s *Store) FindSlots(_ context.Context, from, to catalog.StationID, category catalog.CategoryID, onOrAfter time.Time) ([]capacity.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []capacity.Slot
	for _, slot := range s.slots {
		if slot.FromStation != from || slot.ToStation != to || slot.Category != category {
			continue
		}
		if slot.Date.Before(onOrAfter) {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ReserveCapacity does the check-then-increment as one unit under the
// store lock. This is the single hard concurrency invariant.
func (s *Store) ReserveCapacity(_ context.Context, id capacity.SlotID, weightKg decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return capacity.ErrSlotNotFound
	}
	next := slot.BookedKg.Add(weightKg)
	if next.GreaterThan(slot.TotalKg) {
		return capacity.ErrInsufficientCapacity
	}
	slot.BookedKg = next
	slot.UpdatedAt = time.Now().UTC()
	s.slots[id] = slot
	return nil
}

func (s *Store) ReleaseCapacity(_ context.Context, id capacity.SlotID, weightKg decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return capacity.ErrSlotNotFound
	}
	next := slot.BookedKg.Sub(weightKg)
	if next.IsNegative() {
		next = decimal.Zero
	}
	slot.BookedKg = next
	slot.UpdatedAt = time.Now().UTC()
	s.slots[id] = slot
	return nil
}

func (s *Store) UpdateSlotCapacity(_ context.Context, id capacity.SlotID, totalKg, pricePerKg decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return capacity.ErrSlotNotFound
	}
	if totalKg.LessThan(slot.BookedKg) {
		return capacity.ErrCapacityBelowBooked
	}
	slot.TotalKg = totalKg
	slot.PricePerKg = pricePerKg
	slot.UpdatedAt = time.Now().UTC()
	s.slots[id] = slot
	return nil
}

// =============================================================================
// BOOKING STORE
// =============================================================================

func (s *Store) InsertBooking(_ context.Context, b booking.Booking, initial booking.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byNumber[b.Number]; exists {
		return booking.ErrDuplicateNumber
	}
	s.bookings[b.ID] = b
	s.byNumber[b.Number] = b.ID
	s.events[b.ID] = append(s.events[b.ID], initial)
	return nil
}

func (s *Store) GetBooking(_ context.Context, id booking.BookingID) (booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBookingByNumber(_ context.Context, n booking.Number) (booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[n]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}
	return s.bookings[id], nil
}

func (s *Store) LatestNumberForDay(_ context.Context, day string) (booking.Number, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := "RPB-" + day + "-"
	var best booking.Number
	bestSeq := -1
	for n := range s.byNumber {
		if !strings.HasPrefix(string(n), prefix) {
			continue
		}
		seq, err := strconv.Atoi(string(n)[len(prefix):])
		if err != nil || seq <= bestSeq {
			continue
		}
		bestSeq = seq
		best = n
	}
	return best, nil
}

func (s *Store) ListBookingsByUser(_ context.Context, userID string, includeCancelled bool) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []booking.Booking
	for _, b := range s.bookings {
		if b.UserID != userID {
			continue
		}
		if b.Status == booking.StatusCancelled && !includeCancelled {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id booking.BookingID, from, to booking.Status, at time.Time, ev booking.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	if b.Status != from {
		return &booking.InvalidTransitionError{BookingID: id, From: b.Status, To: to}
	}
	b.Status = to
	b.UpdatedAt = at
	s.bookings[id] = b
	s.events[id] = append(s.events[id], ev)
	return nil
}

func (s *Store) MarkCancelled(_ context.Context, id booking.BookingID, from booking.Status, c booking.Cancellation, ev booking.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	if b.Status != from {
		return &booking.InvalidTransitionError{BookingID: id, From: b.Status, To: booking.StatusCancelled}
	}
	at := c.At
	refund := c.RefundAmount
	b.Status = booking.StatusCancelled
	b.UpdatedAt = at
	b.CancelledAt = &at
	b.CancellationReason = c.Reason
	b.RefundAmount = &refund
	b.RefundStatus = c.RefundStatus
	s.bookings[id] = b
	s.events[id] = append(s.events[id], ev)
	return nil
}

func (s *Store) SavePayment(_ context.Context, id booking.BookingID, p booking.PaymentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return booking.ErrNotFound
	}
	s.payments[id] = append(s.payments[id], p)
	return nil
}

// Payments returns recorded payment references, for tests.
func (s *Store) Payments(id booking.BookingID) []booking.PaymentRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]booking.PaymentRef{}, s.payments[id]...)
}

// =============================================================================
// TRACKING STORE
// =============================================================================

func (s *Store) AppendEvent(_ context.Context, ev booking.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.BookingID] = append(s.events[ev.BookingID], ev)
	return nil
}

func (s *Store) ListEvents(_ context.Context, id booking.BookingID, order booking.EventOrder) ([]booking.TrackingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]booking.TrackingEvent{}, s.events[id]...)
	sort.SliceStable(out, func(i, j int) bool {
		if order == booking.NewestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
