/*
tracking.go - Append-only per-booking event history

INVARIANTS:
  1. APPEND-ONLY: events are never edited or removed once written.
  2. ORDERED: ascending by timestamp for display, descending for
     "most recent first" queries.
  3. AUTHORITATIVE: a booking with only its initial pending event is
     valid; that event is the current state until an operator writes more.
*/
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventID identifies a tracking event.
type EventID string

// TrackingEvent is one immutable status/location record for a booking.
type TrackingEvent struct {
	ID          EventID
	BookingID   BookingID
	Status      Status
	Location    string // optional, usually a station code
	Description string
	Actor       string // optional, who recorded the event
	CreatedAt   time.Time
}

// EventOrder selects the sort direction for history queries.
type EventOrder int

const (
	OldestFirst EventOrder = iota
	NewestFirst
)

// TrackingStore persists tracking events. Append-only: implementations
// expose no update or delete.
type TrackingStore interface {
	// AppendEvent persists one event.
	AppendEvent(ctx context.Context, ev TrackingEvent) error

	// ListEvents returns a booking's events in the requested order.
	ListEvents(ctx context.Context, id BookingID, order EventOrder) ([]TrackingEvent, error)
}

// newEvent builds a tracking event with a fresh ID.
func newEvent(id BookingID, status Status, location, description, actor string, at time.Time) TrackingEvent {
	return TrackingEvent{
		ID:          EventID(uuid.NewString()),
		BookingID:   id,
		Status:      status,
		Location:    location,
		Description: description,
		Actor:       actor,
		CreatedAt:   at,
	}
}
