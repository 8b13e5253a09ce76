/*
Package catalog provides read-mostly reference data for the booking engine.

PURPOSE:
  Stations and commodity categories are maintained by an administrative
  collaborator outside this engine. The engine only needs fast, consistent
  lookups of ACTIVE entries when validating a booking request.

KEY CONCEPTS:
  - Station: a railway station identified by a short code (e.g. "NDLS")
  - CommodityCategory: a cargo class with a per-kg base rate
  - Catalog: an injected, explicitly-refreshed snapshot cache over a Store

DESIGN:
  The catalog is NOT a process-wide singleton. It is constructed once,
  injected into whatever needs it, and refreshed on demand. Reads are
  lock-free snapshots served under an RWMutex read lock.

RATE CHANGES:
  A category's base rate can be updated by an administrator. The new rate
  applies to FUTURE slot provisioning only; existing bookings and slots
  keep the price captured when they were created.

SEE ALSO:
  - store.go: Persistence interface
  - catalog.go: Snapshot cache implementation
*/
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// StationID identifies a railway station.
type StationID string

// CategoryID identifies a commodity category.
type CategoryID string

// Station is an immutable reference entity. Only active stations are
// eligible as booking endpoints.
type Station struct {
	ID        StationID
	Code      string // unique short alphanumeric, e.g. "NDLS"
	Name      string
	City      string
	Active    bool
	CreatedAt time.Time
}

// CommodityCategory is a cargo class with a per-kg base rate.
// The base rate seeds the price of newly provisioned capacity slots;
// it never retroactively changes an existing slot or booking.
type CommodityCategory struct {
	ID            CategoryID
	Name          string
	Description   string
	BaseRatePerKg decimal.Decimal // > 0
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
