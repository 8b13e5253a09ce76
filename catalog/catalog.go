package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrStationNotFound is returned when a station ID is unknown.
	ErrStationNotFound = errors.New("station not found")

	// ErrCategoryNotFound is returned when a category ID is unknown.
	ErrCategoryNotFound = errors.New("commodity category not found")

	// ErrInactive is returned when a station or category exists but is
	// not active and therefore cannot be used for new bookings.
	ErrInactive = errors.New("reference entry is inactive")

	// ErrInvalidRate is returned when a rate update is not strictly positive.
	ErrInvalidRate = errors.New("base rate must be greater than zero")
)

// =============================================================================
// CATALOG - Injected snapshot cache over a Store
// =============================================================================

// Catalog caches stations and categories in memory and serves reads from
// a snapshot under a read lock. Refresh replaces the snapshot wholesale.
type Catalog struct {
	store Store

	mu         sync.RWMutex
	stations   map[StationID]Station
	categories map[CategoryID]CommodityCategory
	refreshed  time.Time
}

// New creates a catalog backed by store. Call Refresh before first use.
func New(store Store) *Catalog {
	return &Catalog{
		store:      store,
		stations:   make(map[StationID]Station),
		categories: make(map[CategoryID]CommodityCategory),
	}
}

// Refresh reloads all reference data from the store and swaps the snapshot.
func (c *Catalog) Refresh(ctx context.Context) error {
	stations, err := c.store.ListStations(ctx)
	if err != nil {
		return fmt.Errorf("refresh stations: %w", err)
	}
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("refresh categories: %w", err)
	}

	stationsByID := make(map[StationID]Station, len(stations))
	for _, s := range stations {
		stationsByID[s.ID] = s
	}
	categoriesByID := make(map[CategoryID]CommodityCategory, len(categories))
	for _, cat := range categories {
		categoriesByID[cat.ID] = cat
	}

	c.mu.Lock()
	c.stations = stationsByID
	c.categories = categoriesByID
	c.refreshed = time.Now()
	c.mu.Unlock()
	return nil
}

// LastRefreshed reports when the snapshot was last replaced.
func (c *Catalog) LastRefreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshed
}

// Station returns a station regardless of its active flag.
func (c *Catalog) Station(id StationID) (Station, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stations[id]
	if !ok {
		return Station{}, ErrStationNotFound
	}
	return s, nil
}

// ActiveStation returns a station only if it is active.
func (c *Catalog) ActiveStation(id StationID) (Station, error) {
	s, err := c.Station(id)
	if err != nil {
		return Station{}, err
	}
	if !s.Active {
		return Station{}, fmt.Errorf("station %s: %w", s.Code, ErrInactive)
	}
	return s, nil
}

// Category returns a commodity category regardless of its active flag.
func (c *Catalog) Category(id CategoryID) (CommodityCategory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.categories[id]
	if !ok {
		return CommodityCategory{}, ErrCategoryNotFound
	}
	return cat, nil
}

// ActiveCategory returns a category only if it is active.
func (c *Catalog) ActiveCategory(id CategoryID) (CommodityCategory, error) {
	cat, err := c.Category(id)
	if err != nil {
		return CommodityCategory{}, err
	}
	if !cat.Active {
		return CommodityCategory{}, fmt.Errorf("category %s: %w", cat.Name, ErrInactive)
	}
	return cat, nil
}

// ActiveStations lists active stations sorted by name.
func (c *Catalog) ActiveStations() []Station {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Station, 0, len(c.stations))
	for _, s := range c.stations {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActiveCategories lists active commodity categories sorted by name.
func (c *Catalog) ActiveCategories() []CommodityCategory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CommodityCategory, 0, len(c.categories))
	for _, cat := range c.categories {
		if cat.Active {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateCategoryRate changes a category's base rate for FUTURE slot
// provisioning. Existing bookings and slots keep their captured prices.
// The write goes to the store first; the snapshot is patched on success.
func (c *Catalog) UpdateCategoryRate(ctx context.Context, id CategoryID, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return ErrInvalidRate
	}

	cat, err := c.Category(id)
	if err != nil {
		return err
	}
	cat.BaseRatePerKg = rate
	cat.UpdatedAt = time.Now()

	if err := c.store.SaveCategory(ctx, cat); err != nil {
		return fmt.Errorf("save category rate: %w", err)
	}

	c.mu.Lock()
	c.categories[id] = cat
	c.mu.Unlock()
	return nil
}
