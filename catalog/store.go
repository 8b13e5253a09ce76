package catalog

import "context"

// Store persists reference data. Writes come from the administrative
// collaborator; the engine itself only reads.
type Store interface {
	// ListStations returns all stations, active or not, ordered by name.
	ListStations(ctx context.Context) ([]Station, error)

	// ListCategories returns all commodity categories, ordered by name.
	ListCategories(ctx context.Context) ([]CommodityCategory, error)

	// SaveStation inserts or replaces a station.
	SaveStation(ctx context.Context, s Station) error

	// SaveCategory inserts or replaces a commodity category.
	SaveCategory(ctx context.Context, c CommodityCategory) error
}
