package repository

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownItemType = errors.New("unknown item type")

// priceSource names the table and column holding the asking price for one
// item type. Each type lives in its own table, so the lookup is a registry
// instead of a per-type switch.
type priceSource struct {
	Table  string
	Column string
}

var priceSources = map[string]priceSource{
	"car":        {Table: "cars", Column: "price"},
	"realestate": {Table: "properties", Column: "price"},
	"laptop":     {Table: "laptops", Column: "price"},
	"secondhand": {Table: "secondhand_items", Column: "price"},
	"job":        {Table: "jobs", Column: "monthly_salary"},
	"business":   {Table: "businesses", Column: "asking_price"},
	"freelancer": {Table: "freelancer_gigs", Column: "hourly_rate"},
}

// KnownItemType reports whether itemType has a registered price source.
func KnownItemType(itemType string) bool {
	_, ok := priceSources[itemType]
	return ok
}

// ItemTypes returns the registered type tags. Ordering is not guaranteed.
func ItemTypes() []string {
	types := make([]string, 0, len(priceSources))
	for itemType := range priceSources {
		types = append(types, itemType)
	}
	return types
}

type ListingPriceRepository struct {
	db DBTX
}

func NewListingPriceRepository(db DBTX) *ListingPriceRepository {
	return &ListingPriceRepository{db: db}
}

// LookupPrice resolves the current price of an item through the per-type
// registry. Table and column names come from the registry, never from the
// caller, so interpolating them is safe.
func (r *ListingPriceRepository) LookupPrice(ctx context.Context, itemType string, itemID int64) (float64, error) {
	source, ok := priceSources[itemType]
	if !ok {
		return 0, ErrUnknownItemType
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, source.Column, source.Table)

	var price float64
	if err := r.db.QueryRow(ctx, query, itemID).Scan(&price); err != nil {
		return 0, err
	}
	return price, nil
}
