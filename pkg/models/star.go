package models

import "github.com/shopspring/decimal"

// Constellation is one of the 88 IAU constellations, seeded from the
// taxonomy document.
type Constellation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StarData extends a celestial object of type Star, 1:1. ConstellationID is
// nil when the source row carries no constellation, Designation holds the
// IAU-style designation string ("Gaia DR3 12345").
type StarData struct {
	ID              int64  `json:"id"`
	ObjectID        int64  `json:"object_id"`
	ConstellationID *int64 `json:"constellation_id,omitempty"`
	Designation     string `json:"designation,omitempty"`
}

// SpectralTemperatureRange maps one spectral-class category to its effective
// temperature interval [From, To) in kelvin. One row per category.
type SpectralTemperatureRange struct {
	ID         int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
	From       decimal.Decimal `json:"temperature_from"`
	To         decimal.Decimal `json:"temperature_to"`
}

// Contains reports whether temperature t falls inside the half-open
// interval [From, To).
func (r SpectralTemperatureRange) Contains(t decimal.Decimal) bool {
	return t.GreaterThanOrEqual(r.From) && t.LessThan(r.To)
}
