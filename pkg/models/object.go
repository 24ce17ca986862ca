package models

import (
	"github.com/shopspring/decimal"
)

// CelestialObject is one cataloged object. Name and the
// (RightAscension, Declination) pair are unique across the catalog;
// coordinates are fixed-precision decimals, never floats, so that
// astrometric values survive round-trips without drift.
type CelestialObject struct {
	ID             int64           `json:"id"`
	ObjectTypeID   int64           `json:"object_type_id"`
	Name           string          `json:"object_name"`
	RightAscension decimal.Decimal `json:"right_ascension"`
	Declination    decimal.Decimal `json:"declination"`
}

// NumericValue is one measured value of a numeric criterion for an object.
// At most one value exists per (object, criterion) pair.
type NumericValue struct {
	ObjectID    int64           `json:"object_id"`
	CriterionID int64           `json:"criteria_id"`
	Value       decimal.Decimal `json:"value"`
}

// CategoryLink assigns an object to one allowed category of a categorical
// criterion, e.g. spectral class "G".
type CategoryLink struct {
	ObjectID   int64 `json:"object_id"`
	CategoryID int64 `json:"category_id"`
}

// NewObject bundles a celestial object with the attribute rows the loader
// inserts alongside it in a single transaction. Star is nil for non-stellar
// object types.
type NewObject struct {
	Object     CelestialObject
	Values     []NumericValue
	Categories []CategoryLink
	Star       *StarData
}
