// Package models contains domain types for the star catalog.
package models

// ObjectType classifies celestial objects (Star, Galaxy, ...).
// Rows are seeded once from the taxonomy document and referenced by
// celestial objects and type-scoped criteria.
type ObjectType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Criterion is a named, optionally type-scoped attribute of a celestial
// object. ObjectTypeID is nil for criteria that apply to every type.
// Unit is empty for categorical criteria.
type Criterion struct {
	ID           int64  `json:"id"`
	ObjectTypeID *int64 `json:"object_type_id,omitempty"`
	Name         string `json:"name"`
	Unit         string `json:"unit,omitempty"`
}

// CriteriaCategory enumerates one legal value of a categorical criterion,
// e.g. spectral class "G".
type CriteriaCategory struct {
	ID          int64  `json:"id"`
	CriterionID int64  `json:"criteria_id"`
	Name        string `json:"name"`
}

// Well-known criterion names seeded by the taxonomy document. The loader
// resolves criteria by name, so these must match pkg/taxonomy/seed.yaml.
const (
	CriterionApparentMagnitude    = "Apparent magnitude"
	CriterionParallax             = "Parallax"
	CriterionEffectiveTemperature = "Effective temperature"
	CriterionRadialVelocity       = "Radial velocity"
	CriterionSpectralClass        = "Spectral class"
)

// ObjectTypeStar is the object type the Gaia loader ingests under.
const ObjectTypeStar = "Star"
