package models

import (
	"github.com/shopspring/decimal"
)

// ObjectValue pairs an object with one of its numeric criterion values, as
// returned by the ranked read queries.
type ObjectValue struct {
	ObjectName string
	Value      decimal.Decimal
}

// TypeCriterion is one row of the criteria-by-type listing. ObjectType is
// empty for criteria that apply to every object type.
type TypeCriterion struct {
	ObjectType string
	Criterion  string
	Unit       string
}

// StarSummary is one star joined with its designation and constellation.
// Constellation is empty when the star has not been placed.
type StarSummary struct {
	ObjectName    string
	Designation   string
	Constellation string
}

// SpectralClassMember is one object assigned to a spectral class.
// EffectiveTemperature is nil when the object has no measured temperature.
type SpectralClassMember struct {
	ObjectName           string
	EffectiveTemperature *decimal.Decimal
}
