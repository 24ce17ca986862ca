// Package taxonomy holds the built-in classification data: object types,
// criteria, spectral categories with their temperature bands, and the
// constellation list. The data ships embedded in the binary so a fresh
// database can be seeded without external files.
package taxonomy

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/skyatlas/starcat/pkg/models"
)

//go:embed seed.yaml
var seedYAML []byte

// ObjectTypeSeed declares one object type.
type ObjectTypeSeed struct {
	Name string `yaml:"name"`
}

// CriterionSeed declares one criterion. An empty ObjectType means the
// criterion applies to objects of any type. Categories, when present, make
// the criterion categorical.
type CriterionSeed struct {
	Name       string   `yaml:"name"`
	Unit       string   `yaml:"unit"`
	ObjectType string   `yaml:"object_type"`
	Categories []string `yaml:"categories"`
}

// SpectralRangeSeed binds a spectral-class category to its effective
// temperature band. Bounds are decimal strings to keep exact precision.
type SpectralRangeSeed struct {
	Category string `yaml:"category"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Bounds returns the parsed band limits.
func (s SpectralRangeSeed) Bounds() (decimal.Decimal, decimal.Decimal, error) {
	from, err := decimal.NewFromString(s.From)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("invalid range start %q: %w", s.From, err)
	}
	to, err := decimal.NewFromString(s.To)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("invalid range end %q: %w", s.To, err)
	}
	return from, to, nil
}

// Seed is the full embedded taxonomy.
type Seed struct {
	ObjectTypes    []ObjectTypeSeed    `yaml:"object_types"`
	Criteria       []CriterionSeed     `yaml:"criteria"`
	SpectralRanges []SpectralRangeSeed `yaml:"spectral_ranges"`
	Constellations []string            `yaml:"constellations"`
}

// Load parses and validates the embedded seed data.
func Load() (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(seedYAML, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy seed: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy seed: %w", err)
	}
	return &seed, nil
}

// Criterion returns the seed entry with the given name, or nil.
func (s *Seed) Criterion(name string) *CriterionSeed {
	for i := range s.Criteria {
		if s.Criteria[i].Name == name {
			return &s.Criteria[i]
		}
	}
	return nil
}

func (s *Seed) validate() error {
	if len(s.ObjectTypes) == 0 {
		return fmt.Errorf("no object types declared")
	}

	types := make(map[string]bool, len(s.ObjectTypes))
	for _, ot := range s.ObjectTypes {
		if ot.Name == "" {
			return fmt.Errorf("object type with empty name")
		}
		if types[ot.Name] {
			return fmt.Errorf("duplicate object type %q", ot.Name)
		}
		types[ot.Name] = true
	}

	criteria := make(map[string]bool, len(s.Criteria))
	for _, c := range s.Criteria {
		if c.Name == "" {
			return fmt.Errorf("criterion with empty name")
		}
		if criteria[c.Name] {
			return fmt.Errorf("duplicate criterion %q", c.Name)
		}
		criteria[c.Name] = true

		if c.ObjectType != "" && !types[c.ObjectType] {
			return fmt.Errorf("criterion %q references unknown object type %q", c.Name, c.ObjectType)
		}

		seen := make(map[string]bool, len(c.Categories))
		for _, cat := range c.Categories {
			if cat == "" {
				return fmt.Errorf("criterion %q has a category with empty name", c.Name)
			}
			if seen[cat] {
				return fmt.Errorf("criterion %q has duplicate category %q", c.Name, cat)
			}
			seen[cat] = true
		}
	}

	if err := s.validateSpectralRanges(); err != nil {
		return err
	}

	constellations := make(map[string]bool, len(s.Constellations))
	for _, name := range s.Constellations {
		if name == "" {
			return fmt.Errorf("constellation with empty name")
		}
		if constellations[name] {
			return fmt.Errorf("duplicate constellation %q", name)
		}
		constellations[name] = true
	}

	return nil
}

// validateSpectralRanges checks every range against the spectral-class
// categories and rejects inverted or overlapping bands. Overlaps would make
// temperature classification ambiguous.
func (s *Seed) validateSpectralRanges() error {
	if len(s.SpectralRanges) == 0 {
		return nil
	}

	spectral := s.Criterion(models.CriterionSpectralClass)
	if spectral == nil {
		return fmt.Errorf("spectral ranges declared but criterion %q is missing", models.CriterionSpectralClass)
	}
	categories := make(map[string]bool, len(spectral.Categories))
	for _, cat := range spectral.Categories {
		categories[cat] = true
	}

	type band struct {
		category string
		from, to decimal.Decimal
	}
	bands := make([]band, 0, len(s.SpectralRanges))
	for _, r := range s.SpectralRanges {
		if !categories[r.Category] {
			return fmt.Errorf("spectral range references unknown category %q", r.Category)
		}
		from, to, err := r.Bounds()
		if err != nil {
			return fmt.Errorf("spectral range %q: %w", r.Category, err)
		}
		if !from.LessThan(to) {
			return fmt.Errorf("spectral range %q has start %s not below end %s", r.Category, from, to)
		}
		bands = append(bands, band{category: r.Category, from: from, to: to})
	}

	for i, a := range bands {
		for _, b := range bands[i+1:] {
			if a.from.LessThan(b.to) && b.from.LessThan(a.to) {
				return fmt.Errorf("spectral ranges %q and %q overlap", a.category, b.category)
			}
		}
	}

	return nil
}
