package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skyatlas/starcat/pkg/models"
	"github.com/skyatlas/starcat/pkg/repositories"
	"github.com/skyatlas/starcat/pkg/taxonomy"
)

// TaxonomyService seeds the classification tables and resolves taxonomy
// rows by their natural names.
type TaxonomyService interface {
	// EnsureSeeded applies the embedded taxonomy. Safe to call before every
	// load run; a seeded database is left unchanged.
	EnsureSeeded(ctx context.Context) error

	// ResolveObjectType returns the object type with the given name.
	ResolveObjectType(ctx context.Context, name string) (*models.ObjectType, error)

	// CriteriaByName returns every criterion indexed by name.
	CriteriaByName(ctx context.Context) (map[string]*models.Criterion, error)

	// ClassifyTemperature returns the spectral band of the given categorical
	// criterion containing the effective temperature, or
	// apperrors.ErrNotFound when the temperature falls outside every band.
	ClassifyTemperature(ctx context.Context, spectralCriterionID int64, temperature decimal.Decimal) (*models.SpectralTemperatureRange, error)

	// ResolveConstellation returns the constellation with the given name.
	ResolveConstellation(ctx context.Context, name string) (*models.Constellation, error)
}

type taxonomyService struct {
	taxonomyRepo repositories.TaxonomyRepository
	logger       *zap.Logger
}

// NewTaxonomyService creates a new taxonomy service.
func NewTaxonomyService(taxonomyRepo repositories.TaxonomyRepository, logger *zap.Logger) TaxonomyService {
	return &taxonomyService{
		taxonomyRepo: taxonomyRepo,
		logger:       logger.Named("taxonomy-service"),
	}
}

var _ TaxonomyService = (*taxonomyService)(nil)

func (s *taxonomyService) EnsureSeeded(ctx context.Context) error {
	seed, err := taxonomy.Load()
	if err != nil {
		return err
	}

	if err := s.taxonomyRepo.Seed(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed taxonomy: %w", err)
	}

	s.logger.Info("Taxonomy seeded",
		zap.Int("object_types", len(seed.ObjectTypes)),
		zap.Int("criteria", len(seed.Criteria)),
		zap.Int("spectral_ranges", len(seed.SpectralRanges)),
		zap.Int("constellations", len(seed.Constellations)))

	return nil
}

func (s *taxonomyService) ResolveObjectType(ctx context.Context, name string) (*models.ObjectType, error) {
	return s.taxonomyRepo.GetObjectTypeByName(ctx, name)
}

func (s *taxonomyService) CriteriaByName(ctx context.Context) (map[string]*models.Criterion, error) {
	criteria, err := s.taxonomyRepo.ListCriteria(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*models.Criterion, len(criteria))
	for _, c := range criteria {
		index[c.Name] = c
	}

	return index, nil
}

func (s *taxonomyService) ClassifyTemperature(ctx context.Context, spectralCriterionID int64, temperature decimal.Decimal) (*models.SpectralTemperatureRange, error) {
	return s.taxonomyRepo.FindSpectralRange(ctx, spectralCriterionID, temperature)
}

func (s *taxonomyService) ResolveConstellation(ctx context.Context, name string) (*models.Constellation, error) {
	return s.taxonomyRepo.GetConstellationByName(ctx, name)
}
