package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skyatlas/starcat/pkg/apperrors"
	"github.com/skyatlas/starcat/pkg/catalog"
	"github.com/skyatlas/starcat/pkg/config"
	"github.com/skyatlas/starcat/pkg/models"
	"github.com/skyatlas/starcat/pkg/repositories"
)

// CatalogClient is the slice of the catalog client the loader depends on.
type CatalogClient interface {
	Query(ctx context.Context, adql string) (*catalog.TableResult, error)
}

// LoadReport summarizes one load run.
type LoadReport struct {
	RunID     uuid.UUID
	Fetched   int
	Created   int
	Updated   int
	Unchanged int
	// Skipped counts rows dropped after a constraint violation, such as a
	// second object at an already cataloged position.
	Skipped int
	// Invalid counts rows lacking an identifier or coordinates.
	Invalid int
	Elapsed time.Duration
}

// LoaderService runs the fetch-transform-load pipeline: seed the taxonomy,
// query the remote catalog, and upsert each result row as a celestial
// object with its criterion values, category assignments and star data.
type LoaderService interface {
	Run(ctx context.Context) (*LoadReport, error)
}

type loaderService struct {
	cfg             *config.LoadConfig
	catalogClient   CatalogClient
	taxonomyService TaxonomyService
	objectRepo      repositories.ObjectRepository
	logger          *zap.Logger
}

// NewLoaderService creates a new loader service.
func NewLoaderService(
	cfg *config.LoadConfig,
	catalogClient CatalogClient,
	taxonomyService TaxonomyService,
	objectRepo repositories.ObjectRepository,
	logger *zap.Logger,
) LoaderService {
	return &loaderService{
		cfg:             cfg,
		catalogClient:   catalogClient,
		taxonomyService: taxonomyService,
		objectRepo:      objectRepo,
		logger:          logger.Named("loader-service"),
	}
}

var _ LoaderService = (*loaderService)(nil)

// attributeBinding pairs one source column with its resolved criterion.
type attributeBinding struct {
	column    string
	criterion *models.Criterion
}

// loadRun carries the per-run state shared across rows.
type loadRun struct {
	logger     *zap.Logger
	report     *LoadReport
	result     *catalog.TableResult
	objectType *models.ObjectType
	criteria   map[string]*models.Criterion
	namesByID  map[int64]string
	bindings   []attributeBinding
}

func (s *loaderService) Run(ctx context.Context) (*LoadReport, error) {
	start := time.Now()
	report := &LoadReport{RunID: uuid.New()}
	logger := s.logger.With(zap.String("run_id", report.RunID.String()))

	// 1. Seed the taxonomy before touching the network, so a fetch failure
	// can never leave partial taxonomy writes behind.
	if err := s.taxonomyService.EnsureSeeded(ctx); err != nil {
		return nil, err
	}

	// 2. Resolve the taxonomy rows the configured mapping refers to. An
	// attribute mapped to a criterion the taxonomy does not know is a
	// configuration error, fatal before any fetch.
	objectType, err := s.taxonomyService.ResolveObjectType(ctx, s.cfg.ObjectType)
	if err != nil {
		return nil, err
	}

	criteria, err := s.taxonomyService.CriteriaByName(ctx)
	if err != nil {
		return nil, err
	}

	namesByID := make(map[int64]string, len(criteria))
	for name, c := range criteria {
		namesByID[c.ID] = name
	}

	bindings := make([]attributeBinding, 0, len(s.cfg.Attributes))
	for _, attr := range s.cfg.Attributes {
		criterion, ok := criteria[attr.Criterion]
		if !ok {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownCriterion, attr.Criterion)
		}
		bindings = append(bindings, attributeBinding{column: attr.Column, criterion: criterion})
	}

	// 3. Fetch. Any catalog failure, including exhausted retries, aborts
	// the run here with nothing but the taxonomy written.
	columns := []string{s.cfg.SourceIDColumn, s.cfg.RAColumn, s.cfg.DecColumn}
	for _, b := range bindings {
		columns = append(columns, b.column)
	}
	if s.cfg.ConstellationColumn != "" {
		columns = append(columns, s.cfg.ConstellationColumn)
	}

	adql := catalog.BuildQuery(s.cfg.SourceTable, columns, s.cfg.RowLimit, s.cfg.Filter)
	result, err := s.catalogClient.Query(ctx, adql)
	if err != nil {
		return nil, fmt.Errorf("catalog fetch failed: %w", err)
	}
	report.Fetched = result.RowCount()

	// 4. Check the result shape once before any row work.
	if err := result.RequireColumns(columns...); err != nil {
		return nil, err
	}

	// 5. Transform and load row by row. Constraint violations skip the row;
	// everything else aborts the run.
	run := &loadRun{
		logger:     logger,
		report:     report,
		result:     result,
		objectType: objectType,
		criteria:   criteria,
		namesByID:  namesByID,
		bindings:   bindings,
	}
	for row := 0; row < result.RowCount(); row++ {
		if err := s.loadRow(ctx, run, row); err != nil {
			return nil, err
		}
	}

	report.Elapsed = time.Since(start)
	logger.Info("Load run completed",
		zap.Int("fetched", report.Fetched),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("skipped", report.Skipped),
		zap.Int("invalid", report.Invalid),
		zap.Duration("elapsed", report.Elapsed))

	return report, nil
}

// loadRow transforms one result row and writes it. Only fatal errors are
// returned; recoverable conditions are counted on the report.
func (s *loaderService) loadRow(ctx context.Context, run *loadRun, row int) error {
	// A row without an identifier or coordinates cannot form a valid
	// object. That is missing data, not a contract break, so the row is
	// dropped and the run continues.
	if run.result.IsNullAt(row, s.cfg.SourceIDColumn) ||
		run.result.IsNullAt(row, s.cfg.RAColumn) ||
		run.result.IsNullAt(row, s.cfg.DecColumn) {
		run.report.Invalid++
		run.logger.Warn("Skipping row without identifier or coordinates", zap.Int("row", row))
		return nil
	}

	// Decode failures on present cells mean the source no longer delivers
	// the types the mapping expects. That is a contract break, fatal.
	sourceID, err := run.result.Int64At(row, s.cfg.SourceIDColumn)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrShapeMismatch, err)
	}
	ra, err := run.result.DecimalAt(row, s.cfg.RAColumn)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrShapeMismatch, err)
	}
	dec, err := run.result.DecimalAt(row, s.cfg.DecColumn)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrShapeMismatch, err)
	}

	name := s.cfg.NamePrefix + strconv.FormatInt(sourceID, 10)

	values := make([]models.NumericValue, 0, len(run.bindings))
	for _, b := range run.bindings {
		if run.result.IsNullAt(row, b.column) {
			continue
		}
		v, err := run.result.DecimalAt(row, b.column)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrShapeMismatch, err)
		}
		values = append(values, models.NumericValue{CriterionID: b.criterion.ID, Value: v})
	}

	categories, err := s.classify(ctx, run, values)
	if err != nil {
		return err
	}

	star, err := s.starData(ctx, run, row, sourceID)
	if err != nil {
		return err
	}

	rec := &models.NewObject{
		Object: models.CelestialObject{
			ObjectTypeID:   run.objectType.ID,
			Name:           name,
			RightAscension: ra,
			Declination:    dec,
		},
		Values:     values,
		Categories: categories,
		Star:       star,
	}

	existing, err := s.objectRepo.GetByName(ctx, name)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to look up object %q: %w", name, err)
	}

	if existing == nil {
		return s.createObject(ctx, run, rec)
	}
	return s.updateObject(ctx, run, rec, existing)
}

func (s *loaderService) createObject(ctx context.Context, run *loadRun, rec *models.NewObject) error {
	err := s.objectRepo.CreateWithAttributes(ctx, rec)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) || errors.Is(err, apperrors.ErrForeignKey) {
			run.report.Skipped++
			run.logger.Warn("Skipping row after constraint violation",
				zap.String("object", rec.Object.Name),
				zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to insert object %q: %w", rec.Object.Name, err)
	}

	run.report.Created++
	run.logger.Debug("Created object",
		zap.String("object", rec.Object.Name),
		zap.Int64("id", rec.Object.ID))
	return nil
}

// updateObject applies a changed row to an existing object, recording the
// before/after snapshots. Rows identical to the stored state are counted
// and left alone, so reloading the same result set writes no history.
func (s *loaderService) updateObject(ctx context.Context, run *loadRun, rec *models.NewObject, existing *models.CelestialObject) error {
	oldValues, err := s.objectRepo.NumericValues(ctx, existing.ID)
	if err != nil {
		return fmt.Errorf("failed to read values of object %q: %w", existing.Name, err)
	}

	oldByID := make(map[int64]decimal.Decimal, len(oldValues))
	for _, v := range oldValues {
		oldByID[v.CriterionID] = v.Value
	}

	changed := !existing.RightAscension.Equal(rec.Object.RightAscension) ||
		!existing.Declination.Equal(rec.Object.Declination)
	for _, v := range rec.Values {
		old, ok := oldByID[v.CriterionID]
		if !ok || !old.Equal(v.Value) {
			changed = true
			break
		}
	}

	if !changed {
		run.report.Unchanged++
		return nil
	}

	oldNamed := make(map[string]decimal.Decimal, len(oldByID))
	for id, v := range oldByID {
		oldNamed[run.namesByID[id]] = v
	}

	// Values absent from this row persist unchanged, so the new snapshot is
	// the old value set overlaid with the fetched ones.
	newNamed := make(map[string]decimal.Decimal, len(oldNamed)+len(rec.Values))
	for name, v := range oldNamed {
		newNamed[name] = v
	}
	for _, v := range rec.Values {
		newNamed[run.namesByID[v.CriterionID]] = v.Value
	}

	rec.Object.ID = existing.ID
	rec.Object.ObjectTypeID = existing.ObjectTypeID

	entry := &models.HistoryEntry{
		OldData: models.ObjectSnapshot(*existing, oldNamed),
		NewData: models.ObjectSnapshot(rec.Object, newNamed),
	}

	err = s.objectRepo.UpdateWithHistory(ctx, rec, entry)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) || errors.Is(err, apperrors.ErrForeignKey) {
			run.report.Skipped++
			run.logger.Warn("Skipping update after constraint violation",
				zap.String("object", rec.Object.Name),
				zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to update object %q: %w", rec.Object.Name, err)
	}

	run.report.Updated++
	run.logger.Debug("Updated object",
		zap.String("object", rec.Object.Name),
		zap.Int64("id", rec.Object.ID))
	return nil
}

// classify assigns the spectral class matching the row's effective
// temperature. Rows without a temperature, and temperatures outside every
// band, simply get no assignment.
func (s *loaderService) classify(ctx context.Context, run *loadRun, values []models.NumericValue) ([]models.CategoryLink, error) {
	temperature, ok := run.criteria[models.CriterionEffectiveTemperature]
	spectral, okSpectral := run.criteria[models.CriterionSpectralClass]
	if !ok || !okSpectral {
		return nil, nil
	}

	for _, v := range values {
		if v.CriterionID != temperature.ID {
			continue
		}
		band, err := s.taxonomyService.ClassifyTemperature(ctx, spectral.ID, v.Value)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				run.logger.Debug("Temperature outside all spectral bands",
					zap.String("teff", v.Value.String()))
				return nil, nil
			}
			return nil, fmt.Errorf("failed to classify temperature: %w", err)
		}
		return []models.CategoryLink{{CategoryID: band.CategoryID}}, nil
	}

	return nil, nil
}

// starData builds the star extension row. Non-stellar object types carry
// none. An unknown constellation name leaves the star unplaced rather than
// failing the row.
func (s *loaderService) starData(ctx context.Context, run *loadRun, row int, sourceID int64) (*models.StarData, error) {
	if run.objectType.Name != models.ObjectTypeStar {
		return nil, nil
	}

	star := &models.StarData{
		Designation: fmt.Sprintf("%s %d", s.cfg.DesignationPrefix, sourceID),
	}

	if s.cfg.ConstellationColumn == "" || run.result.IsNullAt(row, s.cfg.ConstellationColumn) {
		return star, nil
	}

	name, err := run.result.StringAt(row, s.cfg.ConstellationColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrShapeMismatch, err)
	}
	if name == "" {
		return star, nil
	}

	constellation, err := s.taxonomyService.ResolveConstellation(ctx, name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			run.logger.Warn("Unknown constellation, leaving star unplaced",
				zap.String("constellation", name))
			return star, nil
		}
		return nil, err
	}

	star.ConstellationID = &constellation.ID
	return star, nil
}
