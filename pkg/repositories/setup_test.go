//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/skyatlas/starcat/pkg/models"
	"github.com/skyatlas/starcat/pkg/taxonomy"
	"github.com/skyatlas/starcat/pkg/testhelpers"
)

// catalogTestContext holds shared dependencies for repository tests backed
// by the catalog testcontainer.
type catalogTestContext struct {
	t            *testing.T
	catalogDB    *testhelpers.CatalogDB
	taxonomyRepo TaxonomyRepository
	objectRepo   ObjectRepository
	historyRepo  HistoryRepository
	queryRepo    QueryRepository
	starType     *models.ObjectType
	criteria     map[string]*models.Criterion
}

// setupCatalogTest resets the shared database and seeds the taxonomy, so
// every test starts from a known classification state.
func setupCatalogTest(t *testing.T) *catalogTestContext {
	t.Helper()
	catalogDB := testhelpers.GetCatalogDB(t)
	testhelpers.ResetCatalog(t, catalogDB.DB)

	tc := &catalogTestContext{
		t:            t,
		catalogDB:    catalogDB,
		taxonomyRepo: NewTaxonomyRepository(catalogDB.DB),
		objectRepo:   NewObjectRepository(catalogDB.DB),
		historyRepo:  NewHistoryRepository(catalogDB.DB),
		queryRepo:    NewQueryRepository(catalogDB.DB),
	}

	ctx := context.Background()
	seed, err := taxonomy.Load()
	require.NoError(t, err)
	require.NoError(t, tc.taxonomyRepo.Seed(ctx, seed))

	tc.starType, err = tc.taxonomyRepo.GetObjectTypeByName(ctx, models.ObjectTypeStar)
	require.NoError(t, err)

	criteria, err := tc.taxonomyRepo.ListCriteria(ctx)
	require.NoError(t, err)
	tc.criteria = make(map[string]*models.Criterion, len(criteria))
	for _, c := range criteria {
		tc.criteria[c.Name] = c
	}

	return tc
}

// newStar builds an insertable star object. Attribute rows and the
// constellation are appended by the caller.
func (tc *catalogTestContext) newStar(name, ra, dec string) *models.NewObject {
	tc.t.Helper()
	return &models.NewObject{
		Object: models.CelestialObject{
			ObjectTypeID:   tc.starType.ID,
			Name:           name,
			RightAscension: decimal.RequireFromString(ra),
			Declination:    decimal.RequireFromString(dec),
		},
		Star: &models.StarData{Designation: "Gaia DR3 " + name},
	}
}

// value builds a numeric value row for a seeded criterion.
func (tc *catalogTestContext) value(criterionName, v string) models.NumericValue {
	tc.t.Helper()
	c, ok := tc.criteria[criterionName]
	require.True(tc.t, ok, "criterion %q not seeded", criterionName)
	return models.NumericValue{CriterionID: c.ID, Value: decimal.RequireFromString(v)}
}

// spectralCategory returns the category ID of the band containing teff.
func (tc *catalogTestContext) spectralCategory(teff string) int64 {
	tc.t.Helper()
	band, err := tc.taxonomyRepo.FindSpectralRange(context.Background(),
		tc.criteria[models.CriterionSpectralClass].ID, decimal.RequireFromString(teff))
	require.NoError(tc.t, err)
	return band.CategoryID
}

// constellationID resolves a seeded constellation by name.
func (tc *catalogTestContext) constellationID(name string) *int64 {
	tc.t.Helper()
	c, err := tc.taxonomyRepo.GetConstellationByName(context.Background(), name)
	require.NoError(tc.t, err)
	return &c.ID
}

// mustCreate inserts an object and fails the test on any error.
func (tc *catalogTestContext) mustCreate(rec *models.NewObject) {
	tc.t.Helper()
	require.NoError(tc.t, tc.objectRepo.CreateWithAttributes(context.Background(), rec))
}
