//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyatlas/starcat/pkg/models"
)

func TestQueryRepository_TopObjectsByCriterion(t *testing.T) {
	tc := setupCatalogTest(t)
	ctx := context.Background()

	for _, star := range []struct{ name, ra, mag string }{
		{"Gaia-1", "10", "1.5"},
		{"Gaia-2", "20", "0.1"},
		{"Gaia-3", "30", "3.2"},
	} {
		rec := tc.newStar(star.name, star.ra, "0")
		rec.Values = []models.NumericValue{tc.value(models.CriterionApparentMagnitude, star.mag)}
		tc.mustCreate(rec)
	}

	// Brightest first: magnitudes rank ascending.
	brightest, err := tc.queryRepo.TopObjectsByCriterion(ctx, models.CriterionApparentMagnitude, true, 2)
	require.NoError(t, err)
	require.Len(t, brightest, 2)
	assert.Equal(t, "Gaia-2", brightest[0].ObjectName)
	assert.Equal(t, "0.1", brightest[0].Value.String())
	assert.Equal(t, "Gaia-1", brightest[1].ObjectName)

	faintest, err := tc.queryRepo.TopObjectsByCriterion(ctx, models.CriterionApparentMagnitude, false, 1)
	require.NoError(t, err)
	require.Len(t, faintest, 1)
	assert.Equal(t, "Gaia-3", faintest[0].ObjectName)

	// Objects without the criterion never rank.
	none, err := tc.queryRepo.TopObjectsByCriterion(ctx, models.CriterionRadialVelocity, true, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQueryRepository_CriteriaByType(t *testing.T) {
	tc := setupCatalogTest(t)

	listing, err := tc.queryRepo.CriteriaByType(context.Background())
	require.NoError(t, err)
	require.Len(t, listing, 6)

	// Type-agnostic criteria sort first with an empty type name.
	assert.Empty(t, listing[0].ObjectType)
	assert.Equal(t, models.CriterionApparentMagnitude, listing[0].Criterion)
	assert.Equal(t, "mag", listing[0].Unit)

	var parallax *models.TypeCriterion
	for _, row := range listing {
		if row.Criterion == models.CriterionParallax {
			parallax = row
		}
	}
	require.NotNil(t, parallax)
	assert.Equal(t, "Star", parallax.ObjectType)
	assert.Equal(t, "mas", parallax.Unit)
}

func TestQueryRepository_StarsInConstellation(t *testing.T) {
	tc := setupCatalogTest(t)
	ctx := context.Background()

	for _, star := range []struct{ name, ra, constellation string }{
		{"Gaia-2", "20", "Orion"},
		{"Gaia-1", "10", "Orion"},
		{"Gaia-3", "30", "Lyra"},
	} {
		rec := tc.newStar(star.name, star.ra, "0")
		rec.Star.ConstellationID = tc.constellationID(star.constellation)
		tc.mustCreate(rec)
	}

	orion, err := tc.queryRepo.StarsInConstellation(ctx, "Orion")
	require.NoError(t, err)
	require.Len(t, orion, 2)
	assert.Equal(t, "Gaia-1", orion[0].ObjectName)
	assert.Equal(t, "Gaia DR3 Gaia-1", orion[0].Designation)
	assert.Equal(t, "Orion", orion[0].Constellation)
	assert.Equal(t, "Gaia-2", orion[1].ObjectName)

	empty, err := tc.queryRepo.StarsInConstellation(ctx, "Vulpecula")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestQueryRepository_ObjectsBySpectralClass(t *testing.T) {
	tc := setupCatalogTest(t)
	ctx := context.Background()

	type star struct {
		name string
		ra   string
		teff string // empty: classified but no recorded temperature
	}
	for _, s := range []star{
		{"Gaia-1", "10", "5778"},
		{"Gaia-2", "20", "5900"},
		{"Gaia-4", "40", ""},
	} {
		rec := tc.newStar(s.name, s.ra, "0")
		rec.Categories = []models.CategoryLink{{CategoryID: tc.spectralCategory("5778")}} // G
		if s.teff != "" {
			rec.Values = []models.NumericValue{tc.value(models.CriterionEffectiveTemperature, s.teff)}
		}
		tc.mustCreate(rec)
	}
	kStar := tc.newStar("Gaia-3", "30", "0")
	kStar.Categories = []models.CategoryLink{{CategoryID: tc.spectralCategory("4458")}} // K
	kStar.Values = []models.NumericValue{tc.value(models.CriterionEffectiveTemperature, "4458")}
	tc.mustCreate(kStar)

	members, err := tc.queryRepo.ObjectsBySpectralClass(ctx, "G")
	require.NoError(t, err)
	require.Len(t, members, 3)

	// Hottest first; members without a temperature trail the list.
	assert.Equal(t, "Gaia-2", members[0].ObjectName)
	require.NotNil(t, members[0].EffectiveTemperature)
	assert.Equal(t, "5900", members[0].EffectiveTemperature.String())
	assert.Equal(t, "Gaia-1", members[1].ObjectName)
	assert.Equal(t, "Gaia-4", members[2].ObjectName)
	assert.Nil(t, members[2].EffectiveTemperature)

	kMembers, err := tc.queryRepo.ObjectsBySpectralClass(ctx, "K")
	require.NoError(t, err)
	require.Len(t, kMembers, 1)
	assert.Equal(t, "Gaia-3", kMembers[0].ObjectName)
}
