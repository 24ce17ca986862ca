package repositories

import (
	"context"
	"fmt"

	"github.com/skyatlas/starcat/pkg/database"
	"github.com/skyatlas/starcat/pkg/models"
)

// QueryRepository runs the read queries the catalog is consumed through:
// ranked top-N listings, the criteria-by-type join, and the star-specific
// lookups by constellation and spectral class.
type QueryRepository interface {
	// TopObjectsByCriterion returns up to limit objects ranked by one
	// numeric criterion. Ascending order ranks magnitudes (brightest
	// first); descending ranks temperatures (hottest first).
	TopObjectsByCriterion(ctx context.Context, criterionName string, ascending bool, limit int) ([]*models.ObjectValue, error)

	// CriteriaByType joins every criterion with the object type it applies
	// to, ordered by type then criterion name.
	CriteriaByType(ctx context.Context) ([]*models.TypeCriterion, error)

	// StarsInConstellation lists the stars placed in a constellation.
	StarsInConstellation(ctx context.Context, constellationName string) ([]*models.StarSummary, error)

	// ObjectsBySpectralClass lists the objects assigned to one spectral
	// class, hottest first where a temperature is recorded.
	ObjectsBySpectralClass(ctx context.Context, class string) ([]*models.SpectralClassMember, error)
}

// queryRepository implements QueryRepository using PostgreSQL.
type queryRepository struct {
	db *database.DB
}

// NewQueryRepository creates a new query repository.
func NewQueryRepository(db *database.DB) QueryRepository {
	return &queryRepository{db: db}
}

var _ QueryRepository = (*queryRepository)(nil)

func (r *queryRepository) TopObjectsByCriterion(ctx context.Context, criterionName string, ascending bool, limit int) ([]*models.ObjectValue, error) {
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}

	// Only the fixed ORDER BY direction is interpolated; everything else is
	// parameterized.
	query := fmt.Sprintf(`
		SELECT co.object_name, oc.value
		FROM celestial_objects co
		JOIN objects_criteria oc ON oc.object_id = co.id
		JOIN criteria c ON c.id = oc.criteria_id
		WHERE c.name = $1
		ORDER BY oc.value %s, co.object_name
		LIMIT $2`, direction)

	rows, err := r.db.Pool.Query(ctx, query, criterionName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top objects: %w", err)
	}
	defer rows.Close()

	var ranked []*models.ObjectValue
	for rows.Next() {
		var ov models.ObjectValue
		if err := rows.Scan(&ov.ObjectName, &ov.Value); err != nil {
			return nil, fmt.Errorf("failed to scan ranked object: %w", err)
		}
		ranked = append(ranked, &ov)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranked objects: %w", err)
	}

	return ranked, nil
}

func (r *queryRepository) CriteriaByType(ctx context.Context) ([]*models.TypeCriterion, error) {
	query := `
		SELECT COALESCE(ot.name, ''), c.name, COALESCE(c.unit, '')
		FROM criteria c
		LEFT JOIN object_types ot ON ot.id = c.object_type_id
		ORDER BY ot.name NULLS FIRST, c.name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria by type: %w", err)
	}
	defer rows.Close()

	var listing []*models.TypeCriterion
	for rows.Next() {
		var tc models.TypeCriterion
		if err := rows.Scan(&tc.ObjectType, &tc.Criterion, &tc.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan criterion row: %w", err)
		}
		listing = append(listing, &tc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating criteria: %w", err)
	}

	return listing, nil
}

func (r *queryRepository) StarsInConstellation(ctx context.Context, constellationName string) ([]*models.StarSummary, error) {
	query := `
		SELECT co.object_name, sd.designation, cn.name
		FROM stars_data sd
		JOIN celestial_objects co ON co.id = sd.object_id
		JOIN constellations cn ON cn.id = sd.constellation_id
		WHERE cn.name = $1
		ORDER BY co.object_name`

	rows, err := r.db.Pool.Query(ctx, query, constellationName)
	if err != nil {
		return nil, fmt.Errorf("failed to query stars in constellation: %w", err)
	}
	defer rows.Close()

	var stars []*models.StarSummary
	for rows.Next() {
		var s models.StarSummary
		if err := rows.Scan(&s.ObjectName, &s.Designation, &s.Constellation); err != nil {
			return nil, fmt.Errorf("failed to scan star row: %w", err)
		}
		stars = append(stars, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stars: %w", err)
	}

	return stars, nil
}

func (r *queryRepository) ObjectsBySpectralClass(ctx context.Context, class string) ([]*models.SpectralClassMember, error) {
	query := `
		SELECT co.object_name, oc.value
		FROM celestial_objects co
		JOIN objects_criteria_categories occ ON occ.object_id = co.id
		JOIN criteria_categories cc ON cc.id = occ.category_id
		JOIN criteria cls ON cls.id = cc.criterion_id
		LEFT JOIN criteria temp ON temp.name = $2
		LEFT JOIN objects_criteria oc ON oc.object_id = co.id AND oc.criteria_id = temp.id
		WHERE cls.name = $1 AND cc.name = $3
		ORDER BY oc.value DESC NULLS LAST, co.object_name`

	rows, err := r.db.Pool.Query(ctx, query,
		models.CriterionSpectralClass, models.CriterionEffectiveTemperature, class)
	if err != nil {
		return nil, fmt.Errorf("failed to query spectral class members: %w", err)
	}
	defer rows.Close()

	var members []*models.SpectralClassMember
	for rows.Next() {
		var m models.SpectralClassMember
		if err := rows.Scan(&m.ObjectName, &m.EffectiveTemperature); err != nil {
			return nil, fmt.Errorf("failed to scan spectral class member: %w", err)
		}
		members = append(members, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spectral class members: %w", err)
	}

	return members, nil
}
