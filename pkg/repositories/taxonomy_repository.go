package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/skyatlas/starcat/pkg/apperrors"
	"github.com/skyatlas/starcat/pkg/database"
	"github.com/skyatlas/starcat/pkg/models"
	"github.com/skyatlas/starcat/pkg/taxonomy"
)

// TaxonomyRepository provides data access for the classification tables:
// object types, criteria, criteria categories, spectral temperature ranges
// and constellations.
type TaxonomyRepository interface {
	// Seed applies the embedded taxonomy in a single transaction. Rows are
	// keyed by natural name and upserted, so reseeding an already seeded
	// database changes nothing.
	Seed(ctx context.Context, seed *taxonomy.Seed) error

	// GetObjectTypeByName looks up an object type by its unique name.
	GetObjectTypeByName(ctx context.Context, name string) (*models.ObjectType, error)

	// GetCriterionByName looks up a criterion by its unique name.
	GetCriterionByName(ctx context.Context, name string) (*models.Criterion, error)

	// ListCriteria returns all criteria ordered by name.
	ListCriteria(ctx context.Context) ([]*models.Criterion, error)

	// GetConstellationByName looks up a constellation by its unique name.
	GetConstellationByName(ctx context.Context, name string) (*models.Constellation, error)

	// FindSpectralRange returns the temperature band of the given criterion
	// that contains the temperature. Bands are half-open, from <= t < to.
	// Returns apperrors.ErrNotFound when no band matches.
	FindSpectralRange(ctx context.Context, criterionID int64, temperature decimal.Decimal) (*models.SpectralTemperatureRange, error)
}

// taxonomyRepository implements TaxonomyRepository using PostgreSQL.
type taxonomyRepository struct {
	db *database.DB
}

// NewTaxonomyRepository creates a new taxonomy repository.
func NewTaxonomyRepository(db *database.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

var _ TaxonomyRepository = (*taxonomyRepository)(nil)

func (r *taxonomyRepository) Seed(ctx context.Context, seed *taxonomy.Seed) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	typeIDs := make(map[string]int64, len(seed.ObjectTypes))
	for _, ot := range seed.ObjectTypes {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO object_types (name)
			VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, ot.Name).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to seed object type %q: %w", ot.Name, err)
		}
		typeIDs[ot.Name] = id
	}

	// categoryIDs maps criterion name -> category name -> id, so the
	// spectral ranges below can resolve their category rows.
	categoryIDs := make(map[string]map[string]int64)

	for _, c := range seed.Criteria {
		var objectTypeID *int64
		if c.ObjectType != "" {
			id, ok := typeIDs[c.ObjectType]
			if !ok {
				return fmt.Errorf("%w: %q", apperrors.ErrUnknownObjectType, c.ObjectType)
			}
			objectTypeID = &id
		}

		var criterionID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO criteria (name, unit, object_type_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE
			SET unit = EXCLUDED.unit,
			    object_type_id = EXCLUDED.object_type_id
			RETURNING id`, c.Name, nullableString(c.Unit), objectTypeID).Scan(&criterionID)
		if err != nil {
			return fmt.Errorf("failed to seed criterion %q: %w", c.Name, err)
		}

		if len(c.Categories) > 0 {
			categoryIDs[c.Name] = make(map[string]int64, len(c.Categories))
		}
		for _, category := range c.Categories {
			var categoryID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO criteria_categories (criterion_id, name)
				VALUES ($1, $2)
				ON CONFLICT (criterion_id, name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id`, criterionID, category).Scan(&categoryID)
			if err != nil {
				return fmt.Errorf("failed to seed category %q of criterion %q: %w", category, c.Name, err)
			}
			categoryIDs[c.Name][category] = categoryID
		}
	}

	for _, sr := range seed.SpectralRanges {
		categoryID, ok := categoryIDs[models.CriterionSpectralClass][sr.Category]
		if !ok {
			return fmt.Errorf("%w: %q", apperrors.ErrUnknownCategory, sr.Category)
		}
		from, to, err := sr.Bounds()
		if err != nil {
			return fmt.Errorf("failed to seed spectral range %q: %w", sr.Category, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO stars_spectral_type_temperature (category_id, range_from, range_to)
			VALUES ($1, $2, $3)
			ON CONFLICT (category_id) DO UPDATE
			SET range_from = EXCLUDED.range_from,
			    range_to = EXCLUDED.range_to`, categoryID, from, to)
		if err != nil {
			return fmt.Errorf("failed to seed spectral range %q: %w", sr.Category, err)
		}
	}

	for _, name := range seed.Constellations {
		_, err := tx.Exec(ctx, `
			INSERT INTO constellations (name)
			VALUES ($1)
			ON CONFLICT (name) DO NOTHING`, name)
		if err != nil {
			return fmt.Errorf("failed to seed constellation %q: %w", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *taxonomyRepository) GetObjectTypeByName(ctx context.Context, name string) (*models.ObjectType, error) {
	query := `SELECT id, name FROM object_types WHERE name = $1`

	var ot models.ObjectType
	err := r.db.Pool.QueryRow(ctx, query, name).Scan(&ot.ID, &ot.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownObjectType, name)
		}
		return nil, fmt.Errorf("failed to get object type: %w", err)
	}

	return &ot, nil
}

func (r *taxonomyRepository) GetCriterionByName(ctx context.Context, name string) (*models.Criterion, error) {
	query := `SELECT id, name, unit, object_type_id FROM criteria WHERE name = $1`

	row := r.db.Pool.QueryRow(ctx, query, name)
	criterion, err := scanCriterion(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownCriterion, name)
		}
		return nil, err
	}

	return criterion, nil
}

func (r *taxonomyRepository) ListCriteria(ctx context.Context) ([]*models.Criterion, error) {
	query := `SELECT id, name, unit, object_type_id FROM criteria ORDER BY name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria: %w", err)
	}
	defer rows.Close()

	var criteria []*models.Criterion
	for rows.Next() {
		criterion, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, criterion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating criteria: %w", err)
	}

	return criteria, nil
}

func (r *taxonomyRepository) GetConstellationByName(ctx context.Context, name string) (*models.Constellation, error) {
	query := `SELECT id, name FROM constellations WHERE name = $1`

	var c models.Constellation
	err := r.db.Pool.QueryRow(ctx, query, name).Scan(&c.ID, &c.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("constellation %q: %w", name, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get constellation: %w", err)
	}

	return &c, nil
}

func (r *taxonomyRepository) FindSpectralRange(ctx context.Context, criterionID int64, temperature decimal.Decimal) (*models.SpectralTemperatureRange, error) {
	query := `
		SELECT str.id, str.category_id, str.range_from, str.range_to
		FROM stars_spectral_type_temperature str
		JOIN criteria_categories cc ON cc.id = str.category_id
		WHERE cc.criterion_id = $1
		  AND str.range_from <= $2
		  AND str.range_to > $2`

	var sr models.SpectralTemperatureRange
	err := r.db.Pool.QueryRow(ctx, query, criterionID, temperature).Scan(
		&sr.ID,
		&sr.CategoryID,
		&sr.From,
		&sr.To,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find spectral range: %w", err)
	}

	return &sr, nil
}

func scanCriterion(row pgx.Row) (*models.Criterion, error) {
	var c models.Criterion
	var unit *string

	err := row.Scan(&c.ID, &c.Name, &unit, &c.ObjectTypeID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan criterion: %w", err)
	}

	if unit != nil {
		c.Unit = *unit
	}

	return &c, nil
}

// nullableString returns nil for an empty string so the column stores NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
