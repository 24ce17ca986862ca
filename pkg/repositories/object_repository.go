package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skyatlas/starcat/pkg/apperrors"
	"github.com/skyatlas/starcat/pkg/database"
	"github.com/skyatlas/starcat/pkg/models"
)

// ObjectRepository provides data access for celestial objects together with
// their criterion values, category assignments and star extension rows.
type ObjectRepository interface {
	// GetByName retrieves an object by its unique name. Returns
	// apperrors.ErrNotFound when absent.
	GetByName(ctx context.Context, name string) (*models.CelestialObject, error)

	// NumericValues returns all numeric criterion values of an object.
	NumericValues(ctx context.Context, objectID int64) ([]*models.NumericValue, error)

	// CreateWithAttributes inserts an object and all of its attribute rows
	// in a single transaction. A unique-constraint collision on the object
	// surfaces as apperrors.ErrDuplicate so the caller can skip the row.
	CreateWithAttributes(ctx context.Context, rec *models.NewObject) error

	// UpdateWithHistory writes the history entry and applies the new object
	// state in a single transaction, so the audit row and the change it
	// describes commit together or not at all.
	UpdateWithHistory(ctx context.Context, rec *models.NewObject, entry *models.HistoryEntry) error
}

// objectRepository implements ObjectRepository using PostgreSQL.
type objectRepository struct {
	db *database.DB
}

// NewObjectRepository creates a new object repository.
func NewObjectRepository(db *database.DB) ObjectRepository {
	return &objectRepository{db: db}
}

var _ ObjectRepository = (*objectRepository)(nil)

func (r *objectRepository) GetByName(ctx context.Context, name string) (*models.CelestialObject, error) {
	query := `
		SELECT id, object_type_id, object_name, right_ascension, declination
		FROM celestial_objects
		WHERE object_name = $1`

	var obj models.CelestialObject
	err := r.db.Pool.QueryRow(ctx, query, name).Scan(
		&obj.ID,
		&obj.ObjectTypeID,
		&obj.Name,
		&obj.RightAscension,
		&obj.Declination,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	return &obj, nil
}

func (r *objectRepository) NumericValues(ctx context.Context, objectID int64) ([]*models.NumericValue, error) {
	query := `
		SELECT object_id, criteria_id, value
		FROM objects_criteria
		WHERE object_id = $1`

	rows, err := r.db.Pool.Query(ctx, query, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query criterion values: %w", err)
	}
	defer rows.Close()

	var values []*models.NumericValue
	for rows.Next() {
		var v models.NumericValue
		if err := rows.Scan(&v.ObjectID, &v.CriterionID, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan criterion value: %w", err)
		}
		values = append(values, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating criterion values: %w", err)
	}

	return values, nil
}

func (r *objectRepository) CreateWithAttributes(ctx context.Context, rec *models.NewObject) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	query := `
		INSERT INTO celestial_objects (object_type_id, object_name, right_ascension, declination)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err = tx.QueryRow(ctx, query,
		rec.Object.ObjectTypeID,
		rec.Object.Name,
		rec.Object.RightAscension,
		rec.Object.Declination,
	).Scan(&rec.Object.ID)
	if err != nil {
		if cerr := translateConstraintError(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to create object: %w", err)
	}

	for i := range rec.Values {
		rec.Values[i].ObjectID = rec.Object.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO objects_criteria (object_id, criteria_id, value)
			VALUES ($1, $2, $3)`,
			rec.Values[i].ObjectID, rec.Values[i].CriterionID, rec.Values[i].Value)
		if err != nil {
			if cerr := translateConstraintError(err); cerr != nil {
				return cerr
			}
			return fmt.Errorf("failed to insert criterion value: %w", err)
		}
	}

	for i := range rec.Categories {
		rec.Categories[i].ObjectID = rec.Object.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO objects_criteria_categories (object_id, category_id)
			VALUES ($1, $2)`,
			rec.Categories[i].ObjectID, rec.Categories[i].CategoryID)
		if err != nil {
			if cerr := translateConstraintError(err); cerr != nil {
				return cerr
			}
			return fmt.Errorf("failed to insert category assignment: %w", err)
		}
	}

	if rec.Star != nil {
		rec.Star.ObjectID = rec.Object.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO stars_data (object_id, constellation_id, designation)
			VALUES ($1, $2, $3)
			RETURNING id`,
			rec.Star.ObjectID, rec.Star.ConstellationID, rec.Star.Designation,
		).Scan(&rec.Star.ID)
		if err != nil {
			if cerr := translateConstraintError(err); cerr != nil {
				return cerr
			}
			return fmt.Errorf("failed to insert star data: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *objectRepository) UpdateWithHistory(ctx context.Context, rec *models.NewObject, entry *models.HistoryEntry) error {
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now()
	}
	entry.ObjectID = rec.Object.ID

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	// The audit row goes in first so a failing update never leaves an
	// unexplained state change, and a failing history write blocks the
	// update entirely.
	err = tx.QueryRow(ctx, `
		INSERT INTO celestial_objects_history (changed_at, object_id, old_data, new_data)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		entry.ChangedAt, entry.ObjectID, entry.OldData, entry.NewData,
	).Scan(&entry.ID)
	if err != nil {
		if cerr := translateConstraintError(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	result, err := tx.Exec(ctx, `
		UPDATE celestial_objects
		SET object_name = $2, right_ascension = $3, declination = $4
		WHERE id = $1`,
		rec.Object.ID, rec.Object.Name, rec.Object.RightAscension, rec.Object.Declination)
	if err != nil {
		if cerr := translateConstraintError(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to update object: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	for i := range rec.Values {
		rec.Values[i].ObjectID = rec.Object.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO objects_criteria (object_id, criteria_id, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (object_id, criteria_id) DO UPDATE SET value = EXCLUDED.value`,
			rec.Values[i].ObjectID, rec.Values[i].CriterionID, rec.Values[i].Value)
		if err != nil {
			if cerr := translateConstraintError(err); cerr != nil {
				return cerr
			}
			return fmt.Errorf("failed to upsert criterion value: %w", err)
		}
	}

	for i := range rec.Categories {
		rec.Categories[i].ObjectID = rec.Object.ID
		// An object holds at most one category per criterion, so replacing
		// an assignment first drops its siblings under the same criterion.
		_, err := tx.Exec(ctx, `
			DELETE FROM objects_criteria_categories occ
			USING criteria_categories cc
			WHERE occ.category_id = cc.id
			  AND occ.object_id = $1
			  AND occ.category_id <> $2
			  AND cc.criterion_id = (SELECT criterion_id FROM criteria_categories WHERE id = $2)`,
			rec.Categories[i].ObjectID, rec.Categories[i].CategoryID)
		if err != nil {
			return fmt.Errorf("failed to clear category assignment: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO objects_criteria_categories (object_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT (object_id, category_id) DO NOTHING`,
			rec.Categories[i].ObjectID, rec.Categories[i].CategoryID)
		if err != nil {
			if cerr := translateConstraintError(err); cerr != nil {
				return cerr
			}
			return fmt.Errorf("failed to upsert category assignment: %w", err)
		}
	}

	if rec.Star != nil {
		rec.Star.ObjectID = rec.Object.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO stars_data (object_id, constellation_id, designation)
			VALUES ($1, $2, $3)
			ON CONFLICT (object_id) DO UPDATE
			SET constellation_id = EXCLUDED.constellation_id,
			    designation = EXCLUDED.designation
			RETURNING id`,
			rec.Star.ObjectID, rec.Star.ConstellationID, rec.Star.Designation,
		).Scan(&rec.Star.ID)
		if err != nil {
			if cerr := translateConstraintError(err); cerr != nil {
				return cerr
			}
			return fmt.Errorf("failed to upsert star data: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// translateConstraintError maps PostgreSQL constraint violations onto the
// package sentinels. Returns nil for anything else so the caller falls
// through to its own wrapping.
func translateConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return fmt.Errorf("%w (%s)", apperrors.ErrDuplicate, pgErr.ConstraintName)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w (%s)", apperrors.ErrForeignKey, pgErr.ConstraintName)
	}
	return nil
}
