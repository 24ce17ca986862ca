package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skyatlas/starcat/pkg/database"
	"github.com/skyatlas/starcat/pkg/models"
)

// HistoryRepository provides read access to the append-only change history.
// Writes happen inside ObjectRepository.UpdateWithHistory so the audit row
// always commits with the change it records.
type HistoryRepository interface {
	// ListByObject returns an object's history entries, newest first.
	ListByObject(ctx context.Context, objectID int64) ([]*models.HistoryEntry, error)

	// CountForObject returns the number of history entries for an object.
	CountForObject(ctx context.Context, objectID int64) (int, error)
}

// historyRepository implements HistoryRepository using PostgreSQL.
type historyRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *database.DB) HistoryRepository {
	return &historyRepository{db: db}
}

var _ HistoryRepository = (*historyRepository)(nil)

func (r *historyRepository) ListByObject(ctx context.Context, objectID int64) ([]*models.HistoryEntry, error) {
	query := `
		SELECT id, changed_at, object_id, old_data, new_data
		FROM celestial_objects_history
		WHERE object_id = $1
		ORDER BY changed_at DESC, id DESC`

	rows, err := r.db.Pool.Query(ctx, query, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var oldData, newData []byte

		err := rows.Scan(&entry.ID, &entry.ChangedAt, &entry.ObjectID, &oldData, &newData)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		if err := json.Unmarshal(oldData, &entry.OldData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal old_data: %w", err)
		}
		if err := json.Unmarshal(newData, &entry.NewData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new_data: %w", err)
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history entries: %w", err)
	}

	return entries, nil
}

func (r *historyRepository) CountForObject(ctx context.Context, objectID int64) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM celestial_objects_history WHERE object_id = $1`,
		objectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}

	return count, nil
}
