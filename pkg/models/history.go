package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is one append-only audit row capturing an object's state
// before and after a change. The catalog never updates or deletes history.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	ChangedAt time.Time `json:"changed_at"`
	ObjectID  int64     `json:"object_id"`
	OldData   Snapshot  `json:"old_data"`
	NewData   Snapshot  `json:"new_data"`
}

// Snapshot is a schema-less state document stored as JSONB. Attribute sets
// vary by object type, so snapshots are key-value documents rather than
// fixed structs.
type Snapshot map[string]any

// Value implements driver.Valuer for database serialization.
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database deserialization.
func (s *Snapshot) Scan(value any) error {
	if value == nil {
		*s = make(map[string]any)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Snapshot", value)
	}

	return json.Unmarshal(bytes, s)
}

// ObjectSnapshot builds the history document for an object and its numeric
// criterion values. Criterion values are keyed by criterion name and encoded
// as strings so that applying new_data over old_data reconstructs the row
// state exactly, digit for digit.
func ObjectSnapshot(obj CelestialObject, values map[string]decimal.Decimal) Snapshot {
	criteria := make(map[string]any, len(values))
	for name, v := range values {
		criteria[name] = v.String()
	}
	return Snapshot{
		"object_name":     obj.Name,
		"right_ascension": obj.RightAscension.String(),
		"declination":     obj.Declination.String(),
		"criteria":        criteria,
	}
}
