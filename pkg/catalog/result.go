package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/skyatlas/starcat/pkg/apperrors"
	"github.com/skyatlas/starcat/pkg/jsonutil"
)

// Column describes one column of a catalog query result.
type Column struct {
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
}

// TableResult is the tabular outcome of one catalog query: column
// descriptors plus rows of raw cells. Cells stay as raw JSON until a typed
// accessor decodes them, because TAP services disagree on cell encoding.
type TableResult struct {
	Columns []Column
	Rows    [][]json.RawMessage

	index map[string]int // lower-cased column name -> position
}

// NewTableResult validates the grid shape and builds the column index.
// Column names are matched case-insensitively; services echo whatever casing
// the query used.
func NewTableResult(columns []Column, rows [][]json.RawMessage) (*TableResult, error) {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[strings.ToLower(col.Name)] = i
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d",
				apperrors.ErrShapeMismatch, i, len(row), len(columns))
		}
	}

	return &TableResult{Columns: columns, Rows: rows, index: index}, nil
}

// RowCount returns the number of result rows.
func (r *TableResult) RowCount() int {
	return len(r.Rows)
}

// ColumnIndex returns the position of a named column.
func (r *TableResult) ColumnIndex(name string) (int, bool) {
	i, ok := r.index[strings.ToLower(name)]
	return i, ok
}

// RequireColumns verifies every named column is present. A missing column
// means the remote table no longer matches the configured mapping - a
// contract break, fatal to the run.
func (r *TableResult) RequireColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := r.ColumnIndex(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: result lacks columns %s",
			apperrors.ErrShapeMismatch, strings.Join(missing, ", "))
	}
	return nil
}

func (r *TableResult) cell(row int, name string) (json.RawMessage, error) {
	i, ok := r.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: no column %q", apperrors.ErrShapeMismatch, name)
	}
	return r.Rows[row][i], nil
}

// IsNullAt reports whether the cell at (row, name) holds no value. Missing
// columns count as null so optional columns can be probed safely.
func (r *TableResult) IsNullAt(row int, name string) bool {
	raw, err := r.cell(row, name)
	if err != nil {
		return true
	}
	return jsonutil.IsNull(raw)
}

// Int64At decodes the cell at (row, name) as an int64.
func (r *TableResult) Int64At(row int, name string) (int64, error) {
	raw, err := r.cell(row, name)
	if err != nil {
		return 0, err
	}
	n, err := jsonutil.FlexibleInt64Value(raw)
	if err != nil {
		return 0, fmt.Errorf("column %q row %d: %w", name, row, err)
	}
	return n, nil
}

// DecimalAt decodes the cell at (row, name) as a fixed-precision decimal.
func (r *TableResult) DecimalAt(row int, name string) (decimal.Decimal, error) {
	raw, err := r.cell(row, name)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := jsonutil.FlexibleDecimalValue(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("column %q row %d: %w", name, row, err)
	}
	return d, nil
}

// StringAt decodes the cell at (row, name) as a string; null becomes "".
func (r *TableResult) StringAt(row int, name string) (string, error) {
	raw, err := r.cell(row, name)
	if err != nil {
		return "", err
	}
	return jsonutil.FlexibleStringValue(raw), nil
}
