// Package jsonutil decodes loosely-typed JSON cells from catalog query
// results. TAP servers disagree on cell encoding: the same column arrives as
// a bare number from one service and a quoted string from another, and
// missing measurements arrive as null.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IsNull reports whether a raw cell is absent: empty, JSON null, or an
// empty string.
func IsNull(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strings.TrimSpace(strVal) == ""
	}
	return false
}

// FlexibleStringValue converts a raw cell to a string, handling services
// that return numbers or booleans where identifiers are expected. Returns
// empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	// Try string first
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// Number: keep the exact textual form. Going through float64 would
	// corrupt identifiers wider than 53 bits.
	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal.String()
	}

	// Try boolean
	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// Fallback: return raw string representation
	return string(raw)
}

// FlexibleDecimalValue converts a raw cell to a fixed-precision decimal.
// Number literals are parsed from their exact textual form, never through
// float64, so astrometric values keep every digit the service sent.
func FlexibleDecimalValue(raw json.RawMessage) (decimal.Decimal, error) {
	if IsNull(raw) {
		return decimal.Decimal{}, fmt.Errorf("cell is null")
	}

	text := string(raw)

	// Quoted string: unwrap first
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		text = strings.TrimSpace(strVal)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cell %q is not numeric: %w", string(raw), err)
	}
	return d, nil
}

// FlexibleInt64Value converts a raw cell to an int64. Integer literals are
// parsed from their textual form because identifiers like Gaia source ids
// exceed float64's 53-bit integer range.
func FlexibleInt64Value(raw json.RawMessage) (int64, error) {
	if IsNull(raw) {
		return 0, fmt.Errorf("cell is null")
	}

	text := string(raw)

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		text = strings.TrimSpace(strVal)
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cell %q is not an integer: %w", string(raw), err)
	}
	return n, nil
}
