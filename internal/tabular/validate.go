package tabular

import (
	"fmt"
	"math"
	"strings"
)

// MissingRatioThreshold is the maximum tolerated fraction of unparseable
// cells per numeric column. Strictly above fails; exactly at passes.
const MissingRatioThreshold = 0.2

type ValidationErrorCode string

const (
	ValidationErrorMissingColumns ValidationErrorCode = "missing_columns"
	ValidationErrorExcessiveRatio ValidationErrorCode = "excessive_missing_ratio"
	ValidationErrorEmptyDataset   ValidationErrorCode = "empty_dataset"
)

// ValidationError reports why an uploaded table was rejected. Columns is
// set for missing_columns; Column and Ratio for excessive_missing_ratio.
type ValidationError struct {
	Code    ValidationErrorCode
	Columns []string
	Column  string
	Ratio   float64
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation failed"
	}
	switch e.Code {
	case ValidationErrorMissingColumns:
		return fmt.Sprintf("Missing required columns: [%s]", strings.Join(e.Columns, ", "))
	case ValidationErrorExcessiveRatio:
		return fmt.Sprintf("Column %s has >20%% non-numeric values.", e.Column)
	case ValidationErrorEmptyDataset:
		return "CSV contains no data rows."
	default:
		return fmt.Sprintf("validation failed (code=%s)", e.Code)
	}
}

// Validate checks a normalized table and coerces its numeric columns.
// Checks run in order: required columns, non-empty, per-column missing
// ratio (fixed column order, first failure wins). On success it returns
// the coerced numeric columns keyed by canonical name.
func Validate(t *Table) (map[string][]float64, error) {
	var missing []string
	for _, col := range RequiredColumns {
		if t.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Code: ValidationErrorMissingColumns, Columns: missing}
	}

	if len(t.Rows) == 0 {
		return nil, &ValidationError{Code: ValidationErrorEmptyDataset}
	}

	numeric := make(map[string][]float64, len(NumericColumns))
	for _, col := range NumericColumns {
		cells, _ := t.Column(col)
		numeric[col] = CoerceColumn(cells)
	}

	total := float64(len(t.Rows))
	for _, col := range NumericColumns {
		missingCount := 0
		for _, v := range numeric[col] {
			if math.IsNaN(v) {
				missingCount++
			}
		}
		ratio := float64(missingCount) / total
		if ratio > MissingRatioThreshold {
			return nil, &ValidationError{Code: ValidationErrorExcessiveRatio, Column: col, Ratio: ratio}
		}
	}
	return numeric, nil
}
