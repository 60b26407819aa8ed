package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// RequiredColumns is the canonical schema, in required order.
var RequiredColumns = []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}

// NumericColumns are the columns subject to numeric coercion, in the fixed
// order validation evaluates them.
var NumericColumns = []string{"Flowrate", "Pressure", "Temperature"}

// Table is an ordered, fully materialized view of one delimited file.
// Every row has exactly len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ParseError wraps any failure to read the input as delimited tabular text.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	if e == nil || e.Cause == nil {
		return "failed to read CSV"
	}
	return fmt.Sprintf("failed to read CSV: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ParseCSV reads the whole input into a Table. The first record is the
// header row; header cells are trimmed (and the first stripped of a UTF-8
// BOM). Ragged records are a parse failure.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	if len(records) == 0 {
		return nil, &ParseError{Cause: errors.New("no columns to parse")}
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = h
	}
	return &Table{Headers: headers, Rows: records[1:]}, nil
}

// WriteCSV serializes the table back to CSV bytes, headers first. This is
// the canonical form persisted to the blob store.
func (t *Table) WriteCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ColumnIndex returns the position of an exact header match, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns the cells of the named column in row order.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	cells := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			cells[i] = row[idx]
		}
	}
	return cells, true
}

// CoerceColumn converts cells to float64, turning unparseable cells into
// NaN. NaN is the missing-value sentinel throughout the pipeline.
func CoerceColumn(cells []string) []float64 {
	out := make([]float64, len(cells))
	for i, cell := range cells {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}
