package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/tabular"
	"github.com/chemstatilizer/chemstat-backend/internal/types"
)

const sampleCSV = `Equipment Name,Type,Flowrate,Pressure,Temperature
Pump-1,Pump,120,5.2,110
Compressor-1,Compressor,95,8.4,95
Valve-1,Valve,60,4.1,105
HeatExchanger-1,HeatExchanger,150,6.2,130
Pump-2,Pump,132,5.6,118
Valve-2,Valve,58,4,102
Reactor-1,Reactor,140,7.5,140
Pump-3,Pump,125,5.3,115
Condenser-1,Condenser,160,6.8,125
Compressor-2,Compressor,100,8,98
HeatExchanger-2,HeatExchanger,155,6.3,132
Valve-3,Valve,62,4.2,107
Pump-4,Pump,130,5.9,119
Reactor-2,Reactor,145,7.2,138
Condenser-2,Condenser,165,6.9,128
`

func sampleInputs(t *testing.T) (*types.Dataset, types.Summary, *tabular.Table, map[string][]float64) {
	t.Helper()
	tbl, err := tabular.ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tabular.NormalizeHeaders(tbl)
	numeric, err := tabular.Validate(tbl)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	summary := tabular.ComputeSummary(tbl, numeric)
	ds := &types.Dataset{
		ID:         uuid.New(),
		Filename:   "sample_equipment_data.csv",
		UploadedAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		RowCount:   summary.Count,
	}
	if err := ds.SetSummary(summary); err != nil {
		t.Fatalf("set summary: %v", err)
	}
	return ds, summary, tbl, numeric
}

func TestRenderSampleReport(t *testing.T) {
	ds, summary, tbl, numeric := sampleInputs(t)
	r := NewRenderer(logger.NewNop(), "")

	pdf, err := r.Render(ds, summary, tbl, numeric)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, starts with %q", pdf[:min(8, len(pdf))])
	}
	if len(pdf) <= 1000 {
		t.Fatalf("pdf too small: %d bytes", len(pdf))
	}
}

func TestRenderWithoutTypeDataSkipsBarPage(t *testing.T) {
	ds, summary, tbl, numeric := sampleInputs(t)
	summary.TypeDistribution = nil
	// Drop the Type column so the chart cannot be recomputed either.
	idx := tbl.ColumnIndex("Type")
	tbl.Headers = append(tbl.Headers[:idx], tbl.Headers[idx+1:]...)
	for i, row := range tbl.Rows {
		tbl.Rows[i] = append(row[:idx], row[idx+1:]...)
	}

	r := NewRenderer(logger.NewNop(), "")
	pdf, err := r.Render(ds, summary, tbl, numeric)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestRenderEmptyNumericColumnGetsPlaceholder(t *testing.T) {
	ds, summary, tbl, numeric := sampleInputs(t)
	// Simulate a column whose every value failed coercion.
	nan := make([]float64, len(tbl.Rows))
	for i := range nan {
		nan[i] = math.NaN()
	}
	numeric["Pressure"] = nan

	r := NewRenderer(logger.NewNop(), "")
	if _, err := r.Render(ds, summary, tbl, numeric); err != nil {
		t.Fatalf("render with empty column: %v", err)
	}
}

func TestSummaryTextOmitsAbsentColumns(t *testing.T) {
	ds, summary, _, _ := sampleInputs(t)
	delete(summary.Averages, "Pressure")
	delete(summary.Min, "Pressure")
	delete(summary.Max, "Pressure")

	text := summaryText(ds, summary)

	if strings.Contains(text, "Pressure") {
		t.Fatalf("Pressure should be omitted:\n%s", text)
	}
	if !strings.Contains(text, "Report: sample_equipment_data.csv") {
		t.Fatalf("missing title line:\n%s", text)
	}
	if !strings.Contains(text, "Uploaded: 2025-06-01 12:30:00") {
		t.Fatalf("missing timestamp line:\n%s", text)
	}
	if !strings.Contains(text, "Rows: 15") {
		t.Fatalf("missing row count line:\n%s", text)
	}
}

func TestBinValues(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	counts, min, width := binValues(values, 10)

	if min != 0 {
		t.Fatalf("min: want=0 got=%v", min)
	}
	if width != 1 {
		t.Fatalf("width: want=1 got=%v", width)
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != len(values) {
		t.Fatalf("bin total: want=%d got=%d", len(values), total)
	}
	// Max value belongs to the last bin, not an overflow bin.
	if counts[9] != 2 {
		t.Fatalf("last bin: want=2 got=%d", counts[9])
	}
}

func TestBinValuesConstantColumn(t *testing.T) {
	counts, _, width := binValues([]float64{3, 3, 3}, 10)
	if width != 0 {
		t.Fatalf("width: want=0 got=%v", width)
	}
	if counts[0] != 3 {
		t.Fatalf("first bin: want=3 got=%d", counts[0])
	}
}
