package tabular

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

func buildNumericCSV(t *testing.T, rows int, badFlowrates int) *Table {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("Equipment Name,Type,Flowrate,Pressure,Temperature\n")
	for i := 0; i < rows; i++ {
		flow := "100"
		if i < badFlowrates {
			flow = "n/a"
		}
		sb.WriteString(fmt.Sprintf("Unit-%d,Pump,%s,5.0,110\n", i, flow))
	}
	tbl, err := ParseCSV(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	NormalizeHeaders(tbl)
	return tbl
}

func TestValidateMissingTypeColumn(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader("Equipment Name,Flowrate,Pressure,Temperature\nPump-1,1,2,3\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	NormalizeHeaders(tbl)

	_, err = Validate(tbl)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got=%v", err)
	}
	if verr.Code != ValidationErrorMissingColumns {
		t.Fatalf("code: want=%q got=%q", ValidationErrorMissingColumns, verr.Code)
	}
	if !reflect.DeepEqual(verr.Columns, []string{"Type"}) {
		t.Fatalf("columns: want=[Type] got=%v", verr.Columns)
	}
}

func TestValidateMissingColumnsKeepRequiredOrder(t *testing.T) {
	tbl := &Table{Headers: []string{"Equipment Name", "Pressure"}}

	_, err := Validate(tbl)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got=%v", err)
	}
	want := []string{"Type", "Flowrate", "Temperature"}
	if !reflect.DeepEqual(verr.Columns, want) {
		t.Fatalf("columns: want=%v got=%v", want, verr.Columns)
	}
}

func TestValidateRatioBoundary(t *testing.T) {
	// 20 bad out of 100 is exactly the threshold and must pass.
	tbl := buildNumericCSV(t, 100, 20)
	numeric, err := Validate(tbl)
	if err != nil {
		t.Fatalf("20%% missing should pass, got=%v", err)
	}
	bad := 0
	for _, v := range numeric["Flowrate"] {
		if math.IsNaN(v) {
			bad++
		}
	}
	if bad != 20 {
		t.Fatalf("coerced NaN count: want=20 got=%d", bad)
	}

	// 21 bad out of 100 is strictly over and must fail, naming Flowrate.
	tbl = buildNumericCSV(t, 100, 21)
	_, err = Validate(tbl)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got=%v", err)
	}
	if verr.Code != ValidationErrorExcessiveRatio {
		t.Fatalf("code: want=%q got=%q", ValidationErrorExcessiveRatio, verr.Code)
	}
	if verr.Column != "Flowrate" {
		t.Fatalf("column: want=Flowrate got=%q", verr.Column)
	}
	if verr.Ratio <= MissingRatioThreshold {
		t.Fatalf("ratio should exceed threshold, got=%v", verr.Ratio)
	}
}

func TestValidateEmptyDataset(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader("Equipment Name,Type,Flowrate,Pressure,Temperature\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	_, err = Validate(tbl)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got=%v", err)
	}
	if verr.Code != ValidationErrorEmptyDataset {
		t.Fatalf("code: want=%q got=%q", ValidationErrorEmptyDataset, verr.Code)
	}
}

func TestParseCSVMalformed(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("a,b,c\n1,2\n\"unterminated\n"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got=%v", err)
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got=%v", err)
	}
}
