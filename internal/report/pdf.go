package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/sync/errgroup"

	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/tabular"
	"github.com/chemstatilizer/chemstat-backend/internal/types"
)

// A4 in millimetres.
const (
	pageShortMM = 210.0
	pageLongMM  = 297.0
	pageMargin  = 12.0
)

// Renderer turns a dataset record plus its re-derived table into the
// three-page PDF report: text summary, type bar chart, histograms.
type Renderer struct {
	log   *logger.Logger
	fonts fontSet
}

func NewRenderer(log *logger.Logger, fontPath string) *Renderer {
	rendererLog := log.With("service", "ReportRenderer")
	return &Renderer{
		log:   rendererLog,
		fonts: loadFonts(rendererLog, fontPath),
	}
}

// Render produces the PDF bytes. The table and numeric columns are the
// ones re-parsed from the stored blob; the summary is the stored one.
func (r *Renderer) Render(ds *types.Dataset, summary types.Summary, tbl *tabular.Table, numeric map[string][]float64) ([]byte, error) {
	typeCounts := summary.TypeDistribution
	if len(typeCounts) == 0 {
		typeCounts = recountTypes(tbl)
	}

	availableNumeric := make([]string, 0, len(tabular.NumericColumns))
	for _, col := range tabular.NumericColumns {
		if tbl.ColumnIndex(col) >= 0 {
			availableNumeric = append(availableNumeric, col)
		}
	}

	// The two chart pages rasterize independently.
	var (
		barPNG  []byte
		histPNG []byte
	)
	var g errgroup.Group
	if len(typeCounts) > 0 {
		g.Go(func() error {
			png, err := renderTypeBarChart(r.fonts, typeCounts)
			if err != nil {
				return err
			}
			barPNG = png
			return nil
		})
	}
	if len(availableNumeric) > 0 {
		g.Go(func() error {
			png, err := renderHistogramRow(r.fonts, availableNumeric, numeric)
			if err != nil {
				return err
			}
			histPNG = png
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render charts: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")

	// Page 1: text summary, portrait.
	pdf.AddPage()
	pdf.SetFont("Courier", "", 12)
	pdf.SetXY(pageMargin, pageMargin+6)
	pdf.MultiCell(pageShortMM-2*pageMargin, 6, summaryText(ds, summary), "", "L", false)

	// Page 2: type distribution bar chart, landscape. Omitted when no
	// type data exists at all.
	if barPNG != nil {
		r.addImagePage(pdf, "type_distribution", barPNG, chartWidthPx, barChartHeight)
	}

	// Page 3: histograms, landscape. Omitted when no numeric column is
	// present in the re-parsed table.
	if histPNG != nil {
		r.addImagePage(pdf, "numeric_distributions", histPNG, chartWidthPx, histRowHeight)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) addImagePage(pdf *fpdf.Fpdf, name string, png []byte, pxW, pxH int) {
	pdf.AddPageFormat("L", fpdf.SizeType{Wd: pageShortMM, Ht: pageLongMM})
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	imgW := pageLongMM - 2*pageMargin
	imgH := imgW * float64(pxH) / float64(pxW)
	y := (pageShortMM - imgH) / 2
	if y < pageMargin {
		y = pageMargin
	}
	pdf.ImageOptions(name, pageMargin, y, imgW, 0, false, opts, 0, "")
}

// summaryText builds the page-1 text block. Averages use 3 decimals;
// min and max print the shortest exact representation. A column with no
// stored aggregate is left out.
func summaryText(ds *types.Dataset, summary types.Summary) string {
	lines := []string{
		fmt.Sprintf("Report: %s", ds.Filename),
		fmt.Sprintf("Uploaded: %s", ds.UploadedAt.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Rows: %d", summary.Count),
		"",
		"Averages:",
	}
	for _, col := range tabular.NumericColumns {
		if v, ok := summary.Averages[col]; ok {
			lines = append(lines, fmt.Sprintf("  %s: %.3f", col, v))
		}
	}
	lines = append(lines, "", "Min:")
	for _, col := range tabular.NumericColumns {
		if v, ok := summary.Min[col]; ok {
			lines = append(lines, fmt.Sprintf("  %s: %s", col, strconv.FormatFloat(v, 'g', -1, 64)))
		}
	}
	lines = append(lines, "", "Max:")
	for _, col := range tabular.NumericColumns {
		if v, ok := summary.Max[col]; ok {
			lines = append(lines, fmt.Sprintf("  %s: %s", col, strconv.FormatFloat(v, 'g', -1, 64)))
		}
	}
	return strings.Join(lines, "\n")
}

// recountTypes rebuilds the type distribution from the re-parsed table
// for records stored without one.
func recountTypes(tbl *tabular.Table) map[string]int {
	counts := make(map[string]int)
	cells, ok := tbl.Column("Type")
	if !ok {
		return counts
	}
	for _, cell := range cells {
		label := strings.TrimSpace(cell)
		if label == "" {
			label = tabular.UnknownTypeLabel
		}
		counts[label]++
	}
	return counts
}
