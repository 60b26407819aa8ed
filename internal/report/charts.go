package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/chemstatilizer/chemstat-backend/internal/logger"
)

const (
	barColor       = "#4e79a7"
	histColor      = "#59a14f"
	axisColor      = "#333333"
	gridColor      = "#d0d0d0"
	histogramBins  = 10
	chartWidthPx   = 1169
	barChartHeight = 827
	histRowHeight  = 400
)

type fontSet struct {
	label font.Face
	title font.Face
}

// loadFonts parses the TTF at fontPath for chart text. With no path (or
// a bad file) it falls back to the built-in bitmap face so rendering
// never depends on the deployment filesystem.
func loadFonts(log *logger.Logger, fontPath string) fontSet {
	fallback := fontSet{label: basicfont.Face7x13, title: basicfont.Face7x13}
	if strings.TrimSpace(fontPath) == "" {
		return fallback
	}
	raw, err := os.ReadFile(fontPath)
	if err != nil {
		log.Warn("Could not read report font, using built-in face", "path", fontPath, "error", err)
		return fallback
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		log.Warn("Could not parse report font, using built-in face", "path", fontPath, "error", err)
		return fallback
	}
	return fontSet{
		label: truetype.NewFace(parsed, &truetype.Options{Size: 16, DPI: 72}),
		title: truetype.NewFace(parsed, &truetype.Options{Size: 24, DPI: 72}),
	}
}

type barEntry struct {
	label string
	count int
}

// sortedBars orders type labels by count descending, ties by label, so
// chart output is deterministic.
func sortedBars(dist map[string]int) []barEntry {
	entries := make([]barEntry, 0, len(dist))
	for label, count := range dist {
		entries = append(entries, barEntry{label: label, count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].label < entries[j].label
	})
	return entries
}

// renderTypeBarChart draws the type-distribution bar chart and returns
// it as PNG bytes.
func renderTypeBarChart(fonts fontSet, dist map[string]int) ([]byte, error) {
	entries := sortedBars(dist)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no type data to chart")
	}

	const (
		w, h                    = chartWidthPx, barChartHeight
		marginLeft, marginRight = 100.0, 40.0
		marginTop, marginBottom = 80.0, 150.0
	)
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW := float64(w) - marginLeft - marginRight
	plotH := float64(h) - marginTop - marginBottom
	originX, originY := marginLeft, float64(h)-marginBottom

	maxCount := 0
	for _, e := range entries {
		if e.count > maxCount {
			maxCount = e.count
		}
	}
	step := yTickStep(maxCount)
	yMax := float64(((maxCount + step - 1) / step) * step)
	if yMax == 0 {
		yMax = 1
	}

	// Horizontal gridlines plus y tick labels. Gridlines only on the y
	// axis, matching the summary chart layout.
	dc.SetFontFace(fonts.label)
	for v := 0; float64(v) <= yMax; v += step {
		y := originY - (float64(v)/yMax)*plotH
		dc.SetHexColor(gridColor)
		dc.SetLineWidth(1)
		dc.DrawLine(originX, y, originX+plotW, y)
		dc.Stroke()
		dc.SetHexColor(axisColor)
		dc.DrawStringAnchored(fmt.Sprintf("%d", v), originX-12, y, 1, 0.5)
	}

	// Bars with rotated x labels.
	slot := plotW / float64(len(entries))
	barW := slot * 0.8
	for i, e := range entries {
		x := originX + float64(i)*slot + (slot-barW)/2
		barH := (float64(e.count) / yMax) * plotH
		dc.SetHexColor(barColor)
		dc.DrawRectangle(x, originY-barH, barW, barH)
		dc.Fill()

		labelX := x + barW/2
		labelY := originY + 16
		dc.SetHexColor(axisColor)
		dc.Push()
		dc.RotateAbout(gg.Radians(-30), labelX, labelY)
		dc.DrawStringAnchored(e.label, labelX, labelY, 1, 0.5)
		dc.Pop()
	}

	// Axes.
	dc.SetHexColor(axisColor)
	dc.SetLineWidth(1.5)
	dc.DrawLine(originX, originY-plotH, originX, originY)
	dc.DrawLine(originX, originY, originX+plotW, originY)
	dc.Stroke()

	dc.SetFontFace(fonts.title)
	dc.DrawStringAnchored("Equipment Type Distribution", float64(w)/2, marginTop/2, 0.5, 0.5)
	dc.SetFontFace(fonts.label)
	dc.DrawStringAnchored("Type", originX+plotW/2, float64(h)-40, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 30, originY-plotH/2)
	dc.DrawStringAnchored("Count", 30, originY-plotH/2, 0.5, 0.5)
	dc.Pop()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

// renderHistogramRow draws one histogram panel per numeric column, side
// by side, and returns the row as PNG bytes. A column with no resolvable
// values becomes a "No data" placeholder panel.
func renderHistogramRow(fonts fontSet, columns []string, numeric map[string][]float64) ([]byte, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("no numeric columns to chart")
	}

	const w, h = chartWidthPx, histRowHeight
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	panelW := float64(w) / float64(len(columns))
	for i, col := range columns {
		values := dropMissing(numeric[col])
		drawHistogramPanel(dc, fonts, col, values, float64(i)*panelW, panelW, h)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode histograms: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHistogramPanel(dc *gg.Context, fonts fontSet, col string, values []float64, offsetX, panelW float64, panelH float64) {
	const (
		marginLeft, marginRight = 70.0, 25.0
		marginTop, marginBottom = 50.0, 70.0
	)

	if len(values) == 0 {
		dc.SetHexColor(axisColor)
		dc.SetFontFace(fonts.label)
		dc.DrawStringAnchored("No data for "+col, offsetX+panelW/2, panelH/2, 0.5, 0.5)
		return
	}

	counts, min, binWidth := binValues(values, histogramBins)
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	plotW := panelW - marginLeft - marginRight
	plotH := panelH - marginTop - marginBottom
	originX := offsetX + marginLeft
	originY := panelH - marginBottom

	step := yTickStep(maxCount)
	yMax := float64(((maxCount + step - 1) / step) * step)
	if yMax == 0 {
		yMax = 1
	}

	dc.SetFontFace(fonts.label)
	for v := 0; float64(v) <= yMax; v += step {
		y := originY - (float64(v)/yMax)*plotH
		dc.SetHexColor(gridColor)
		dc.SetLineWidth(1)
		dc.DrawLine(originX, y, originX+plotW, y)
		dc.Stroke()
		dc.SetHexColor(axisColor)
		dc.DrawStringAnchored(fmt.Sprintf("%d", v), originX-8, y, 1, 0.5)
	}

	barW := plotW / float64(len(counts))
	for i, c := range counts {
		if c == 0 {
			continue
		}
		x := originX + float64(i)*barW
		barH := (float64(c) / yMax) * plotH
		dc.SetHexColor(histColor)
		dc.DrawRectangle(x, originY-barH, barW, barH)
		dc.Fill()
		// White bar edges, like the summary charts use.
		dc.SetRGB(1, 1, 1)
		dc.SetLineWidth(1)
		dc.DrawRectangle(x, originY-barH, barW, barH)
		dc.Stroke()
	}

	dc.SetHexColor(axisColor)
	dc.SetLineWidth(1.5)
	dc.DrawLine(originX, originY-plotH, originX, originY)
	dc.DrawLine(originX, originY, originX+plotW, originY)
	dc.Stroke()

	// Min / mid / max x ticks.
	max := min + binWidth*float64(histogramBins)
	for _, tick := range []float64{min, (min + max) / 2, max} {
		frac := 0.0
		if max > min {
			frac = (tick - min) / (max - min)
		}
		x := originX + frac*plotW
		dc.DrawStringAnchored(formatTick(tick), x, originY+18, 0.5, 0.5)
	}

	dc.DrawStringAnchored(col+" Distribution", offsetX+panelW/2, marginTop/2, 0.5, 0.5)
	dc.DrawStringAnchored(col, originX+plotW/2, panelH-20, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), offsetX+22, originY-plotH/2)
	dc.DrawStringAnchored("Frequency", offsetX+22, originY-plotH/2, 0.5, 0.5)
	dc.Pop()
}

// binValues buckets values into n equal-width bins between min and max.
// The last bin is inclusive of max. A constant column lands entirely in
// the first bin.
func binValues(values []float64, n int) (counts []int, min, binWidth float64) {
	counts = make([]int, n)
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		counts[0] = len(values)
		return counts, min, 0
	}
	binWidth = (max - min) / float64(n)
	for _, v := range values {
		idx := int((v - min) / binWidth)
		if idx >= n {
			idx = n - 1
		}
		counts[idx]++
	}
	return counts, min, binWidth
}

func dropMissing(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func yTickStep(maxCount int) int {
	if maxCount <= 5 {
		return 1
	}
	return (maxCount + 4) / 5
}

func formatTick(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
