package tabular

import (
	"math"
	"strings"

	"github.com/chemstatilizer/chemstat-backend/internal/types"
)

// UnknownTypeLabel is the bucket for rows whose Type cell is missing.
const UnknownTypeLabel = "Unknown"

// ComputeSummary derives the aggregates for a validated table. Averages,
// min and max cover non-missing values only; a numeric column with no
// resolvable values gets no entry. Count includes every data row.
func ComputeSummary(t *Table, numeric map[string][]float64) types.Summary {
	s := types.Summary{
		Count:            len(t.Rows),
		Averages:         make(map[string]float64, len(NumericColumns)),
		Min:              make(map[string]float64, len(NumericColumns)),
		Max:              make(map[string]float64, len(NumericColumns)),
		TypeDistribution: make(map[string]int),
	}

	for _, col := range NumericColumns {
		values := numeric[col]
		var (
			sum      float64
			n        int
			min, max float64
		)
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if n == 0 {
				min, max = v, v
			} else {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
			sum += v
			n++
		}
		if n == 0 {
			continue
		}
		s.Averages[col] = sum / float64(n)
		s.Min[col] = min
		s.Max[col] = max
	}

	if cells, ok := t.Column("Type"); ok {
		for _, cell := range cells {
			label := strings.TrimSpace(cell)
			if label == "" {
				label = UnknownTypeLabel
			}
			s.TypeDistribution[label]++
		}
	}
	return s
}
