package tabular

import "strings"

// NormalizeHeaders renames headers onto the canonical schema. An exact
// match is kept as-is; otherwise a case-insensitive match is renamed to
// the canonical form. All other headers, and column order, are left
// untouched. Idempotent, and never fails: a missing required column is
// detected by validation, not here.
func NormalizeHeaders(t *Table) {
	lowerToIdx := make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		if _, seen := lowerToIdx[strings.ToLower(h)]; !seen {
			lowerToIdx[strings.ToLower(h)] = i
		}
	}
	for _, canonical := range RequiredColumns {
		if t.ColumnIndex(canonical) >= 0 {
			continue
		}
		if idx, ok := lowerToIdx[strings.ToLower(canonical)]; ok {
			t.Headers[idx] = canonical
		}
	}
}
