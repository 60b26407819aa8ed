package types

// Summary holds the precomputed aggregates attached to a dataset record.
// A numeric column with zero resolvable values has no entry in Averages,
// Min or Max.
type Summary struct {
	Count            int                `json:"count"`
	Averages         map[string]float64 `json:"averages"`
	Min              map[string]float64 `json:"min"`
	Max              map[string]float64 `json:"max"`
	TypeDistribution map[string]int     `json:"type_distribution"`
}
