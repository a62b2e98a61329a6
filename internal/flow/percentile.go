// Package flow contains the statistical core of riverwatch: empirical
// percentile ranking of a current gauge reading against a long-run
// historical sample, and classification of that rank into severity
// tiers. Everything in this package is pure computation; fetching,
// caching and reporting live elsewhere.
package flow

import (
	"database/sql"
	"math"
	"sort"
)

// PercentileRank returns the empirical percentile of current within the
// historical sample: the fraction of historical values strictly less
// than current, scaled to 0-100. NaN entries are dropped before
// counting. When the sample is empty, or empty after dropping NaN, the
// result is Valid=false: "no data" is distinct from the 0th
// percentile.
//
// The comparison is strictly less-than: a current value tied with
// historical values is not counted as above them, so ties bias the
// rank low. No interpolation between order statistics is performed.
func PercentileRank(historical []float64, current float64) sql.NullFloat64 {
	below := 0
	n := 0
	for _, v := range historical {
		if math.IsNaN(v) {
			continue
		}
		n++
		if v < current {
			below++
		}
	}
	if n == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{
		Float64: float64(below) / float64(n) * 100,
		Valid:   true,
	}
}

// Clean returns the sample with NaN entries removed.
func Clean(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Summary holds descriptive statistics of a cleaned historical sample.
// Reporting only; none of these feed classification.
type Summary struct {
	Min    float64
	Max    float64
	Median float64
	N      int
}

// Summarize computes min/max/median over the cleaned sample. Returns
// ok=false for an empty (or all-NaN) sample.
func Summarize(values []float64) (Summary, bool) {
	clean := Clean(values)
	if len(clean) == 0 {
		return Summary{}, false
	}

	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)

	n := len(sorted)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Summary{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: median,
		N:      n,
	}, true
}
