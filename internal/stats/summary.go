// Package stats computes descriptive statistics and histogram bins over
// query results. All functions are pure transforms: they own no state
// and never mutate their input.
package stats

import (
	"math"
	"sort"

	"github.com/datapeek/datapeek/pkg/types"
)

// ColumnStatistics holds descriptive statistics for one numeric column,
// computed over its numeric values only. Reported values are rounded to
// 2 decimal places; intermediate computation keeps full precision.
type ColumnStatistics struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Summary holds per-column statistics for a query result. NumericColumns
// preserves the result's column order and lists exactly the columns with
// at least one numeric value.
type Summary struct {
	Columns        map[string]ColumnStatistics `json:"columns"`
	NumericColumns []string                    `json:"numeric_columns"`
}

// Summarize computes statistics for every numeric column of the result.
// Returns nil for a nil or empty result. Columns without a single
// numeric value are omitted entirely rather than zero-filled.
func Summarize(result *types.QueryResult) *Summary {
	if result.RowCount() == 0 {
		return nil
	}

	summary := &Summary{Columns: make(map[string]ColumnStatistics)}

	for _, col := range result.Columns {
		values := numericValues(result, col)
		if len(values) == 0 {
			continue
		}
		summary.NumericColumns = append(summary.NumericColumns, col)
		summary.Columns[col] = compute(values)
	}

	return summary
}

// numericValues collects the numeric values of one column: non-null
// values filtered down to numbers, in record order.
func numericValues(result *types.QueryResult, column string) []float64 {
	var values []float64
	for _, rec := range result.Records {
		if f, ok := types.AsFloat(rec[column]); ok {
			values = append(values, f)
		}
	}
	return values
}

// compute derives the statistics for a non-empty value set.
func compute(values []float64) ColumnStatistics {
	n := len(values)

	min, max := values[0], values[0]
	sum := 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean := sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var median float64
	mid := n / 2
	if n%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	// Population standard deviation: divide by n, not n-1.
	sqSum := 0.0
	for _, v := range values {
		d := v - mean
		sqSum += d * d
	}
	stdDev := math.Sqrt(sqSum / float64(n))

	return ColumnStatistics{
		Count:  n,
		Min:    round2(min),
		Max:    round2(max),
		Mean:   round2(mean),
		Median: round2(median),
		StdDev: round2(stdDev),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
