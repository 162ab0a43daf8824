package stats

import (
	"fmt"
	"math"

	"github.com/datapeek/datapeek/pkg/types"
)

// MaxBins caps the histogram bin count regardless of input size.
const MaxBins = 15

// Bin is one interval of a histogram partition. Label is the bin's left
// edge formatted to 1 decimal place.
type Bin struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Histogram partitions a column's numeric values into contiguous
// equal-width bins covering [min, max]. Returns nil when the column has
// zero numeric values. When every value is identical a single bin
// labeled with that value holds the full count.
//
// Any column may be requested; callers impose their own display cutoffs.
func Histogram(result *types.QueryResult, column string) []Bin {
	if result.RowCount() == 0 {
		return nil
	}

	values := numericValues(result, column)
	if len(values) == 0 {
		return nil
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if min == max {
		return []Bin{{Label: fmt.Sprintf("%.1f", min), Count: len(values)}}
	}

	binCount := int(math.Ceil(math.Sqrt(float64(len(values)))))
	if binCount > MaxBins {
		binCount = MaxBins
	}
	width := (max - min) / float64(binCount)

	counts := make([]int, binCount)
	for _, v := range values {
		idx := int(math.Floor((v - min) / width))
		// The maximum value lands exactly on the right edge; clamp it
		// into the last bin.
		if idx >= binCount {
			idx = binCount - 1
		}
		counts[idx]++
	}

	bins := make([]Bin, binCount)
	for i := range bins {
		bins[i] = Bin{
			Label: fmt.Sprintf("%.1f", min+float64(i)*width),
			Count: counts[i],
		}
	}

	return bins
}
