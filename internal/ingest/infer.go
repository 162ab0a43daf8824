package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// inferValue performs dynamic typing for one CSV cell. The rule is
// deterministic and applied in order:
//
//  1. whitespace-trimmed empty cell -> nil
//  2. the full trimmed cell parses as a finite float64 -> number
//     (so "1", "007" and "1e3" are numbers, never booleans)
//  3. case-insensitive "true"/"false" -> bool
//  4. anything else -> the trimmed string
//
// "NaN" and "Inf" parse as floats but are kept as strings so every
// numeric value in a dataset is finite.
func inferValue(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}

	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
		return trimmed
	}

	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}

	return trimmed
}

// normalizeHeader cleans up header names: surrounding whitespace is
// trimmed, blank names get positional placeholders, and duplicates get
// a numeric suffix so each column key is unique.
func normalizeHeader(fields []string) []string {
	columns := make([]string, len(fields))
	seen := make(map[string]int, len(fields))

	for i, raw := range fields {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}

		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[name]++

		columns[i] = name
	}

	return columns
}

// isAllEmpty reports whether every field of a row is blank.
func isAllEmpty(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
